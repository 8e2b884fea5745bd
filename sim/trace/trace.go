package trace

// TraceLevel controls the verbosity of search tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelLeaves captures one record per complete assignment.
	TraceLevelLeaves TraceLevel = "leaves"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelLeaves: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	// MaxLeaves caps the number of stored records; 0 means unlimited.
	// Records past the cap are counted but not stored.
	MaxLeaves int
}

// SearchTrace collects leaf records during a placement search.
type SearchTrace struct {
	Config  TraceConfig
	Leaves  []LeafRecord
	Dropped int64
}

// NewSearchTrace creates a SearchTrace ready for recording.
func NewSearchTrace(config TraceConfig) *SearchTrace {
	return &SearchTrace{
		Config: config,
		Leaves: make([]LeafRecord, 0),
	}
}

// RecordLeaf appends a leaf record, or counts it as dropped past MaxLeaves.
func (st *SearchTrace) RecordLeaf(record LeafRecord) {
	if st.Config.MaxLeaves > 0 && len(st.Leaves) >= st.Config.MaxLeaves {
		st.Dropped++
		return
	}
	st.Leaves = append(st.Leaves, record)
}

// Append moves the records of other after the records of st, honoring st's cap.
// Safe for a nil other.
func (st *SearchTrace) Append(other *SearchTrace) {
	if other == nil {
		return
	}
	for _, r := range other.Leaves {
		st.RecordLeaf(r)
	}
	st.Dropped += other.Dropped
}
