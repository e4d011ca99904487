package mode

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	Semantic Mode = "semantic"
	Keyword  Mode = "keyword"
	// Hybrid combines semantic and keyword search via rank fusion.
	Hybrid Mode = "hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Semantic || m == Keyword || m == Hybrid
}
