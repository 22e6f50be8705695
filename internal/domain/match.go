package domain

// DefaultPayloadKey is the payload field holding the content path.
const DefaultPayloadKey = "id"

// Match is the best hit returned by a vector store: a similarity score
// (higher is more similar) and the stored payload.
type Match struct {
	Score   float64
	Payload map[string]string
}

// IsEmpty reports whether the store returned no candidate.
func (m Match) IsEmpty() bool {
	return len(m.Payload) == 0
}

// Path returns the content path stored under key.
func (m Match) Path(key string) (string, bool) {
	p, ok := m.Payload[key]
	if !ok || p == "" {
		return "", false
	}
	return p, true
}
