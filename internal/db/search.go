package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	// Collection is the collection, index or table to search.
	Collection string
	// Filters are exact-match conditions on payload fields, ANDed together.
	Filters      map[string]string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is a similarity: higher is closer.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
