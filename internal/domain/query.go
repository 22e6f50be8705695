package domain

// Query is a single natural-language question scoped to a category.
type Query struct {
	Text     string
	Category string
}
