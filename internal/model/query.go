package model

// QueryResult is a rendered read-only query: column names and cell text.
// Truncated is set when more rows matched than were returned.
type QueryResult struct {
	Columns   []string
	Rows      [][]string
	Truncated bool
}
