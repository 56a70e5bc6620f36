package models

// SearchFilter carries the optional report query criteria. Every field is
// independently optional; the zero value matches everything in that
// dimension. Location and Meta arrive as JSON strings on the wire and are
// parsed before the filter reaches the query engine.
type SearchFilter struct {
	Name      string
	Published string
	Location  map[string]interface{}
	Meta      map[string]interface{}
	Approved  string
	Keyword   string
	Length    *int
	From      *int
	To        *int
}
