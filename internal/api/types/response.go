// internal/api/types/response.go
package types

// Paginated wraps list responses with their total count.
type Paginated struct {
	Items      interface{} `json:"items"`
	TotalCount int64       `json:"total_count"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
