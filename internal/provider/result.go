package provider

import "fmt"

// QueryResult is the uniform outcome of an ad-hoc statement, across every
// engine. Rows preserve column declaration order through Columns; engine
// NULL values appear as explicit nils, never empty strings.
type QueryResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows"`
}

// OK builds a successful result. A nil rows slice is normalized to empty so
// callers always receive a sequence.
func OK(message string, columns []string, rows []map[string]any) *QueryResult {
	if rows == nil {
		rows = []map[string]any{}
	}
	return &QueryResult{
		Success: true,
		Message: message,
		Columns: columns,
		Rows:    rows,
	}
}

// Fail builds a failed result carrying only a message.
func Fail(format string, args ...any) *QueryResult {
	return &QueryResult{
		Success: false,
		Message: fmt.Sprintf(format, args...),
	}
}
