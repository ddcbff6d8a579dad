package domain

// BatchItemResult is the outcome of one item in a batch. Index is the
// position in the input sequence and the stable join key: output ordering is
// index-aligned regardless of completion order.
type BatchItemResult struct {
	Index  int            `json:"index"`
	OK     bool           `json:"ok"`
	Output map[string]any `json:"output,omitempty"`
	Error  *ErrorDetail   `json:"error,omitempty"`
}
