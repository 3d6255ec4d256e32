package metadata

// ValidationRule is a boolean expression evaluated against the properties of
// an instance on every write. A false result rejects the write with Message.
type ValidationRule struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Message    string `json:"message,omitempty"`
}
