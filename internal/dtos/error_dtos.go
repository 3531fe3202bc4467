package dtos

// ValidationErrorDetail describes one failed field rule.
type ValidationErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}
