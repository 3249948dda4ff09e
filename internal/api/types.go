package api

// LookupRequest represents the request payload for a dictionary lookup
type LookupRequest struct {
	Query string `json:"query" validate:"required"`
	Lang  string `json:"lang"`
}

// CultureRequest represents the request payload for a culture deep-dive
type CultureRequest struct {
	Topic string `json:"topic" validate:"required"`
	Lang  string `json:"lang"`
}

// HSKRequest represents the request payload for mock exam generation
type HSKRequest struct {
	Level int    `json:"level" validate:"required,min=1,max=6"`
	Lang  string `json:"lang"`
}

// OCRRequest represents the request payload for character recognition
type OCRRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
	MIMEType    string `json:"mime_type"`
}

// OCRResponse represents the recognized characters
type OCRResponse struct {
	Text string `json:"text"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
