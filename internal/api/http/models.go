package http

import "time"

// Value is an item of the demo collection.
type Value struct {
	ID    int    `json:"id" example:"1"`
	Value string `json:"value" example:"value1"`
}

// CreateValueRequest is the body of POST /api/values.
type CreateValueRequest struct {
	Value string `json:"value" example:"value3"`
}

// IdentityResponse echoes the verified caller.
type IdentityResponse struct {
	Subject  string         `json:"sub" example:"client_1"`
	ClientID string         `json:"client_id" example:"client_1"`
	Scopes   []string       `json:"scopes" example:"api1"`
	Claims   map[string]any `json:"claims"`
}

// PingResponse is returned by the public ping.
type PingResponse struct {
	Message string    `json:"message" example:"pong"`
	Time    time.Time `json:"time"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error            string `json:"error" example:"not_found"`
	ErrorDescription string `json:"error_description,omitempty" example:"value 9 does not exist"`
}
