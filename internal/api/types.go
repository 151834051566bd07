package api

import "encoding/json"

// OpenResponse is the payload for GET /open.
type OpenResponse struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// SaveRequest is the body of POST /save. Filename is a pointer so an absent
// field reads as empty. Text stays raw so an absent field (empty string) can
// be told apart from an explicit null, which is rejected.
type SaveRequest struct {
	Filename *string         `json:"filename"`
	Text     json.RawMessage `json:"text"`
}

// SaveResponse is the payload for POST /save.
type SaveResponse struct {
	Saved bool   `json:"saved"`
	File  string `json:"file"`
}

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Fault messages written with status 400.
const (
	msgMissingFilename = "Missing filename"
	msgFileNotFound    = "File not found"
	msgUnknownEndpoint = "Unknown endpoint"
)
