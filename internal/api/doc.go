// Package api implements the scripthub HTTP surface.
//
// New(store, opts) returns a Handler that serves:
//
//	GET  /projects          JSON array of project filenames
//	GET  /open?file=<name>  JSON {"filename","text"}
//	POST /save              body {"filename","text"}, JSON {"saved":true,"file"}
//	GET  /healthz           JSON {"status":"ok"}
//	GET  <anything else>    static file from the static directory (editor assets)
//	POST <anything else>    400 "Unknown endpoint"
//
// Project faults ("Missing filename", "File not found", "Unknown endpoint")
// are written as status 400 with a bare text body and no Content-Type.
// Everything unexpected becomes a generic 500 and an error log line.
// Additional GET endpoints (/metrics, /ws/projects) are attached with Mount.
//
// Instrument wraps a handler with the access log and request metrics.
// JSON types are defined in types.go.
package api
