// Package api provides the HTTP control, ingest, and live event surface of a
// running minutes server.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// Meeting is the meeting id reported by /v1/status.
	Meeting string

	// Provider is the configured LLM provider name, used when the client
	// does not report its own.
	Provider string
}
