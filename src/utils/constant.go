package utils

// -----------------------------------------------------------------------------

const (
	// DefaultRecentSize is the length of the /api/recent feed.
	DefaultRecentSize = 100

	// APIKeyBytes of entropy per access token (hex encoded: 64 characters).
	APIKeyBytes = 32

	// StateBytes of entropy per OAuth state parameter.
	StateBytes = 16
)
