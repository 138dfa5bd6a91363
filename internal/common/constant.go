package common

const (
	// SessionParam is the query parameter carrying the session id.
	SessionParam = "s"
	// FileParam is the query parameter carrying the encoded file descriptor
	// on gateway to node requests.
	FileParam = "f"
	// SessionHeaderName is accepted in place of SessionParam on API routes.
	SessionHeaderName = "X-Session-Id"
	// UploadPath is served by the gateway and by every backend node.
	UploadPath = "/upload"
)
