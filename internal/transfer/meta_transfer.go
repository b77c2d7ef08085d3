package transfer

// GraphResponse is the body of a Graph API publish call. Photo posts on a
// page return both the photo id and the feed post id.
type GraphResponse struct {
	ID     string      `json:"id"`
	PostID string      `json:"post_id"`
	Error  *GraphError `json:"error,omitempty"`
}

type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	IsTransient  bool   `json:"is_transient"`
	FbtraceID    string `json:"fbtrace_id"`
}
