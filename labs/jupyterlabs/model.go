package jupyterlabs

// Session is one entry of the server's /api/sessions listing.
type Session struct {
	ID       string       `json:"id"`
	Path     string       `json:"path"`
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Kernel   Kernel       `json:"kernel"`
	Notebook NotebookInfo `json:"notebook"`
}

type Kernel struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ExecutionState string `json:"execution_state,omitempty"`
}

// NotebookInfo describes the document backing a session. Path is relative
// to the server root directory.
type NotebookInfo struct {
	Path string `json:"path"`
	Name string `json:"name"`
}
