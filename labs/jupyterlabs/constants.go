package jupyterlabs

const (
	// DefaultNotebookRoot is where session relative notebook paths resolve.
	DefaultNotebookRoot = "/opt/jupyter"
	NotebookExtension   = ".ipynb"
	// DefaultMirrorExtension is the extension of the jupytext paired script.
	DefaultMirrorExtension = ".py"
)

const (
	EnvNotebookRoot   = "JUPYTER_ROOT_DIR"
	EnvConnectionFile = "JUPYTER_KERNEL_CONNECTION_FILE"
)

const (
	ServerListCommand = "jupyter"
	sessionsAPIPath   = "api/sessions"
)

// SaveCommand is the front-end command that persists the active document.
const SaveCommand = "docmanager:save"
