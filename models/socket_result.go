package models

// SocketResult is a check result as accepted by the local client socket.
type SocketResult struct {
	Name     string   `json:"name"`
	Output   string   `json:"output"`
	Status   int      `json:"status"`
	Source   string   `json:"source,omitempty"`
	Handlers []string `json:"handlers,omitempty"`
}
