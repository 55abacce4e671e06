package models

// Profile is a viewer profile under an account. IDs are chosen by the client
// (the web UI uses a millisecond timestamp).
type Profile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}
