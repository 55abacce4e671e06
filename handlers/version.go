package handlers

import (
	"net/http"
	"runtime/debug"
	"sync"
)

// Version is set at build time with -ldflags "-X heimdall/handlers.Version=...".
var Version string

var resolveOnce sync.Once

type VersionHandler struct{}

type VersionResponse struct {
	Version string `json:"version"`
}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// BackendVersion returns the linked version, falling back to the module
// version recorded in the binary.
func BackendVersion() string {
	resolveOnce.Do(func() {
		if Version != "" {
			return
		}
		Version = "dev"
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
	})
	return Version
}

func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: BackendVersion()})
}
