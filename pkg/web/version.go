package web

import "sync"

// VersionInfo describes the running build. main sets it once at startup and
// the API reports it on /api/status.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

var (
	verMu sync.RWMutex
	ver   = VersionInfo{Version: "dev", Commit: "unknown", BuildTime: "unknown"}
)

// SetVersionInfo sets the version information exposed by the web API
func SetVersionInfo(info VersionInfo) {
	verMu.Lock()
	defer verMu.Unlock()
	ver = info
}

// GetVersionInfo returns the currently set version info
func GetVersionInfo() VersionInfo {
	verMu.RLock()
	defer verMu.RUnlock()
	return ver
}
