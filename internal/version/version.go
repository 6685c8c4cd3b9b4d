// Package version exposes the lspsync build version.
package version

import (
	"runtime/debug"
)

var version = "dev"

// Version returns the current version string.
func Version() string {
	pv := ProtocolVersion()
	if pv != "" {
		return version + " (go.lsp.dev/protocol " + pv + ")"
	}
	return version
}

// ProtocolVersion returns the linked go.lsp.dev/protocol version from build
// info.
func ProtocolVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range info.Deps {
		if dep.Path == "go.lsp.dev/protocol" {
			return dep.Version
		}
	}
	return ""
}

// Info is the structured version report.
type Info struct {
	Version  string `json:"version"`
	Protocol string `json:"protocol,omitempty"`
	Go       string `json:"go,omitempty"`
}

// GetInfo returns the structured version report.
func GetInfo() Info {
	info := Info{Version: version, Protocol: ProtocolVersion()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.Go = bi.GoVersion
	}
	return info
}
