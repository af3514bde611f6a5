// Package version holds build metadata.
package version

const (
	AppName = "cloudreaper"
	Current = "0.3.1"
	License = "MIT"
)
