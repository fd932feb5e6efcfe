package gntree

var (
	// Version of gntree
	Version = "v0.1.0"

	// Build timestamp
	Build = "n/a"
)
