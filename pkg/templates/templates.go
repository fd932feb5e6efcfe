// Package templates provides embedded YAML templates and tables.
package templates

import _ "embed"

// ConfigYAML contains the default config.yaml template for application
// configuration.
//
//go:embed config.yaml
var ConfigYAML string

// IconicYAML contains display names of iconic taxa.
//
//go:embed iconic.yaml
var IconicYAML string
