// Package embedded provides the built-in command catalog compiled into the binary.
package embedded

import _ "embed"

// CommandCatalogData contains the built-in commands in catalog YAML format.
//
//go:embed commands.yaml
var CommandCatalogData []byte
