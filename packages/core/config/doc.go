// Package config loads qakit.yaml.
//
// It provides functionality for:
//   - Locating qakit.yaml, .qakit.yaml or qakit.yml in a directory
//   - Expanding ${VAR} references from the environment before parsing
//   - Validating the document against an embedded JSON schema
//   - Default configuration values and merging of overrides
package config
