// Package cmd implements the qakit CLI commands using Cobra.
//
// Available commands:
//   - get, post, put, patch, delete: send one HTTP request to an endpoint
//   - publish, consume: put a message on a queue or fetch messages from it
//   - bench: fan one request out over many concurrent calls
//   - init: write a starter qakit.yaml
//   - validate: check a qakit.yaml against the schema
//   - version: show version information
package cmd
