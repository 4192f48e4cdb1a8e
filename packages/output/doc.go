// Package output renders qakit results for the terminal.
//
// Supported output formats:
//   - Console: coloured, human-readable response, delivery and bench output
//   - JSON: machine-readable envelopes for scripting
package output
