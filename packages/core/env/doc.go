// Package env loads .env files and expands ${VAR} references in
// configuration values.
//
// Values already present in the process environment always win over values
// read from a .env file.
package env
