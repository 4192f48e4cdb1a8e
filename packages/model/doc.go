// Package model converts typed message bodies to JSON-compatible mappings.
//
// ToMapping walks a struct in field declaration order and produces an
// ordered mapping in which:
//   - enumerations render as their underlying value
//   - uuid.UUID renders as its canonical string
//   - decimal.Decimal renders as its exact string, never as a float
//
// Marshal and Unmarshal wrap the mapping for JSON bodies sent over HTTP or
// AMQP.
package model
