// Package log provides the diagnostic logger used by qakit clients.
//
// Loggers are plain logrus.FieldLogger values so callers can pass their own
// process logger, a test capture (logrus/hooks/test) or the discarding
// logger returned by Nop. Nothing in qakit logs through a package global.
package log
