// Package journal records HTTP exchanges in a SQLite database so a test run
// can be audited after the fact by correlation id.
//
// A Store is fed by Hook, a logrus hook that picks up the outbound and
// inbound diagnostic lines the HTTP clients emit at debug level.
package journal
