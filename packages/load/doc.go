// Package load fans a single request out over many concurrent calls and
// summarizes the latencies and status codes it saw.
//
// A Runner paces calls with a token bucket, bounds how many are in flight
// and records each completed call into an HDR histogram.
package load
