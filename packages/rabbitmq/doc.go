// Package rabbitmq is a thin publish/consume wrapper over amqp091-go for
// test automation.
//
// Publish opens a fresh channel for every message and closes it on every
// exit path. Get and Publish refuse to run on a closed channel and return
// ErrChannelClosed. Queue topology, acknowledgements and redelivery are left
// to the broker and the AMQP library.
package rabbitmq
