// Package timeouts defines shared timeout constants used across the gateway.
// Centralizing these values prevents drift between surfaces and makes the
// durations discoverable.
package timeouts

import "time"

// NATSConnect caps the total wait time when dialing the NATS broker with
// retries.
const NATSConnect = 30 * time.Second

// ReadHeader limits how long the ops HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the ops HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
