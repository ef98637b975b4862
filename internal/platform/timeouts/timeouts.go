// Package timeouts defines shared timeout constants used across the
// inventory service and the inventag client.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Request caps the storage work done for a single API request.
const Request = 3 * time.Second

// AssetLoad caps fetching and decoding one brand image.
const AssetLoad = 10 * time.Second

// Client caps one round trip from the inventag client to the inventory API.
const Client = 15 * time.Second

// Probe caps a health probe against a running service.
const Probe = 5 * time.Second
