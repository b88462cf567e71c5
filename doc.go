// Package authflow is a client SDK for the Evergrow360 REST API that makes
// credential handling invisible to callers: it stores the JWT access/refresh
// token pair, attaches the bearer header to every outbound call, refreshes
// the pair ahead of expiry, and transparently retries a call exactly once
// after a 401-triggered refresh.
//
// The package is designed for concurrent callers: Client methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authflow is the public surface. It exposes [Client], [Builder], [Config],
// and value types (Request, Response, AuthResult, MetricsSnapshot). Token
// decoding lives in the token sub-package, durable credential persistence in
// credstore, and metric export under metrics/export.
//
// # What this package must NOT do
//
//   - Validate token signatures. Subject and expiry are decoded locally as a
//     UX hint only; the server remains the sole authority on validity.
//   - Retry non-authorization failures. Transport errors, timeouts, and
//     server errors propagate to the caller unchanged.
//   - Issue more than one refresh per credential-invalidation episode.
//     Concurrent 401s coalesce onto a single in-flight refresh.
package authflow
