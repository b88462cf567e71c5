// Package credstore persists the credential pair across process restarts.
//
// The durable layout is deliberately small: two named string values, the
// access token and the refresh token. Absence of either means the caller
// is unauthenticated. Backends exist for Redis (shared processes), a
// single JSON file (CLI tools), and memory (tests, throwaway sessions).
package credstore
