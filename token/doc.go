// Package token decodes JWT access tokens without verifying their
// signatures. Decoded claims are a local convenience for expiry scheduling
// and UX display; they must never be used as an authorization decision.
package token
