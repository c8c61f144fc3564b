// Package client contains the remote gateway for the Plateful sync engine
// and local-store initialization.
//
// The Client interface wraps the remote store's bulk and single-record
// endpoints. It performs request/response marshalling, attaches the curator's
// bearer credential, retries transient network failures at the HTTP level and
// maps every failure to a small sentinel taxonomy (ErrUnavailable,
// ErrUnauthorized, ErrValidation, ErrNotFound) so the sync coordinator can
// tell retriable from permanent outcomes. No sync business logic lives here.
//
// InitDatabase opens the local SQLite store, applies the embedded goose
// migrations and wires the repository layer.
package client
