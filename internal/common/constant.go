// Package common contains shared constants and sentinel errors used across
// Plateful components.
package common

// AccessTokenHeaderName is the HTTP header used to carry the bearer
// credential on outbound requests to the remote store.
const AccessTokenHeaderName = "Authorization"

// CuratorIDHeaderName identifies the acting curator on every remote call.
const CuratorIDHeaderName = "X-Plateful-Curator"
