// Package common contains shared constants and sentinel errors used across
// the account service components.
package common

// AccessTokenHeaderName is the HTTP header / gRPC metadata key used to carry
// the access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// BearerPrefix is accepted in the Authorization header as an alternative
// to AccessTokenHeaderName.
const BearerPrefix = "Bearer "
