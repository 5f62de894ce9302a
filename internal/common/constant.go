// Package common holds constants shared by the client and the mock backend.
package common

// AuthorizationHeaderName carries the bearer access token on API requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in AuthorizationHeaderName.
const BearerPrefix = "Bearer "

// RequestIDHeaderName is echoed by the mock backend and logged by the client.
const RequestIDHeaderName = "X-Request-ID"

// Wire paths of the incident API, relative to the configured base URL.
// All paths are trailing-slash terminated.
const (
	PathToken          = "/token/"
	PathTokenRefresh   = "/token/refresh/"
	PathCurrentUser    = "/users/current/"
	PathCurrentUserAlt = "/users/me/"
	PathIncidents      = "/incidents/"
	PathAssigned       = "/incidents/assigned/"
)
