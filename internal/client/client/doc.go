// Package client holds the transport and error vocabulary shared by the
// incident client.
//
// # Transport
//
// HTTPClient sends one Request to the API and hands back the raw Response.
// It never interprets status codes: classification into RequestError kinds
// is done by the session and pipeline packages, so both see identical
// semantics. Transport failures (no response at all) come back as a
// KindNetwork RequestError.
//
// # Error Handling
//
// Every failure leaving the client core is a *RequestError. Callers match on
// its Kind with errors.Is against the sentinels (ErrNotAuthenticated,
// ErrNotFound, ErrValidation, ...) or with KindOf. errors.Unwrap yields the
// underlying cause when there is one.
package client
