// Package backend is the typed REST client for the production backend.
//
// Every call returns errors tagged with one of the package sentinels so
// callers can branch with errors.Is: ErrTransport for network failures,
// ErrApplication for {error} payloads (the backend message is kept verbatim
// in APIError), ErrValidation for input rejected before or by the server and
// ErrNotFound / ErrNotGenerated for missing resources. GET requests retry on
// transport errors and 5xx responses; generation triggers are never retried
// because each POST starts a backend job.
package backend
