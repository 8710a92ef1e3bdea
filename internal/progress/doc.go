// Package progress follows the backend's generation progress stream.
//
// A Handle owns one reader goroutine that parses Server-Sent Events and
// delivers them in server order. complete and error events are terminal:
// the handle closes, OnDone fires once, and a complete additionally schedules
// Refresh after RefreshDelay. A dropped connection either ends the stream
// (FailFast) or reconnects after ReconnectDelay (RetryTolerant). Registry
// enforces one live handle per key so a new trigger always supersedes the
// previous stream for the same view.
package progress
