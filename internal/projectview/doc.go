// Package projectview drives the project page: loading and reloading the
// project snapshot, deriving which sections are shown from the completed
// steps, and running every project-level generation trigger.
//
// Triggers share one contract. A second trigger while one is running is
// ignored with a warning, the progress log is reset, a fail-fast progress
// stream is opened before the POST, and a failed POST closes the stream and
// re-enables the controls. A per-project file lock keeps two cutroom
// processes from generating into the same project at once.
package projectview
