// Package workspace persists cutroom's local state in SQLite: the project card
// list (the backend has no list endpoint), storyboard working copies, and the
// per-project progress log. It also hands out per-project flock locks so two
// cutroom processes never trigger generation for the same project at once.
package workspace
