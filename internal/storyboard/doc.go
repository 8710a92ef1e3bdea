// Package storyboard holds the local working copy of a block storyboard.
//
// Structural edits (InsertBridge, DeleteScene) renumber every scene so that
// scene numbers stay dense and one-based, then recompute the document totals.
// Field edits and prompt toggles are local until Save, which pushes the whole
// document back to the backend with last-write-wins semantics. Validation
// issues are indexed by the "Scene N" reference in their message; issues with
// no reference are returned separately rather than dropped.
package storyboard
