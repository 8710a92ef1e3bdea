// Package grid lays out the storyboard grid of an episode (intro, one block
// per chapter with a break between chapters, close) and binds its buttons to
// the scene editor.
package grid
