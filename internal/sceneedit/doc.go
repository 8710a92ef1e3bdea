// Package sceneedit implements the scene editor of the storyboard grid:
// rewriting and inserting scenes, prompt and location image edits, prompt
// deletion, done marks and block regeneration.
//
// Input is validated before any request is sent. Background jobs follow one
// block's progress with a retry-tolerant stream and then poll the block until
// the rewritten storyboard is readable.
package sceneedit
