// Package viewmodel is the renderer-neutral view tree shared by the project
// view, the storyboard grid and the preview relay.
//
// Builders produce plain Node values whose buttons carry typed Action
// values. Bind attaches handlers in a separate pass, so node ids and labels
// never need escaping and every action kind must be explicitly wired.
package viewmodel
