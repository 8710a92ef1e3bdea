// Package appstate is the single-writer application state container.
//
// Controllers never write into nested project fields directly. They dispatch
// typed actions; Reduce copies whatever it changes so snapshots handed to
// listeners stay stable. Progress stream callbacks run on their own
// goroutines and go through the same Dispatch entry point.
package appstate
