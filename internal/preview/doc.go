// Package preview serves a local read-mostly surface for the open project:
// the project view and storyboard grid as JSON, the tension curve as SVG, and
// a websocket that relays the backend's progress stream.
package preview
