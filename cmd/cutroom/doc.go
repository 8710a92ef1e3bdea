// Package main hosts the cutroom CLI entrypoint and command graph.
//
// The Cobra command tree translates terminal invocations into calls on the
// project view, storyboard grid and scene editor controllers, which in turn
// talk to the production backend and follow its progress stream. It
// centralizes configuration resolution, the local workspace and structured
// logging setup so subcommands can focus on presentation.
//
// Keep this package lean: add behaviour to the internal packages first, then
// surface it through a command or flag here.
package main
