// Package block names storyboard blocks. A Ref is one of Intro, Close,
// Chapter(n) or Break(n); Folder is the single place that maps a Ref to the
// backend's folder naming.
package block
