// Package textutil provides small text helpers shared by the CLI and the
// storyboard packages: filename sanitizing, slugs for download names,
// humanized identifiers, and rune-safe truncation.
package textutil
