// Package testutil contains shared helpers for package tests: a scripted
// fake model client, a recording observer and fluent builders for wire
// responses. Not part of the public API.
package testutil
