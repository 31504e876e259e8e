// Package testutil provides deterministic stand-ins for the engine's
// injected collaborators: a performer whose effects resolve only when told
// to, and a fixed effect key sequence.
//
// The scenario harness uses these outside of tests, so this is a regular
// package rather than a _test.go helper.
package testutil
