// Package cli is responsible for parsing the single-character command-line
// switches, resolving which one logical operation an invocation asks for,
// and handling process-level concerns like exit codes. It translates argv
// into an Invocation that the app package executes.
package cli
