// Package shell implements the interactive session that starts when the
// tool is invoked with no arguments at all. Every shell command maps onto
// the same app operation methods the one-shot switches use.
package shell
