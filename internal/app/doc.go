// Package app executes the operations the cli package resolves: the meta
// operations (help, version, config, reports over the package index) and
// the per-module build actions, all delegated to the cpan collaborator.
package app
