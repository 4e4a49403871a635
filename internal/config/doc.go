// Package config defines the tool's configuration model and its on-disk
// HCL form. Load and Dump are mutual inverses: a dumped configuration,
// loaded again, yields an identical Config value, which is what makes the
// -j / -J switch pair round-trippable.
package config
