// Package app assembles korengpro's components from a resolved Config and
// implements the behavior behind each CLI command.
package app
