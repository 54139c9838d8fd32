// Package cli provides command-line interface setup and configuration
// for korengpro. It builds the cobra command tree, binds flags to viper
// keys and resolves the final application configuration from flags, the
// YAML config file and KORENGPRO_* environment variables.
package cli
