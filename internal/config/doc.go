// Package config loads and validates fluxdec's TOML configuration.
//
// Configuration is optional: every field has a working default, and the
// loader falls back to defaults when no file exists. Paths are expanded
// and normalized before validation so the rest of the code never sees a
// tilde or relative config path.
package config
