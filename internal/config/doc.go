// Package config loads, validates, and normalizes argus configuration.
//
// Configuration lives in a TOML file (default ~/.config/argus/config.toml)
// with section structs mirroring the subsystems: paths, storage, analysis,
// workflow, notifications, and logging. Load applies defaults, expands ~ in
// paths, pulls credential fallbacks from the environment, and validates the
// result so the rest of the system can assume a usable Config.
package config
