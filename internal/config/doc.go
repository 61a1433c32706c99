// Package config provides configuration types for procbridge.
//
// ChannelConfig and SupervisorConfig are plain structs with documented
// defaults. They are filled by Default*, adjusted by functional options in the
// root package or by a TOML file via Load, and checked with Validate before
// use. After validation a config is treated as immutable and shared by pointer.
package config
