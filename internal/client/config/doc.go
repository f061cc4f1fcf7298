// Package config loads runtime configuration for the sable-history CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file (see (*Config).LoadFile), chosen by the
//     --config flag.
//  3. The SABLE_TOKEN environment variable for the access token.
//  4. Command-line flags, applied by the cli package.
//
// # File schema
//
// Durations use timex.Duration, so values can be strings like "5s" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "access_token": "eyJ...",
//	  "request_timeout": "5s"
//	}
package config
