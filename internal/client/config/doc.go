// Package config loads runtime configuration for the guestkeeper admin CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "public_base_url": "https://home.example.com",
//	  "request_timeout": "15s",
//	  "admin_secret": "..."
//	}
package config
