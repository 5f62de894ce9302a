// Package config loads runtime configuration for the incident desk CLI.
//
// Sources, lowest precedence first:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A JSON file named by -c/-config or INCIDENTS_CONFIG.
//  3. INCIDENTS_* environment variables, with a .env file filling the gaps.
//  4. Command-line flags -a, -t, -d and -v.
//
// JSON example:
//
//	{
//	  "api_base_url": "https://incidents.example.com/api",
//	  "request_timeout": "30s",
//	  "database_path": "incidents.db",
//	  "wire_vocabulary": "spanish",
//	  "log_level": "debug",
//	  "log_format": "json"
//	}
//
// LoadConfig panics on unreadable sources; call Validate before use.
package config
