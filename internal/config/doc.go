// Package config loads the jobdeck configuration file.
//
// # Overview
//
// jobdeck reads a small TOML file that names the portal API, the credential
// to send, the cache freshness window and where logs go. Every key is
// optional and a missing file is not an error.
//
// # Precedence
//
// From lowest to highest:
//
//  1. Built-in defaults
//  2. ~/.config/jobdeck/config.toml (or the path passed to Load)
//  3. A .env file in the working directory (loaded into the environment)
//  4. JOBDECK_* environment variables
//  5. Command-line flags
//
// Load covers the first two layers. The CLI resolves the rest through viper
// and hands the result to Config.Apply as Overrides.
//
// # Default Values
//
//   - Config file: ~/.config/jobdeck/config.toml
//   - API endpoint: 127.0.0.1:8080
//   - Cache TTL: 5m
//   - Log file: ~/.local/state/jobdeck/jobdeck.log
//   - Log backend: zap
//   - Log level: info
//
// # TOML Format
//
//	api_url = "https://jobs.example.com"
//	token = "..."
//	cache_ttl = "5m"
//	log_file = "~/.local/state/jobdeck/jobdeck.log"
//	log_backend = "zap"   # or "logrus"
//	log_level = "debug"
//
// cache_ttl accepts a Go duration or a bare number of seconds and must be at
// least one second. Tilde expansion is applied to log_file.
//
// # Error Handling
//
// Load returns errors for path expansion failures, unreadable files, TOML
// syntax errors and invalid cache_ttl values. os.ErrNotExist yields defaults.
package config
