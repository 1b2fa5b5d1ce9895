// Package config handles configuration loading for coursly-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	openai:
//	  api_key: "${OPENAI_API_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	openai:
//	  turn_timeout: "60s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # API and realtime endpoint
//
// Database:
//
//	database:
//	  path: "/var/lib/coursly/gateway.db"
//
// Model backend:
//
//	openai:
//	  api_key: "${OPENAI_API_KEY}"
//	  model: "gpt-4o-mini"
//	  turn_timeout: "60s"
//
// Escalation notifications (optional; omit the section to disable):
//
//	smtp:
//	  host: "smtp.example.com"
//	  port: 587
//	  username: "bot@example.com"
//	  password: "${SMTP_PASSWORD}"
//	  from: "bot@example.com"
//	  to: "support@example.com"
//
// Realtime:
//
//	realtime:
//	  allowed_origins:
//	    - "https://app.example.com"
//
// Logging:
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text or json
package config
