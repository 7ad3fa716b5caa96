// Package config provides configuration loading and validation for reference
// extraction. It handles YAML-based configuration with per-section validation;
// every field has a default, so a file only needs the values it changes.
package config
