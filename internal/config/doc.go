// Package config provides configuration structures and utilities for
// websift. It defines the options shared by the scrape and search commands,
// the YAML profile format, and the assembly of engine inputs (targets,
// queries, fetch policy) from user settings.
package config
