// Package config provides configuration structures and utilities for the
// water bill bot. It defines the settings shared by the bot, the portal
// scraper, the scheduler and the setup command, and loads them from
// defaults, an optional YAML file, a .env file and the process environment.
package config
