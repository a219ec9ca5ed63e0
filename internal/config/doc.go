// Package config loads, normalizes, and validates vodbridge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file beside the config,
// and honours environment fallbacks such as TWITCH_USER_ID and NTFY_TOPIC. The
// Config type centralizes every knob the pipeline and CLI need, so the watch
// folder, durable state files, correlation window, and quota schedule are all
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
