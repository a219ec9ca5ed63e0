// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Callers publish
// an Event with a Payload; formatting lives here so the pipeline never
// builds HTTP requests itself.
package notifications
