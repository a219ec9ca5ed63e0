// Package vod holds Twitch VOD records and the cache the poll scheduler
// correlates recordings against.
//
// Listing is a capability (Lister). CommandLister shells out to a configured
// command, by default the twitch CLI, and parses its Helix-shaped JSON. Cache
// wraps a Lister with the duration filter, bounded linear-backoff retries, and
// the cycle-count staleness rule.
package vod
