// Package recordings scans the watch folder and correlates recording files
// with VOD records by modification-time window.
package recordings
