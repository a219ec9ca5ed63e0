// Package archive keeps a SQLite record of completed uploads for reporting.
//
// The archive is a copy of upload results and is never consulted for
// idempotence; the completed history log remains authoritative. The store
// uses WAL journaling, a busy timeout and bounded retries on SQLITE_BUSY so
// the CLI can read while the daemon writes.
package archive
