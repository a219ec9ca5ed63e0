// Package logs tails the daemon's run log for `vodbridge logs`.
//
// Last reads the trailing lines of a file with bounded memory. Follow polls
// for appended lines and restarts from the top when the vodbridge.log
// pointer is re-linked to a newer run.
package logs
