// Package pipeline runs the poll loop that turns finished recordings into
// uploads.
//
// Each cycle moves through explicit states:
//
//	Refresh → Scan → Correlate → Drain → Idle
//
// Refresh reloads the VOD cache when it is stale. Scan lists the watch
// folder. Correlate pairs files with VODs and relocates files whose VOD is
// already in the completed history. Drain first resumes every ledger entry
// and then uploads each new match, one at a time. Idle sleeps for the check
// interval.
//
// The ledger entry for a VOD is written before its transfer starts and is
// kept across a quota pause, so a crash or a quota stop resumes the same
// upload on the next drain. Completed history is marked before the ledger
// entry is removed; a crash between the two is repaired on the next drain.
package pipeline
