// Package main hosts the vodbridge CLI entrypoint and command graph.
//
// `vodbridge run` starts the poll loop in the foreground. The remaining
// commands inspect or repair the durable state it leaves behind: the
// in-flight ledger, the completed history, the upload archive and the quota
// schedule. They read the same files the daemon writes, so no socket or
// server is involved.
package main
