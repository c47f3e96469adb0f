// Package engine turns raw FreeScout API responses into dashboard metrics.
//
// Each call to [Engine.RunCycle] enumerates folders across mailboxes, runs the
// open, pending and agent count queries, scans the newest active
// conversations and diffs them against the ids seen on the previous
// successful cycle. The cycle either produces a complete [Snapshot] or fails
// without touching the engine's known-id set or folder registry.
//
// Scheduling is not done here; see the poller package.
package engine
