// Package poller runs the poll engine on a fixed period.
//
// This package is internal to ScoutBoard. The main components are:
//
//   - [Scheduler]: immediate first cycle, then one cycle per tick
//   - [CycleResult]: outcome of a single cycle, tagged with a cycle id
//   - [State]: last successful snapshot and failure history
//
// Users of the scoutboard library should not need to interact with this
// package directly. Configuration is done through the main scoutboard package.
package poller
