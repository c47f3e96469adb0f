// Package store provides storage and pub/sub functionality for board state.
//
// This package is internal to ScoutBoard. It keeps the latest metrics
// published by the poll loop together with their freshness, plus a bounded
// history of new-conversation events. A publish-subscribe mechanism pushes
// both to connected dashboard clients.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Status]: Storage representation of the board
//   - [Arrival]: Storage representation of one new conversation
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the system).
package store
