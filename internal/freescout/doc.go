// Package freescout is a read-only client for the FreeScout helpdesk REST API.
//
// It exposes page-level calls for the three resources the poll engine needs:
//
//   - [Client.Mailboxes]: GET /api/mailboxes
//   - [Client.Folders]: GET /api/mailboxes/{id}/folders
//   - [Client.Conversations]: GET /api/conversations
//
// Pagination, fan-out and aggregation are left to the caller. Every request
// carries the static API key header and its own timeout.
//
// Failures are reported as [*TransportError] when no HTTP response was
// received, and as [*APIError] when the server answered with a non-2xx status
// or a body that could not be decoded.
package freescout
