// Package audit provides audit logging for grant operations.
//
// Every allow, disallow and check performed through the facade or the HTTP
// API produces an event written as an RFC5424 syslog line:
//
//	<86>1 2026-10-16T12:00:00.000Z host whocan 4242 check [action@32473 operation="check" result="success"][subject@32473 triple="(\"u1\", \"read\", \"doc1\")"] anonymous checked ("u1", "read", "doc1"): allowed
//
// # Event Types
//
//   - AllowEvent: a grant was created or refreshed
//   - DisallowEvent: a grant was revoked
//   - CheckEvent: a grant was checked
//   - AuthenticateEvent: a bearer token was presented to the HTTP API
//
// # Environment Variables
//
//   - WHOCAN_AUDIT_ENABLED: set to "false" to disable audit output
//   - WHOCAN_AUDIT_DATABASE_URL: PostgreSQL URL; when set every event is also
//     stored in the messages table
package audit
