// Package dispatch turns logical operations into transport calls and classifies the outcome.
//
// Each [Operation] validates its own parameter shape before anything is sent. The [Dispatcher] then checks the
// session, sends the call and reads the response envelope:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": "..."}
//
// Every outcome is a [models.CallResult]. Failure kinds follow the status code and envelope: 401/403 is
// SessionExpired, other 4xx or "success": false is Rejected, 5xx and unreadable bodies are Transport failures.
// Calls are never retried or cached.
//
// The typed methods ([Dispatcher.CreatePlaylist], [Dispatcher.ChangeMetadata], ...) wrap Execute and return
// the decoded payload with a *[models.Failure] as the error.
package dispatch
