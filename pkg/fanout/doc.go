// Package fanout is the realtime delivery layer for in-app
// notifications.
//
// The worker's in-app handler publishes an Envelope to a Bus; a Hub
// subscribed to that bus routes it to every live connection registered
// under the recipient's id. The Gateway terminates the client-facing
// WebSocket protocol: it authenticates the handshake, attaches the
// connection to the hub, and streams JSON frames of shape
//
//	{"type": "notification" | "notification_missed", "data": {...}, "job_id": 123}
//
// Nothing at this layer is durable. A recipient with no live connection
// simply misses the broadcast; the job store still holds the row as
// sent-and-unread, and the hub replays it as a notification_missed frame
// the next time that recipient connects. Whenever a frame carrying a job
// id is transmitted, live or replayed, the job is marked read.
package fanout
