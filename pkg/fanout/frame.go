package fanout

import (
	"encoding/json"

	"github.com/courierd/courierd/pkg/job"
)

// Frame types pushed to connected clients.
const (
	// FrameNotification carries a payload delivered while the client
	// was connected.
	FrameNotification = "notification"

	// FrameNotificationMissed carries a payload the worker sent while
	// the client was offline, replayed on reconnect.
	FrameNotificationMissed = "notification_missed"
)

// Frame is the JSON message shape sent server-to-client over a live
// connection.
type Frame struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	JobID *int64          `json:"job_id,omitempty"`
}

func liveFrame(env Envelope) Frame {
	f := Frame{Type: FrameNotification, Data: env.Data}
	if env.JobID != 0 {
		id := env.JobID
		f.JobID = &id
	}
	return f
}

func missedFrame(j job.Job) Frame {
	id := j.ID
	return Frame{Type: FrameNotificationMissed, Data: j.MessageData, JobID: &id}
}
