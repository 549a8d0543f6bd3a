package logger

import "log/slog"

// Error records a single error under the key "error". Nil yields an
// empty attribute, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// JobID records the job identifier under the key "job_id".
func JobID(id int64) slog.Attr {
	return slog.Int64("job_id", id)
}

// RecipientID records the recipient identifier under the key
// "recipient_id".
func RecipientID(id int64) slog.Attr {
	return slog.Int64("recipient_id", id)
}

// Channel records the delivery channel under the key "channel".
func Channel(ch string) slog.Attr {
	return slog.String("channel", ch)
}

// WorkerID records the worker identity under the key "worker_id".
func WorkerID(id string) slog.Attr {
	return slog.String("worker_id", id)
}

// RetryCount records the attempt count under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}
