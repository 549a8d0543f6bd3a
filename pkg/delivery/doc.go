// Package delivery maps a claimed job's channel to the side effect that
// actually reaches the recipient. Each channel has a Handler; the worker
// resolves the handler through a Registry and calls it once per claimed
// job. Handlers are stateless and safe for concurrent use.
package delivery
