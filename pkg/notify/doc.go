// Package notify provides the enqueue contract consumed by producers.
//
// Producers (registration flows, publish flows, anything that wants to
// notify a user) depend only on Enqueuer.Enqueue: one durable pending job
// per accepted call, a nil id when the recipient opted out of the channel,
// or an error when storage failed. Delivery itself is the worker's job.
package notify
