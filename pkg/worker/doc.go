// Package worker runs the dispatch loop that drains the job queue.
//
// Each pass claims a batch of due pending jobs under the worker's id,
// resolves each job's channel to a delivery handler, and settles the
// job according to the outcome: sent on success, rescheduled with a
// backoff while the retry budget lasts, failed permanently otherwise.
// A panicking handler counts as a failed attempt for that job only;
// the rest of the batch is unaffected.
package worker
