// Package job defines the durable notification job model and the store
// interfaces the rest of the pipeline is built on.
//
// A Job moves forward through a small state machine:
//
//	pending -> sending -> sent
//	                   -> pending   (retry with backoff)
//	                   -> failed    (retry budget exhausted, or permanent)
//
// Stores enforce the transitions: every status update names its expected
// source state and returns ErrInvalidTransition when the job is elsewhere,
// so a sent or failed job can never be resurrected.
//
// Components interact only through the narrow store interfaces
// (EnqueuerStore, WorkerStore, FanoutStore), keeping producers, workers
// and the realtime layer decoupled from persistence. MemoryStore backs
// tests and development; PostgresStore is the durable implementation and
// provides multi-process claim exclusion via FOR UPDATE SKIP LOCKED.
package job
