// Package logger builds context-aware slog loggers shared by the worker
// and the realtime gateway.
//
// New creates a *slog.Logger from functional options: output format
// (text or json), minimum level, static attributes applied to every
// record, and ContextExtractor callbacks that inject values carried in
// the context at log time.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.AppEnv, "courierd-worker"),
//	    logger.WithAttr(slog.String("version", version)),
//	)
//	logger.SetAsDefault(log)
//
// Attribute constructors in attr.go keep key naming consistent across
// the codebase, so a job is always logged as "job_id" and a recipient
// as "recipient_id" no matter which component emits the record.
package logger
