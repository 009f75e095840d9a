/*
Package log provides structured logging for nbsched using zerolog.

The package wraps a single global zerolog.Logger that every component derives a
child logger from. Output is either JSON (production) or the zerolog console
writer (development). Until Init is called the global logger is a zero value
and discards everything, which keeps package tests quiet.

# Usage

Initializing the Logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component Loggers:

	logger := log.WithComponent("reconciler")
	logger.Info().Int("slots", 2).Msg("admission computed")

Task Loggers:

	log.WithTaskID(5).Warn().Err(err).Msg("failed to create workload")

# Log Output Examples

	{"level":"info","component":"reconciler","created":[1,2],"time":"2026-10-19T10:30:00Z","message":"creation pass finished"}
	{"level":"warn","component":"reconciler","task_id":7,"time":"2026-10-19T10:30:01Z","message":"endpoint missing, recreating"}

# Security

Task rows carry the notebook password column. types.Task excludes it from JSON
and no component logs a full Task value.
*/
package log
