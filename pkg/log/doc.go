/*
Package log provides structured logging for drverify built on zerolog.

Call Init once at startup, then take child loggers scoped to a component
or a scenario:

	log.Init(log.Config{Level: log.InfoLevel})
	logger := log.WithComponent("discover")
	logger.Info().Str("cluster", "dr-east").Msg("carrier found")

Console output (human-readable, stderr) is the default; JSON output is
intended for runs driven by CI.
*/
package log
