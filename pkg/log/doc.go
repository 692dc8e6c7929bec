/*
Package log provides structured logging for Kompromat using zerolog.

A single global Logger is configured once with Init. Packages derive
component loggers from it and add fields per call.

# Configuration

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		File:       "/var/log/kompromat/kompromat.log",
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
	})

Console output is human readable unless JSONOutput is set. When File is set,
logs are also written there as JSON and rotated by lumberjack.

Until Init runs, Logger discards everything, so library code and tests can
log freely.

# Component Loggers

	logger := log.WithComponent("vault")
	logger.Info().Str("card_id", id).Msg("Access card created")

WithClientID and WithCardID add the usual vault fields.

# What Is Never Logged

Card secrets, pins, token secrets, master keys and request bodies. Card and
token ids are fine; they are useless without the matching secret.
*/
package log
