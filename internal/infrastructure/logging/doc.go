// Package logging provides structured logging for the GripID tracker.
//
// It wraps log/slog with the handler, level and default fields chosen in
// the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Every entry carries service=gripid and the build version.
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("device registered", "serial", dev.Serial)
//
// Never log JWT secrets, bearer tokens or broker passwords.
package logging
