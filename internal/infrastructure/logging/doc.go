// Package logging provides structured logging for the Toshiba bridge
// service on top of log/slog.
//
// Every record carries service and version attributes. Components add
// their own with Component or With:
//
//	log := logging.New(cfg.Logging, version)
//	log.Component("mqtt").Info("connected", "broker", addr)
//
// Production runs use the JSON handler; the text handler is for local
// development.
package logging
