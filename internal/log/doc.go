// Package log provides secure logging built on log/slog.
//
// SecureHandler wraps any slog.Handler and scrubs credentials before a
// record reaches it:
//   - attributes whose key names a secret (token, password, database_url, ...)
//   - values that look like a Telegram bot token or a sealed "enc:" value
//   - bot tokens embedded in Bot API URLs and passwords embedded in
//     database URLs, wherever they appear in a message or string value
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("connecting", "database_url", cfg.DatabaseURL)
//	slog.SetDefault(logger)
package log
