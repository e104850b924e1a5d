// Package sl contains helpers for building structured slog fields,
// mainly for uniform error reporting.
package sl

import "log/slog"

// Err returns a slog.Attr with key "error" and the error text as value.
//
// Example:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
