package observability

import (
	"time"

	"go.uber.org/zap"
)

// Field aliases keep call sites free of a direct zap import.

// String logs a string value.
func String(key, val string) zap.Field { return zap.String(key, val) }

// Int logs an int value.
func Int(key string, val int) zap.Field { return zap.Int(key, val) }

// Int64 logs an int64 value.
func Int64(key string, val int64) zap.Field { return zap.Int64(key, val) }

// Bool logs a bool value.
func Bool(key string, val bool) zap.Field { return zap.Bool(key, val) }

// Float64 logs a float64 value.
func Float64(key string, val float64) zap.Field { return zap.Float64(key, val) }

// Duration logs a time.Duration.
func Duration(key string, val time.Duration) zap.Field { return zap.Duration(key, val) }

// Error logs err under the "error" key.
func Error(err error) zap.Field { return zap.Error(err) }

// Stringer logs values such as decimal.Decimal through their String method.
func Stringer(key string, val interface{ String() string }) zap.Field { return zap.Stringer(key, val) }
