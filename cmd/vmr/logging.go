package main

import (
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/bolt/v3"

	vmr "github.com/lucapegolotti/go-vmr"
)

// newLogger builds a structured logger from environment configuration.
//   - VMR_LOG_FORMAT: "json" or "console" (default console)
//   - VMR_LOG_LEVEL: trace, debug, info, warn, error (default warn)
//
// quiet raises the default level to error; an explicit VMR_LOG_LEVEL still
// wins.
func newLogger(out io.Writer, quiet bool) vmr.Logger {
	var handler bolt.Handler
	if os.Getenv("VMR_LOG_FORMAT") == "json" {
		handler = bolt.NewJSONHandler(out)
	} else {
		handler = bolt.NewConsoleHandler(out)
	}

	level := bolt.WARN
	if quiet {
		level = bolt.ERROR
	}
	switch os.Getenv("VMR_LOG_LEVEL") {
	case "trace":
		level = bolt.TRACE
	case "debug":
		level = bolt.DEBUG
	case "info":
		level = bolt.INFO
	case "warn":
		level = bolt.WARN
	case "error":
		level = bolt.ERROR
	}

	return &boltLogger{logger: bolt.New(handler).SetLevel(level)}
}

// boltLogger adapts a bolt.Logger to the vmr.Logger interface.
type boltLogger struct {
	logger *bolt.Logger
}

func (b *boltLogger) Debug(msg string, keysAndValues ...any) {
	emit(b.logger.Debug(), msg, keysAndValues)
}

func (b *boltLogger) Info(msg string, keysAndValues ...any) {
	emit(b.logger.Info(), msg, keysAndValues)
}

func (b *boltLogger) Warn(msg string, keysAndValues ...any) {
	emit(b.logger.Warn(), msg, keysAndValues)
}

func (b *boltLogger) Error(msg string, keysAndValues ...any) {
	emit(b.logger.Error(), msg, keysAndValues)
}

// emit attaches alternating key-value pairs to the event and sends it.
func emit(e *bolt.Event, msg string, keysAndValues []any) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		switch v := keysAndValues[i+1].(type) {
		case error:
			e = e.Err(v)
		case string:
			e = e.Str(key, v)
		default:
			e = e.Str(key, fmt.Sprint(v))
		}
	}
	e.Msg(msg)
}
