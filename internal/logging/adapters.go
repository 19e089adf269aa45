package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// TaskLogger adapts the global logger to backlite's slog-style Logger.
// Params are alternating key/value pairs.
type TaskLogger struct{}

func (TaskLogger) Info(message string, params ...any) {
	l := Component("tasks")
	l.Info().Fields(params).Msg(message)
}

func (TaskLogger) Error(message string, params ...any) {
	l := Component("tasks")
	l.Error().Fields(params).Msg(message)
}

// WatermillLogger adapts a zerolog logger to watermill.LoggerAdapter.
type WatermillLogger struct {
	logger zerolog.Logger
}

// NewWatermillLogger returns an adapter writing through the "events" component logger.
func NewWatermillLogger() *WatermillLogger {
	return &WatermillLogger{logger: Component("events")}
}

func (w *WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.logger.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w *WatermillLogger) Info(msg string, fields watermill.LogFields) {
	w.logger.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

// Debug is demoted to trace: watermill is chatty at debug level.
func (w *WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w *WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w *WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillLogger{logger: w.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}
