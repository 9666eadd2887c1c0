package settlement

import (
	"go.uber.org/zap"
)

// Level classifies a notification.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a non-blocking message for the user about an attempt.
type Notification struct {
	Level     Level
	AttemptID string
	Operation Operation
	Title     string
	Message   string

	// Code is the error code of a failure.
	Code   string
	TxHash string
}

// Notifier delivers notifications. Notify must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *zap.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(n Notification) {
	if l.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("attempt", n.AttemptID),
		zap.String("operation", string(n.Operation)),
		zap.String("message", n.Message),
	}
	if n.Code != "" {
		fields = append(fields, zap.String("code", n.Code))
	}
	if n.TxHash != "" {
		fields = append(fields, zap.String("tx_hash", n.TxHash))
	}

	switch n.Level {
	case LevelError:
		l.Logger.Warn(n.Title, fields...)
	default:
		l.Logger.Info(n.Title, fields...)
	}
}
