package notify

import (
	"context"
	"log/slog"
	"time"
)

// Severity 是通知的严重级别。
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier 定义即发即忘的通知接口。
//
// 由渲染层消费，不期待任何确认；duration 是建议的展示时长。
type Notifier interface {
	Notify(ctx context.Context, message string, severity Severity, duration time.Duration)
}

// LogNotifier 把通知写入结构化日志（默认实现）。
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier 创建日志通知器。
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify 记录一条通知。
func (n *LogNotifier) Notify(ctx context.Context, message string, severity Severity, duration time.Duration) {
	if n == nil || n.logger == nil {
		return
	}
	n.logger.Info("notification",
		slog.String("message", message),
		slog.String("severity", string(severity)),
		slog.String("duration", duration.String()),
	)
}
