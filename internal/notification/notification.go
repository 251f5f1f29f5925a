// Package notification hands crew notifications to delivery. Delivery never
// fails the caller: errors are logged and counted here.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Shivanand-hulikatti/crew-planner/internal/metrics"
	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

// TypeDeliver is the asynq task type carrying one notification.
const TypeDeliver = "notification:deliver"

// Queue is the asynq queue notifications are enqueued on.
const Queue = "notifications"

const maxRetry = 5

// LogNotifier writes notifications to the log. It is used when no queue is
// configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg model.Notification) {
	n.logger.InfoContext(ctx, "notification",
		"kind", msg.Kind,
		"recipient", msg.Recipient,
		"event_key", msg.EventKey,
		"registration_key", msg.RegistrationKey,
	)
}

// Enqueuer is the part of *asynq.Client the QueueNotifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier enqueues notifications for asynchronous delivery.
type QueueNotifier struct {
	queue   Enqueuer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewQueueNotifier(queue Enqueuer, logger *slog.Logger, m *metrics.Metrics) *QueueNotifier {
	return &QueueNotifier{queue: queue, logger: logger, metrics: m}
}

func (n *QueueNotifier) Notify(ctx context.Context, msg model.Notification) {
	task, err := NewDeliverTask(msg)
	if err == nil {
		_, err = n.queue.EnqueueContext(ctx, task, asynq.Queue(Queue), asynq.MaxRetry(maxRetry))
	}
	if err != nil {
		n.metrics.IncNotification(string(msg.Kind), "failed")
		n.logger.ErrorContext(ctx, "failed to enqueue notification",
			"kind", msg.Kind,
			"recipient", msg.Recipient,
			"event_key", msg.EventKey,
			"error", err,
		)
		return
	}
	n.metrics.IncNotification(string(msg.Kind), "queued")
}

// NewDeliverTask encodes a notification as an asynq task.
func NewDeliverTask(msg model.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	return asynq.NewTask(TypeDeliver, payload), nil
}

// Sender delivers a notification to its recipient.
type Sender interface {
	Send(ctx context.Context, msg model.Notification) error
}

// LogSender stands in for mail delivery and logs what would be sent.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg model.Notification) error {
	s.logger.InfoContext(ctx, "delivering notification",
		"kind", msg.Kind,
		"recipient", msg.Recipient,
		"event_key", msg.EventKey,
		"event_name", msg.EventName,
	)
	return nil
}

// TaskHandler consumes TypeDeliver tasks.
type TaskHandler struct {
	sender  Sender
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewTaskHandler(sender Sender, logger *slog.Logger, m *metrics.Metrics) *TaskHandler {
	return &TaskHandler{sender: sender, logger: logger, metrics: m}
}

// ProcessTask implements asynq.Handler. Malformed payloads are skipped
// rather than retried.
func (h *TaskHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var msg model.Notification
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		h.logger.ErrorContext(ctx, "dropping malformed notification task", "error", err)
		return fmt.Errorf("decode notification: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		h.metrics.IncNotification(string(msg.Kind), "delivery_failed")
		h.logger.WarnContext(ctx, "notification delivery failed",
			"kind", msg.Kind,
			"recipient", msg.Recipient,
			"error", err,
		)
		return fmt.Errorf("deliver notification: %w", err)
	}
	h.metrics.IncNotification(string(msg.Kind), "delivered")
	return nil
}

// NewServeMux routes delivery tasks to h.
func NewServeMux(h *TaskHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeDeliver, h)
	return mux
}
