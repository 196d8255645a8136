package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ars-tn/claims-flow-api/internal/models"
)

// NotificationEvent describes a workflow occurrence pushed to the
// notification collaborator.
type NotificationEvent struct {
	Kind        string                 `json:"kind"`
	BordereauID string                 `json:"bordereau_id,omitempty"`
	HandlerID   string                 `json:"handler_id,omitempty"`
	Event       models.LifecycleEvent  `json:"event,omitempty"`
	FromStatut  models.BordereauStatut `json:"from_statut,omitempty"`
	ToStatut    models.BordereauStatut `json:"to_statut,omitempty"`
	Status      models.LoadStatus      `json:"status,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// Notification kinds.
const (
	NotifyTransition = "TRANSITION"
	NotifyAssignment = "ASSIGNMENT"
	NotifyOverload   = "OVERLOAD"
)

// Notifier is the notification collaborator contract. Delivery is best
// effort; a failed notification must never fail the core operation.
type Notifier interface {
	Notify(ctx context.Context, event NotificationEvent) error
}

// LogNotifier is the default Notifier: it records events on the
// structured log. Real delivery channels plug in behind the same
// interface.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a logging notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, event NotificationEvent) error {
	n.logger.Info("workflow_notification",
		zap.String("kind", event.Kind),
		zap.String("bordereau_id", event.BordereauID),
		zap.String("handler_id", event.HandlerID),
		zap.String("event", string(event.Event)),
		zap.String("from", string(event.FromStatut)),
		zap.String("to", string(event.ToStatut)),
		zap.String("reason", event.Reason),
	)
	return nil
}

// dispatchNotification fires the notifier on a detached context so slow
// or failing delivery never blocks nor fails the caller.
func dispatchNotification(notifier Notifier, logger *zap.Logger, event NotificationEvent) {
	if notifier == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := notifier.Notify(ctx, event); err != nil && logger != nil {
			logger.Warn("notification delivery failed",
				zap.String("kind", event.Kind),
				zap.String("bordereau_id", event.BordereauID),
				zap.Error(err),
			)
		}
	}()
}
