package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medisync/clinic-queue/internal/model"
	"github.com/medisync/clinic-queue/internal/repository"
	"github.com/medisync/clinic-queue/pkg/messaging"
)

// Channel is the pub/sub channel queue events are published on. Display
// boards and SMS workers subscribe to it.
const Channel = "queue:events"

// Service records notifications durably and publishes them on the message
// broker. Delivery is best-effort end to end: a failed publish marks the
// record FAILED and returns the error, but the caller is expected to log
// and continue.
type Service struct {
	repo   repository.NotificationRepository
	broker messaging.Broker
	logger zerolog.Logger
}

func NewService(repo repository.NotificationRepository, broker messaging.Broker, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		broker: broker,
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

// BookingConfirmed tells a patient their token and starting position.
func (s *Service) BookingConfirmed(ctx context.Context, p *model.Patient, result *model.BookingResult) error {
	msg := fmt.Sprintf("Booking confirmed. Your token is %d, position %d in the queue.", result.Token, result.Position)
	return s.send(ctx, p.Token, model.NotificationTypeRankChange, msg, result)
}

// RankChanges fans out one notification per patient whose position moved.
func (s *Service) RankChanges(ctx context.Context, changes []model.RankChange) error {
	var firstErr error
	for _, c := range changes {
		var msg string
		if c.NewPosition < c.OldPosition {
			msg = fmt.Sprintf("Good news: you moved up from position %d to %d.", c.OldPosition, c.NewPosition)
		} else {
			msg = fmt.Sprintf("Queue update: your position changed from %d to %d.", c.OldPosition, c.NewPosition)
		}
		if err := s.send(ctx, c.Token, model.NotificationTypeRankChange, msg, c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NextPatient calls up the patient at the head of the queue.
func (s *Service) NextPatient(ctx context.Context, token int) error {
	msg := fmt.Sprintf("Token %d, please proceed to the consultation room.", token)
	return s.send(ctx, token, model.NotificationTypeCallUp, msg, map[string]int{"token": token})
}

// LongWait apologizes to a patient who has waited past the acceptable bound.
func (s *Service) LongWait(ctx context.Context, token int, waitingMins float64) error {
	msg := fmt.Sprintf("We are sorry for the wait (%.0f minutes). You have been moved up in priority.", waitingMins)
	return s.send(ctx, token, model.NotificationTypeLongWait, msg, map[string]any{
		"token":        token,
		"waiting_mins": waitingMins,
	})
}

// ETAUpdated shares a refreshed appointment forecast.
func (s *Service) ETAUpdated(ctx context.Context, token int, summary *model.ETASummary) error {
	msg := fmt.Sprintf("Updated estimate: your consultation should start around %s. Leave by %s.",
		summary.AppointmentAt.Format("15:04"), summary.DepartBy.Format("15:04"))
	return s.send(ctx, token, model.NotificationTypeETAUpdate, msg, summary)
}

func (s *Service) send(ctx context.Context, token int, kind, message string, payload any) error {
	n := &model.Notification{
		ID:        uuid.New(),
		Token:     token,
		Type:      kind,
		Message:   message,
		Status:    model.NotificationStatusPending,
		CreatedAt: time.Now(),
	}
	if s.repo != nil {
		if err := s.repo.Create(ctx, n); err != nil {
			s.logger.Warn().Err(err).Int("token", token).Str("type", kind).Msg("failed to record notification")
		}
	}

	if s.broker == nil {
		return nil
	}
	envelope := messaging.Message{
		Type: kind,
		Payload: map[string]any{
			"token":   token,
			"message": message,
			"data":    payload,
		},
	}
	if err := s.broker.Publish(ctx, Channel, envelope); err != nil {
		s.setStatus(ctx, n, model.NotificationStatusFailed)
		return fmt.Errorf("publish %s for token %d: %w", kind, token, err)
	}
	s.setStatus(ctx, n, model.NotificationStatusSent)
	return nil
}

func (s *Service) setStatus(ctx context.Context, n *model.Notification, status string) {
	if s.repo == nil {
		return
	}
	if err := s.repo.UpdateStatus(ctx, n.ID.String(), status); err != nil {
		s.logger.Warn().Err(err).Str("id", n.ID.String()).Msg("failed to update notification status")
	}
}
