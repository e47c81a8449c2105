// Package broadcast fans a stored post out to users one at a time.
package broadcast

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-anime-bot/internal/domain"
	"tg-anime-bot/internal/infra/metrics"
)

// Sender delivers one post to one chat.
type Sender interface {
	SendPost(ctx context.Context, chatID int64, post domain.Post) error
}

// Service runs broadcasts. Delivery is sequential with a fixed delay between
// sends to stay under the Telegram rate limit. A failed recipient is counted
// and skipped, it never aborts the run.
type Service struct {
	users  domain.UserRepo
	sender Sender
	delay  time.Duration
	log    zerolog.Logger
}

// NewService creates the service.
func NewService(users domain.UserRepo, sender Sender, delay time.Duration, log zerolog.Logger) *Service {
	if delay <= 0 {
		delay = 35 * time.Millisecond
	}
	return &Service{users: users, sender: sender, delay: delay, log: log}
}

// SendToAll delivers the post to every known non-bot user.
func (s *Service) SendToAll(ctx context.Context, post domain.Post) (domain.BroadcastReport, error) {
	ids, err := s.users.ListUserIDs(ctx, false)
	if err != nil {
		return domain.BroadcastReport{}, err
	}
	return s.SendTo(ctx, ids, post), nil
}

// SendTo delivers the post to the given chats and reports the outcome.
// Cancelling the context stops the run early, the report covers what was
// attempted until then.
func (s *Service) SendTo(ctx context.Context, chatIDs []int64, post domain.Post) domain.BroadcastReport {
	report := domain.BroadcastReport{
		RunID: uuid.NewString(),
		Total: len(chatIDs),
	}
	log := s.log.With().Str("run", report.RunID).Int("total", report.Total).Logger()
	log.Info().Msg("broadcast started")

	for i, chatID := range chatIDs {
		if ctx.Err() != nil {
			log.Warn().Int("sent", i).Msg("broadcast cancelled")
			break
		}
		if err := s.sender.SendPost(ctx, chatID, post); err != nil {
			report.Failed++
			metrics.BroadcastSent.WithLabelValues("error").Inc()
			log.Warn().Err(err).Int64("chat", chatID).Msg("broadcast delivery failed")
		} else {
			report.Success++
			metrics.BroadcastSent.WithLabelValues("ok").Inc()
		}
		if i < len(chatIDs)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(s.delay):
			}
		}
	}

	log.Info().Int("success", report.Success).Int("failed", report.Failed).Msg("broadcast finished")
	return report
}
