package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-anime-bot/internal/domain"
)

// CommandExecutor runs a registered bot command on behalf of a scheduled job.
// Replies are captured instead of sent so the scheduler can broadcast them.
type CommandExecutor struct {
	reg     *Registry
	ownerID int64
	log     zerolog.Logger
}

// NewCommandExecutor creates the executor. Jobs run as the owner.
func NewCommandExecutor(reg *Registry, ownerID int64, log zerolog.Logger) *CommandExecutor {
	return &CommandExecutor{reg: reg, ownerID: ownerID, log: log}
}

// Execute parses the job's command line, runs the handler and returns the
// text the handler replied with.
func (e *CommandExecutor) Execute(ctx context.Context, job domain.CronJob) (string, error) {
	line := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(job.Action.Command), "/"))
	if line == "" {
		return "", fmt.Errorf("job %q has no command to run", job.Name)
	}
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	cmd := e.reg.Lookup(name)
	if cmd == nil || cmd.Handle == nil {
		return "", fmt.Errorf("job %q refers to unknown command %q", job.Name, name)
	}

	rec := &recordingAPI{}
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: e.ownerID},
		Chat: &tgbotapi.Chat{ID: e.ownerID},
		Text: "/" + line,
	}
	c := &Context{
		Ctx:     ctx,
		API:     rec,
		Update:  tgbotapi.Update{Message: msg},
		Message: msg,
		Args:    args,
		User:    domain.User{UserID: e.ownerID},
		Log:     e.log.With().Str("cron_job", job.Name).Logger(),
	}
	if err := cmd.Handle(c); err != nil {
		return "", fmt.Errorf("run %q: %w", name, err)
	}
	return rec.Text(), nil
}

// recordingAPI satisfies API and swallows outbound traffic, keeping the text
// of every sent message.
type recordingAPI struct {
	parts []string
}

func (r *recordingAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	switch msg := c.(type) {
	case tgbotapi.MessageConfig:
		r.parts = append(r.parts, msg.Text)
	case tgbotapi.PhotoConfig:
		if msg.Caption != "" {
			r.parts = append(r.parts, msg.Caption)
		}
	case tgbotapi.EditMessageTextConfig:
		r.parts = append(r.parts, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func (r *recordingAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (r *recordingAPI) SendMediaGroup(tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	return nil, nil
}

func (r *recordingAPI) Text() string {
	return strings.TrimSpace(strings.Join(r.parts, "\n"))
}
