package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-anime-bot/internal/domain"
	"tg-anime-bot/internal/infra/metrics"
)

// Dispatcher turns raw updates into command invocations. It upserts the
// sender, enforces owner-only commands and per-command cooldowns, records the
// invocation for analytics and recovers handler panics.
type Dispatcher struct {
	api      API
	registry *Registry
	users    domain.UserRepo
	logs     domain.CommandLogRepo
	cooldown domain.Cooldown
	ownerID  int64
	log      zerolog.Logger
}

// NewDispatcher wires the dispatcher.
func NewDispatcher(
	api API,
	registry *Registry,
	users domain.UserRepo,
	logs domain.CommandLogRepo,
	cooldown domain.Cooldown,
	ownerID int64,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		api:      api,
		registry: registry,
		users:    users,
		logs:     logs,
		cooldown: cooldown,
		ownerID:  ownerID,
		log:      log,
	}
}

// HandleUpdate processes one update. It never returns an error, failures are
// logged and reported to the user where possible.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		d.handleCallback(ctx, update)
	case update.Message != nil && update.Message.IsCommand():
		metrics.UpdatesTotal.WithLabelValues("command").Inc()
		d.handleCommand(ctx, update)
	case update.Message != nil:
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		d.handleMessage(ctx, update)
	case update.InlineQuery != nil:
		metrics.UpdatesTotal.WithLabelValues("inline").Inc()
		d.handleInline(ctx, update)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	name := strings.ToLower(msg.Command())
	log := d.log.With().Str("command", name).Int64("user", msg.From.ID).Logger()

	cmd := d.registry.Lookup(name)
	if cmd == nil || cmd.Handle == nil {
		return
	}

	c := &Context{
		Ctx:     ctx,
		API:     d.api,
		Update:  update,
		Message: msg,
		Args:    splitArgs(msg.CommandArguments()),
		Log:     log,
	}
	c.User = d.upsertSender(ctx, msg.From, log)

	if cmd.OwnerOnly && msg.From.ID != d.ownerID {
		log.Warn().Msg("owner-only command denied")
		return
	}

	if cmd.Cooldown > 0 && msg.From.ID != d.ownerID {
		key := fmt.Sprintf("%s:%d", cmd.Name, msg.From.ID)
		free, err := d.cooldown.Reserve(key, cmd.Cooldown)
		if err != nil {
			log.Error().Err(err).Msg("cooldown check failed")
		} else if !free {
			if err := c.Reply("Slow down! Try again in a bit."); err != nil {
				log.Warn().Err(err).Msg("cooldown notice failed")
			}
			return
		}
	}

	d.recordCommand(ctx, cmd.Name, msg.From.ID, log)
	metrics.CommandsTotal.WithLabelValues(cmd.Name).Inc()

	d.invoke(c, cmd.Name, func() error { return cmd.Handle(c) })
}

func (d *Dispatcher) handleCallback(ctx context.Context, update tgbotapi.Update) {
	cb := update.CallbackQuery
	log := d.log.With().Str("callback", cb.Data).Int64("user", cb.From.ID).Logger()

	c := &Context{
		Ctx:      ctx,
		API:      d.api,
		Update:   update,
		Callback: cb,
		Log:      log,
	}

	cmd, params := d.registry.LookupCallback(cb.Data)
	if cmd == nil {
		// stale keyboard from an older build, just stop the spinner
		c.AnswerCallback("")
		return
	}
	c.Args = params
	c.User = d.upsertSender(ctx, cb.From, log)

	if cmd.OwnerOnly && cb.From.ID != d.ownerID {
		c.AnswerCallback("Not allowed.")
		return
	}

	metrics.CommandsTotal.WithLabelValues(cmd.Name).Inc()
	d.invoke(c, cmd.Name, func() error { return cmd.HandleCallback(c) })
}

func (d *Dispatcher) handleMessage(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}
	log := d.log.With().Int64("user", msg.From.ID).Logger()

	c := &Context{
		Ctx:     ctx,
		API:     d.api,
		Update:  update,
		Message: msg,
		Log:     log,
	}
	c.User = d.upsertSender(ctx, msg.From, log)

	for _, cmd := range d.registry.MessageHooks() {
		handled := false
		d.invoke(c, cmd.Name, func() error {
			var err error
			handled, err = cmd.HandleMessage(c)
			return err
		})
		if handled {
			return
		}
	}
}

func (d *Dispatcher) handleInline(ctx context.Context, update tgbotapi.Update) {
	iq := update.InlineQuery
	log := d.log.With().Str("inline", iq.Query).Int64("user", iq.From.ID).Logger()

	c := &Context{
		Ctx:    ctx,
		API:    d.api,
		Update: update,
		Inline: iq,
		Log:    log,
	}
	c.User = d.upsertSender(ctx, iq.From, log)

	for _, cmd := range d.registry.InlineHooks() {
		handled := false
		d.invoke(c, cmd.Name, func() error {
			var err error
			handled, err = cmd.HandleInline(c)
			return err
		})
		if handled {
			return
		}
	}
}

// invoke runs the handler behind a recover so one broken command cannot take
// the polling loop down.
func (d *Dispatcher) invoke(c *Context, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerErrors.WithLabelValues(name).Inc()
			c.Log.Error().Interface("panic", r).Msg("handler panicked")
			d.reportFailure(c)
		}
	}()
	if err := fn(); err != nil {
		metrics.HandlerErrors.WithLabelValues(name).Inc()
		c.Log.Error().Err(err).Msg("handler failed")
		d.reportFailure(c)
	}
}

func (d *Dispatcher) reportFailure(c *Context) {
	if c.Callback != nil {
		c.AnswerCallback("Something went wrong, try again later.")
		return
	}
	if c.Message == nil {
		return
	}
	if err := c.Reply("Something went wrong, try again later."); err != nil {
		c.Log.Warn().Err(err).Msg("failure notice failed")
	}
}

func (d *Dispatcher) upsertSender(ctx context.Context, from *tgbotapi.User, log zerolog.Logger) domain.User {
	if from == nil {
		return domain.User{}
	}
	user, err := d.users.UpsertByID(ctx, domain.TelegramProfile{
		UserID:    from.ID,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Username:  from.UserName,
		IsBot:     from.IsBot,
	})
	if err != nil {
		log.Error().Err(err).Msg("upsert user")
		return domain.User{UserID: from.ID, FirstName: from.FirstName, Username: from.UserName}
	}
	return user
}

func (d *Dispatcher) recordCommand(ctx context.Context, name string, userID int64, log zerolog.Logger) {
	err := d.logs.Append(ctx, domain.CommandLog{
		CommandName: name,
		UserID:      userID,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("record command")
	}
}

func splitArgs(raw string) []string {
	if raw = strings.TrimSpace(raw); raw == "" {
		return nil
	}
	return strings.Fields(raw)
}
