package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"tg-anime-bot/internal/domain"
)

func TestCommandExecutorCapturesReply(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Command{
		Name: "greet",
		Handle: func(c *Context) error {
			return c.Reply("hello " + strings.Join(c.Args, " "))
		},
	})
	e := NewCommandExecutor(reg, 42, zerolog.Nop())

	out, err := e.Execute(context.Background(), domain.CronJob{
		Name:   "daily greet",
		Action: domain.CronAction{Command: "/greet from cron"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "hello from cron" {
		t.Fatalf("output = %q", out)
	}
}

func TestCommandExecutorRunsAsOwner(t *testing.T) {
	reg := NewRegistry()
	var got int64
	reg.Register(&Command{
		Name: "whoami",
		Handle: func(c *Context) error {
			got = c.User.UserID
			return nil
		},
	})
	e := NewCommandExecutor(reg, 42, zerolog.Nop())

	if _, err := e.Execute(context.Background(), domain.CronJob{
		Action: domain.CronAction{Command: "whoami"},
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != 42 {
		t.Fatalf("ran as %d, want owner", got)
	}
}

func TestCommandExecutorRejectsUnknownCommand(t *testing.T) {
	e := NewCommandExecutor(NewRegistry(), 42, zerolog.Nop())

	if _, err := e.Execute(context.Background(), domain.CronJob{
		Name:   "broken",
		Action: domain.CronAction{Command: "/nope"},
	}); err == nil {
		t.Fatal("want error for unknown command")
	}
	if _, err := e.Execute(context.Background(), domain.CronJob{Name: "empty"}); err == nil {
		t.Fatal("want error for empty command")
	}
}
