package cron

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dop251/goja"

	"tg-anime-bot/internal/domain"
)

// scriptTimeout caps one script run. Scripts are admin-authored, the limit
// guards against accidental infinite loops, not hostile code.
const scriptTimeout = 10 * time.Second

// maxScriptBodyBytes bounds response bodies read by the http bindings.
const maxScriptBodyBytes = 1 << 20

// ErrScriptTimeout reports that the script was interrupted at the limit.
var ErrScriptTimeout = errors.New("script timed out")

// ScriptExecutor runs the script body of a job in an embedded JS interpreter.
// Besides the interpreter's built-ins the sandbox gets console.log / log,
// and whichever of the optional bindings below are configured.
type ScriptExecutor struct {
	timeout time.Duration

	// HTTP backs the script's http.get and http.post. Nil leaves http unbound.
	HTTP *http.Client
	// Users backs bot.usersCount(). Nil leaves bot unbound.
	Users domain.UserRepo
	// Env is a read-only key set exposed as the env object.
	Env map[string]string
}

// NewScriptExecutor creates the executor with no optional bindings.
func NewScriptExecutor() *ScriptExecutor {
	return &ScriptExecutor{timeout: scriptTimeout}
}

// Execute runs job.Action.Code and returns the captured console output
// followed by the script's final value.
func (e *ScriptExecutor) Execute(ctx context.Context, job domain.CronJob) (string, error) {
	vm := goja.New()

	var out strings.Builder
	if err := e.bind(ctx, vm, &out); err != nil {
		return "", fmt.Errorf("set up sandbox: %w", err)
	}

	timer := time.AfterFunc(e.timeout, func() { vm.Interrupt(ErrScriptTimeout) })
	defer timer.Stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	value, err := vm.RunString(job.Action.Code)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause, ok := interrupted.Value().(error); ok {
				return out.String(), cause
			}
			return out.String(), ErrScriptTimeout
		}
		return out.String(), fmt.Errorf("script error: %w", err)
	}

	if value != nil && !goja.IsUndefined(value) && !goja.IsNull(value) {
		out.WriteString(value.String())
	}
	return strings.TrimRight(out.String(), "\n"), nil
}

func (e *ScriptExecutor) bind(ctx context.Context, vm *goja.Runtime, out *strings.Builder) error {
	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}
		out.WriteString(strings.Join(parts, " "))
		out.WriteByte('\n')
		return goja.Undefined()
	}
	console := vm.NewObject()
	if err := console.Set("log", logFn); err != nil {
		return err
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}
	if err := vm.Set("log", logFn); err != nil {
		return err
	}

	if e.HTTP != nil {
		httpObj := vm.NewObject()
		if err := httpObj.Set("get", func(call goja.FunctionCall) goja.Value {
			return e.fetch(ctx, vm, http.MethodGet, call.Argument(0).String(), "")
		}); err != nil {
			return err
		}
		if err := httpObj.Set("post", func(call goja.FunctionCall) goja.Value {
			return e.fetch(ctx, vm, http.MethodPost, call.Argument(0).String(), call.Argument(1).String())
		}); err != nil {
			return err
		}
		if err := vm.Set("http", httpObj); err != nil {
			return err
		}
	}

	if e.Users != nil {
		botObj := vm.NewObject()
		if err := botObj.Set("usersCount", func(goja.FunctionCall) goja.Value {
			ids, err := e.Users.ListUserIDs(ctx, false)
			if err != nil {
				panic(vm.NewGoError(err))
			}
			return vm.ToValue(len(ids))
		}); err != nil {
			return err
		}
		if err := vm.Set("bot", botObj); err != nil {
			return err
		}
	}

	if len(e.Env) > 0 {
		envObj := vm.NewObject()
		for key, val := range e.Env {
			if err := envObj.Set(key, val); err != nil {
				return err
			}
		}
		if err := vm.Set("env", envObj); err != nil {
			return err
		}
	}
	return nil
}

// fetch performs one bounded request for the http bindings. Failures surface
// as catchable JS errors.
func (e *ScriptExecutor) fetch(ctx context.Context, vm *goja.Runtime, method, url, body string) goja.Value {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		panic(vm.NewGoError(err))
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.HTTP.Do(req)
	if err != nil {
		panic(vm.NewGoError(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBodyBytes))
	if err != nil {
		panic(vm.NewGoError(err))
	}

	result := vm.NewObject()
	result.Set("status", resp.StatusCode)
	result.Set("body", string(data))
	return result
}
