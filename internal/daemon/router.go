package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/pagebot/internal/observability"
	"github.com/harun/pagebot/internal/tracing"
	"github.com/harun/pagebot/pkg/channels"
	"github.com/harun/pagebot/pkg/commandqueue"
	"github.com/harun/pagebot/pkg/paginator"
	"go.opentelemetry.io/otel/attribute"
)

// CommandFunc runs one command invocation
type CommandFunc func(ctx context.Context, inv channels.Invocation) error

// Command is a chat command
type Command struct {
	Name        string
	Usage       string
	Description string
	Run         CommandFunc
}

// Router routes invocations from every channel into the command queue
type Router struct {
	daemon *Daemon

	mu       sync.RWMutex
	commands map[string]Command
	order    []string
}

// NewRouter creates a router with the built-in commands registered
func NewRouter(d *Daemon) *Router {
	r := &Router{
		daemon:   d,
		commands: make(map[string]Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds or replaces a command
func (r *Router) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.Name]; !exists {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
}

// Commands returns the registered commands in registration order
func (r *Router) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

func (r *Router) lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Dispatch queues an invocation on its author's lane and returns at once.
// Unknown commands are ignored. A redelivered message is dropped.
func (r *Router) Dispatch(ctx context.Context, inv channels.Invocation) error {
	logger := tracing.LoggerFromContext(ctx, r.daemon.logger.GetZerolog())

	cmd, ok := r.lookup(inv.Command)
	if !ok {
		logger.Debug().Str("command", inv.Command).Msg("Ignoring unknown command")
		return nil
	}

	lane := commandqueue.LaneFor(inv.Platform, inv.ChannelID, inv.AuthorID)
	ctx = tracing.WithSessionKey(ctx, lane)

	err := r.daemon.queue.Submit(ctx, commandqueue.Job{
		Lane:      lane,
		RequestID: inv.Platform + ":" + inv.ChannelID + ":" + inv.MessageID,
		Preempt:   true,
		Run: func(taskCtx context.Context) error {
			return r.execute(taskCtx, cmd, inv)
		},
		WarnAfter: 2 * time.Second,
		OnWait: func(wait time.Duration, queuePos int) {
			logger.Info().
				Str("lane", lane).
				Dur("wait", wait).
				Int("position", queuePos).
				Msg("Command waiting for a running session to finish")
		},
	})
	if errors.Is(err, commandqueue.ErrDuplicate) {
		logger.Debug().Str("message_id", inv.MessageID).Msg("Dropping duplicate command")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to queue command %s: %w", inv.Command, err)
	}
	return nil
}

// execute runs a command with tracing, metrics and audit
func (r *Router) execute(ctx context.Context, cmd Command, inv channels.Invocation) error {
	logger := tracing.LoggerFromContext(ctx, r.daemon.logger.GetZerolog())
	started := time.Now()

	ctx, span := tracing.StartSpan(ctx, "pagebot.daemon", "command."+cmd.Name,
		attribute.String("platform", inv.Platform),
		attribute.String("channel_id", inv.ChannelID),
	)

	err := cmd.Run(ctx, inv)

	var capErr *paginator.CapabilityError
	if errors.As(err, &capErr) {
		r.reply(ctx, inv, fmt.Sprintf("I can't paginate here: missing %s.", joinMissing(capErr.Missing)))
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	tracing.EndSpan(span, err)
	observability.RecordCommand(inv.Platform, cmd.Name, err == nil)
	observability.RecordCommandAudit(ctx, inv.Platform, cmd.Name, inv.AuthorID, status, map[string]interface{}{
		"channel_id":  inv.ChannelID,
		"message_id":  inv.MessageID,
		"args":        inv.Args,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	event := logger.Info()
	if err != nil {
		event = logger.Warn().Err(err)
	}
	event.
		Str("command", cmd.Name).
		Dur("duration", time.Since(started)).
		Msg("Command finished")

	return err
}

// reply sends a plain notice. Failures are logged only.
func (r *Router) reply(ctx context.Context, inv channels.Invocation, text string) {
	_, err := inv.Transport.SendMessage(ctx, inv.ChannelID, paginator.Payload{
		Description: text,
		Color:       r.daemon.config.Pagination.Color,
	})
	if err != nil {
		logger := tracing.LoggerFromContext(ctx, r.daemon.logger.GetZerolog())
		logger.Debug().Err(err).Msg("Failed to send reply")
	}
}

func joinMissing(missing []string) string {
	switch len(missing) {
	case 0:
		return "permissions"
	case 1:
		return missing[0]
	}
	out := ""
	for i, m := range missing {
		switch {
		case i == 0:
			out = m
		case i == len(missing)-1:
			out += " and " + m
		default:
			out += ", " + m
		}
	}
	return out
}
