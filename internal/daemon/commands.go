package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harun/pagebot/internal/discord"
	"github.com/harun/pagebot/internal/tracing"
	"github.com/harun/pagebot/pkg/catalog"
	"github.com/harun/pagebot/pkg/channels"
	"github.com/harun/pagebot/pkg/paginator"
)

const confirmTimeout = 30 * time.Second

func (r *Router) registerBuiltins() {
	r.Register(Command{
		Name:        "help",
		Usage:       "help",
		Description: "Show the available commands",
		Run:         r.runHelp,
	})
	r.Register(Command{
		Name:        "list",
		Usage:       "list <item>, <item>, ...",
		Description: "Paginate a comma separated list",
		Run:         r.runList,
	})
	r.Register(Command{
		Name:        "characters",
		Usage:       "characters [world]",
		Description: "Browse characters, filterable by vocation",
		Run:         r.runCharacters,
	})
	r.Register(Command{
		Name:        "worlds",
		Usage:       "worlds",
		Description: "List the worlds in the character catalog",
		Run:         r.runWorlds,
	})
	r.Register(Command{
		Name:        "reload",
		Usage:       "reload",
		Description: "Reload the character catalog",
		Run:         r.runReload,
	})
	r.Register(Command{
		Name:        "cancel",
		Usage:       "cancel",
		Description: "End your open listing or prompt (any new command does too)",
		Run:         r.runCancel,
	})
}

// sessionOptions applies the configured pagination defaults
func (r *Router) sessionOptions(ctx context.Context, title string) paginator.Options {
	cfg := r.daemon.config.Pagination
	logger := tracing.LoggerFromContext(ctx, r.daemon.logger.GetZerolog())

	return paginator.Options{
		PerPage:      cfg.PerPage,
		Numerate:     cfg.Numerate,
		Title:        title,
		Color:        cfg.Color,
		Timeout:      cfg.Timeout(),
		JumpControls: cfg.JumpControls,
		Logger:       &logger,
	}
}

func (r *Router) runHelp(ctx context.Context, inv channels.Invocation) error {
	prefix := "/"
	if inv.Platform == discord.Name {
		prefix = r.daemon.config.Discord.Prefix
	}

	var entries []string
	for _, c := range r.Commands() {
		entries = append(entries, fmt.Sprintf("%s%s - %s", prefix, c.Usage, c.Description))
	}

	opts := r.sessionOptions(ctx, "Commands")
	opts.Numerate = false
	s, err := paginator.New(ctx, inv.Transport, inv.Seed(), entries, opts)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// splitList splits comma separated items, dropping blanks
func splitList(args string) []string {
	var items []string
	for _, part := range strings.Split(args, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (r *Router) runList(ctx context.Context, inv channels.Invocation) error {
	items := splitList(inv.Args)
	if len(items) == 0 {
		r.reply(ctx, inv, "Usage: list <item>, <item>, ...")
		return nil
	}

	s, err := paginator.New(ctx, inv.Transport, inv.Seed(), items, r.sessionOptions(ctx, "List"))
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

func (r *Router) runCharacters(ctx context.Context, inv channels.Invocation) error {
	store := r.daemon.catalog
	if store == nil {
		r.reply(ctx, inv, "No character catalog is configured.")
		return nil
	}

	world := strings.TrimSpace(inv.Args)
	chars := store.Query(catalog.Query{World: world})
	if len(chars) == 0 {
		if world != "" {
			r.reply(ctx, inv, fmt.Sprintf("No characters found in %s.", world))
		} else {
			r.reply(ctx, inv, "The character catalog is empty.")
		}
		return nil
	}

	title := "Characters"
	if world != "" {
		title = "Characters in " + chars[0].World
	}

	entries, tags := catalog.Entries(chars)
	s, err := paginator.NewFiltered(ctx, inv.Transport, inv.Seed(), entries, tags, paginator.Vocations, r.sessionOptions(ctx, title))
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

func (r *Router) runWorlds(ctx context.Context, inv channels.Invocation) error {
	store := r.daemon.catalog
	if store == nil {
		r.reply(ctx, inv, "No character catalog is configured.")
		return nil
	}

	worlds := catalog.Worlds(store.Characters())
	if len(worlds) == 0 {
		r.reply(ctx, inv, "The character catalog is empty.")
		return nil
	}

	s, err := paginator.New(ctx, inv.Transport, inv.Seed(), worlds, r.sessionOptions(ctx, "Worlds"))
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// runReload asks the author to confirm, then reloads the catalog
func (r *Router) runReload(ctx context.Context, inv channels.Invocation) error {
	store := r.daemon.catalog
	if store == nil {
		r.reply(ctx, inv, "No character catalog is configured.")
		return nil
	}

	prompt, err := inv.Transport.SendMessage(ctx, inv.ChannelID, paginator.Payload{
		Description: fmt.Sprintf("Reload the character catalog from %s?", store.Source().Path()),
		Color:       r.daemon.config.Pagination.Color,
	})
	if err != nil {
		return err
	}

	ok, err := paginator.Confirm(ctx, inv.Transport, inv.Seed(), prompt, paginator.ConfirmOptions{
		Timeout:     confirmTimeout,
		DeleteAfter: true,
	})
	if errors.Is(err, paginator.ErrNoAnswer) || (err == nil && !ok) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.daemon.reloadCatalog(ctx); err != nil {
		r.reply(ctx, inv, "Reload failed, the previous catalog is still in use.")
		return err
	}
	r.reply(ctx, inv, fmt.Sprintf("Catalog reloaded: %d characters.", store.Len()))
	return nil
}

// runCancel has nothing to do itself. Dispatch preempts the author's lane, so
// by the time it runs the previous session is gone.
func (r *Router) runCancel(context.Context, channels.Invocation) error {
	return nil
}
