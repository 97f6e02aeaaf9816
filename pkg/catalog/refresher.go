package catalog

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Refresher reloads a store on a cron schedule, for catalogs on mounts
// where file notifications do not arrive.
type Refresher struct {
	store  *Store
	reload ReloadFunc
	cron   *cron.Cron
	expr   string
}

// NewRefresher parses expr (standard five fields or a descriptor such as
// "@every 10m") and prepares the schedule. A nil reload calls store.Reload.
func NewRefresher(store *Store, expr string, reload ReloadFunc) (*Refresher, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", expr, err)
	}

	if reload == nil {
		reload = store.Reload
	}
	r := &Refresher{
		store:  store,
		reload: reload,
		cron:   cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		expr:   expr,
	}
	r.cron.Schedule(schedule, cron.FuncJob(r.refresh))

	return r, nil
}

func (r *Refresher) refresh() {
	// Errors are logged and counted by Reload
	_ = r.reload(context.Background())
}

// Start runs the scheduler in the background
func (r *Refresher) Start() {
	r.cron.Start()
	r.store.logger.Info().Str("schedule", r.expr).Msg("Catalog refresh scheduled")
}

// Stop stops the scheduler and waits for a running reload
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
