package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/harun/pagebot/internal/config"
	"github.com/harun/pagebot/internal/discord"
	"github.com/harun/pagebot/internal/logger"
	"github.com/harun/pagebot/internal/observability"
	"github.com/harun/pagebot/internal/telegram"
	"github.com/harun/pagebot/internal/tracing"
	"github.com/harun/pagebot/pkg/catalog"
	"github.com/harun/pagebot/pkg/channels"
	"github.com/harun/pagebot/pkg/commandqueue"
	"github.com/rs/zerolog"
)

const (
	serviceName = "pagebot"

	// catalogLane serializes catalog reloads from every source
	catalogLane = "catalog"
)

// Version is the build version reported by the CLI and traces
var Version = "0.1.0"

// Daemon represents the pagebot service
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	// Core modules
	queue     *commandqueue.Queue
	catalog   *catalog.Store
	watcher   *catalog.Watcher
	refresher *catalog.Refresher

	// Services
	router          *Router
	channelRegistry *channels.Registry
	metricsServer   *MetricsServer

	// Internal
	eventLoop *EventLoop
	lifecycle *LifecycleManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// Status is a snapshot of the daemon state
type Status struct {
	Running    bool
	StartTime  time.Time
	Uptime     time.Duration
	Channels   []string
	Characters int
	Lanes      int
}

var newTelegramChannel = func(cfg *config.TelegramConfig, log *logger.Logger) (channels.Channel, error) {
	return telegram.New(cfg, log)
}

var newDiscordChannel = func(cfg *config.DiscordConfig, log *logger.Logger) (channels.Channel, error) {
	return discord.New(cfg, log)
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	observability.EnsureRegistered()

	d := &Daemon{
		config: cfg,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(serviceName, Version, cfg.Tracing.Endpoint); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
		} else {
			d.tracingEnabled = true
			log.Info().Str("endpoint", cfg.Tracing.Endpoint).Msg("Tracing initialized successfully")
		}
	}

	// Initialize core modules in dependency order
	if err := d.initializeCoreModules(); err != nil {
		d.abort()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	// Initialize services
	if err := d.initializeServices(); err != nil {
		d.abort()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	d.eventLoop = NewEventLoop(d)
	d.eventLoop.Attach()
	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// reloadCatalog runs a catalog reload on its own lane and waits for it. The
// lane runs one reload at a time, so an older read never replaces a newer one.
func (d *Daemon) reloadCatalog(ctx context.Context) error {
	return d.queue.Enqueue(ctx, commandqueue.Job{
		Lane: catalogLane,
		Run:  d.catalog.Reload,
	})
}

// abort releases what New acquired before failing
func (d *Daemon) abort() {
	d.cancel()
	if d.queue != nil {
		_ = d.queue.Close()
	}
	if d.watcher != nil {
		_ = d.watcher.Stop()
	}
	if d.tracingEnabled {
		_ = tracing.ShutdownOpenTelemetry(context.Background())
		d.tracingEnabled = false
	}
}

// initializeCoreModules initializes the queue, audit log and catalog
func (d *Daemon) initializeCoreModules() error {
	zl := d.logger.Component("commandqueue")
	d.queue = commandqueue.New(commandqueue.Options{
		Concurrency: d.config.Queue.MaxConcurrent,
		DedupeTTL:   time.Duration(d.config.Queue.DedupeTTLSeconds) * time.Second,
		Logger:      &zl,
	})
	d.queue.SetConcurrency(catalogLane, 1)
	d.logger.Info().Int("max_concurrent", d.config.Queue.MaxConcurrent).Msg("Command queue initialized")

	auditPath := filepath.Join(d.config.DataDir, "audit.log")
	if err := observability.InitAuditLogger(auditPath); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to initialize audit logger, using default stderr")
	} else {
		d.logger.Info().Str("path", auditPath).Msg("Audit logger initialized")
	}

	if d.config.Catalog.Path == "" {
		d.logger.Info().Msg("No character catalog configured")
		return nil
	}

	src, err := catalog.Open(d.config.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	cl := d.logger.GetZerolog()
	d.catalog = catalog.NewStore(src, &cl)

	if d.config.Catalog.Watch {
		w, err := catalog.NewWatcher(d.catalog, catalog.WatcherConfig{Reload: d.reloadCatalog})
		if err != nil {
			return fmt.Errorf("failed to create catalog watcher: %w", err)
		}
		d.watcher = w
	}

	if d.config.Catalog.RefreshSchedule != "" {
		r, err := catalog.NewRefresher(d.catalog, d.config.Catalog.RefreshSchedule, d.reloadCatalog)
		if err != nil {
			return err
		}
		d.refresher = r
	}

	d.logger.Info().
		Str("path", d.config.Catalog.Path).
		Bool("watch", d.watcher != nil).
		Str("refresh_schedule", d.config.Catalog.RefreshSchedule).
		Msg("Character catalog initialized")

	return nil
}

// initializeServices builds the command router, chat channels and metrics server
func (d *Daemon) initializeServices() error {
	d.router = NewRouter(d)
	d.channelRegistry = channels.NewRegistry(d.router.Dispatch)

	if d.config.Channels.Telegram.Enabled {
		ch, err := newTelegramChannel(&d.config.Telegram, d.logger)
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}
		if err := d.channelRegistry.Register(ch); err != nil {
			return err
		}
	}

	if d.config.Channels.Discord.Enabled {
		ch, err := newDiscordChannel(&d.config.Discord, d.logger)
		if err != nil {
			return fmt.Errorf("failed to create discord bot: %w", err)
		}
		if err := d.channelRegistry.Register(ch); err != nil {
			return err
		}
	}

	if d.config.Metrics.Enabled {
		d.metricsServer = NewMetricsServer(d.config.Metrics.Addr, d)
	}

	return nil
}

// RegisterChannel adds a chat channel before Start
func (d *Daemon) RegisterChannel(ch channels.Channel) error {
	return d.channelRegistry.Register(ch)
}

// commandMenu is implemented by channels that publish a command list to clients
type commandMenu interface {
	SetCommands(commands []telegram.CommandInfo) error
}

// Start starts the daemon. A failed start releases what it acquired.
func (d *Daemon) Start() (err error) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	defer func() {
		if err != nil {
			d.rollbackStart()
		}
	}()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Starting pagebot daemon")

	if err := d.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if d.catalog != nil {
		// A broken catalog file is not fatal; commands report an empty catalog
		if err := d.reloadCatalog(d.ctx); err != nil {
			logger.Warn().Err(err).Msg("Initial catalog load failed")
		}
		if d.watcher != nil {
			if err := d.watcher.Start(); err != nil {
				logger.Warn().Err(err).Msg("Failed to start catalog watcher")
			}
		}
		if d.refresher != nil {
			d.refresher.Start()
		}
	}

	if d.metricsServer != nil {
		if err := d.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		logger.Info().Str("addr", d.metricsServer.Addr()).Msg("Metrics server started")
	}

	if err := d.channelRegistry.StartAll(d.ctx); err != nil {
		return fmt.Errorf("failed to start channels: %w", err)
	}
	logger.Info().Strs("channels", d.channelRegistry.Names()).Msg("Channels started")

	d.publishCommandMenus(logger)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.eventLoop.Run(d.ctx)
	}()

	logger.Info().Msg("Daemon started successfully")

	return nil
}

// rollbackStart undoes a partial Start
func (d *Daemon) rollbackStart() {
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = d.channelRegistry.StopAll(stopCtx)

	if d.metricsServer != nil {
		_ = d.metricsServer.Stop()
	}
	if d.refresher != nil {
		d.refresher.Stop()
	}
	if d.watcher != nil {
		_ = d.watcher.Stop()
	}
	_ = d.lifecycle.Stop()

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

func (d *Daemon) publishCommandMenus(logger zerolog.Logger) {
	var infos []telegram.CommandInfo
	for _, c := range d.router.Commands() {
		infos = append(infos, telegram.CommandInfo{Name: c.Name, Description: c.Description})
	}

	for _, name := range d.channelRegistry.Names() {
		ch, ok := d.channelRegistry.Get(name)
		if !ok {
			continue
		}
		if menu, ok := ch.(commandMenu); ok {
			if err := menu.SetCommands(infos); err != nil {
				logger.Warn().Err(err).Str("channel", name).Msg("Failed to publish command menu")
			}
		}
	}
}

// Stop stops the daemon. Running sessions are canceled and clean up their
// reactions before the channels close.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Stopping pagebot daemon")

	// Cancel sessions first so they can still reach the platforms
	d.eventLoop.HandleShutdown()
	if err := d.queue.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close command queue")
	}
	d.eventLoop.Detach()
	logger.Info().Msg("Command queue stopped")

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	if err := d.channelRegistry.StopAll(stopCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to stop channels")
	}
	cancelStop()

	if d.refresher != nil {
		d.refresher.Stop()
	}
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop catalog watcher")
		}
	}

	if d.metricsServer != nil {
		if err := d.metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop metrics server")
		}
	}

	d.cancel()

	// Wait for goroutines to finish (with timeout)
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All goroutines stopped")
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	if d.tracingEnabled {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracing.ShutdownOpenTelemetry(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown tracing")
		}
		cancel()
		d.tracingEnabled = false
	}

	if err := observability.GetAuditLogger().Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close audit logger")
	}

	logger.Info().Msg("Daemon stopped successfully")

	return nil
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running:  d.running,
		Channels: d.channelRegistry.Names(),
		Lanes:    len(d.queue.Stats()),
	}
	if d.catalog != nil {
		status.Characters = d.catalog.Len()
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Wait blocks until SIGINT or SIGTERM, then stops the daemon
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetQueue returns the command queue
func (d *Daemon) GetQueue() *commandqueue.Queue {
	return d.queue
}

// GetCatalog returns the character store, nil when no catalog is configured
func (d *Daemon) GetCatalog() *catalog.Store {
	return d.catalog
}

// GetRouter returns the command router
func (d *Daemon) GetRouter() *Router {
	return d.router
}

// GetChannelRegistry returns the channel registry
func (d *Daemon) GetChannelRegistry() *channels.Registry {
	return d.channelRegistry
}
