package cli

import (
	"errors"
	"fmt"

	"github.com/harun/pagebot/internal/config"
	"github.com/harun/pagebot/internal/daemon"
	"github.com/harun/pagebot/internal/logger"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Pagebot daemon service",
	Long: `Start the Pagebot daemon service in the foreground.
The daemon connects the enabled chat channels and serves commands until
it receives SIGINT or SIGTERM.`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if errs := config.NewValidator().ValidateConfig(cfg); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	// Check if daemon is already running
	pidFile := daemon.PIDFile(cfg.DataDir)
	if isRunning(pidFile) {
		return fmt.Errorf("daemon is already running (PID file: %s)", pidFile)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pagebot %s started (channels: %v)\n", daemon.Version, d.Status().Channels)
	d.Wait()

	return nil
}

// newLogger builds the console and file logger described by cfg. The bot
// tokens are masked when redaction is on.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := cfg.Logging
	return logger.New(logger.Config{
		Level:     lc.Level,
		File:      lc.File,
		Console:   true,
		Pretty:    lc.Pretty,
		Redaction: lc.Redaction,
		MaxSize:   lc.MaxSize,
		MaxAge:    lc.MaxAge,
		Compress:  lc.Compress,
		Secrets:   []string{cfg.Telegram.BotToken, cfg.Discord.BotToken},
	})
}

func isRunning(pidFile string) bool {
	pid, err := daemon.ReadPID(pidFile)
	if err != nil {
		return false
	}
	return daemon.ProcessAlive(pid)
}
