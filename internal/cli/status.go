package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/harun/pagebot/internal/config"
	"github.com/harun/pagebot/internal/daemon"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Show the current status of the Pagebot daemon service.
When the metrics server is enabled the health endpoint is queried too.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	pidFile := daemon.PIDFile(cfg.DataDir)

	if !isRunning(pidFile) {
		fmt.Fprintln(out, "Status: stopped")
		return nil
	}

	pid, err := daemon.ReadPID(pidFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Status: running\n")
	fmt.Fprintf(out, "PID: %d\n", pid)

	// PID file modification time approximates the start time
	if info, err := os.Stat(pidFile); err == nil {
		fmt.Fprintf(out, "Uptime: %s\n", formatDuration(time.Since(info.ModTime())))
	}

	if cfg.Metrics.Enabled {
		printHealth(out, cfg.Metrics)
	}

	return nil
}

// printHealth reports the /healthz body. Failures are printed, not returned.
func printHealth(out io.Writer, cfg config.MetricsConfig) {
	client := &http.Client{Timeout: 2 * time.Second}
	res, err := client.Get("http://" + cfg.Addr + "/healthz")
	if err != nil {
		fmt.Fprintf(out, "Health: unreachable (%v)\n", err)
		return
	}
	defer res.Body.Close()

	var health daemon.HealthResponse
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		fmt.Fprintf(out, "Health: invalid response (%v)\n", err)
		return
	}

	fmt.Fprintf(out, "Health: %s\n", health.Status)
	fmt.Fprintf(out, "Characters: %d\n", health.Characters)

	names := make([]string, 0, len(health.Channels))
	for name := range health.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := "down"
		if health.Channels[name] {
			state = "up"
		}
		fmt.Fprintf(out, "Channel %s: %s\n", name, state)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
