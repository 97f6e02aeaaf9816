package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its output
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := GetRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)

	t.Cleanup(func() {
		cfgFile = ""
		logLevel = "info"
		resetFlags(cmd)
		cmd.SetArgs(nil)
		cmd.SetIn(nil)
	})

	err := cmd.Execute()
	return out.String(), err
}

// resetFlags restores flag defaults between executions of the shared root command
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		c.Flags().VisitAll(reset)
	}
}

// writeConfig writes a JSON config whose data dir is a temp dir
func writeConfig(t *testing.T, body string) (path, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	dataDir = filepath.Join(dir, "data")
	path = filepath.Join(dir, "pagebot.json")
	content := `{"data_dir": ` + strconv.Quote(dataDir)
	if body != "" {
		content += ", " + body
	}
	content += "}"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path, dataDir
}
