package cli

import (
	"fmt"

	"github.com/harun/pagebot/internal/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without starting",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	errs := config.NewValidator().ValidateConfig(cfg)
	out := cmd.OutOrStdout()
	for _, e := range errs {
		fmt.Fprintf(out, "  - %v\n", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration has %d problem(s)", len(errs))
	}

	fmt.Fprintln(out, "Configuration is valid")
	return nil
}
