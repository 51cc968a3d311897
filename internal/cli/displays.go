package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ConserveLee/gui-rpa/internal/platform"
)

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List the active displays and their bounds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		displays := platform.Displays()
		if len(displays) == 0 {
			return fmt.Errorf("no active displays found")
		}
		for i, b := range displays {
			fmt.Fprintf(out, "Display %d: %dx%d at (%d,%d)\n", i, b.Dx(), b.Dy(), b.Min.X, b.Min.Y)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(displaysCmd)
}
