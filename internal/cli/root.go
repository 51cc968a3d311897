package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "rpa",
	Short: "Image-anchored desktop automation",
	Long: `rpa replays an ordered list of pointer and keyboard actions against the
desktop. Click and hover targets are found on screen by template matching,
so the task list keeps working when windows move.

Hold Esc or the middle mouse button, push the pointer into the top-right
corner, or bring up Task Manager to stop a run.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("rpa version {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
