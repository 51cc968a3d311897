package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ConserveLee/gui-rpa/internal/engine/screen"
	"github.com/ConserveLee/gui-rpa/internal/task"
)

var validateFlags configFlags

var validateCmd = &cobra.Command{
	Use:   "validate <tasks.json>",
	Short: "Check a task file and config without running anything",
	Long: `Validate compiles the task file, builds the configuration and checks that
every referenced image decodes.

Example:
  rpa validate tasks.json
  rpa validate tasks.json --config rpa.yaml --scale-min 0.8 --scale-max 1.2`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateFlags.register(validateCmd)
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := validateFlags.build(cmd)
	if err != nil {
		return err
	}
	records, err := task.LoadFile(args[0])
	if err != nil {
		return err
	}
	actions, err := task.Compile(records)
	if err != nil {
		return err
	}
	m, err := screen.SelectMatcher(cfg.Matcher)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Tasks:   %d\n", len(actions))
	fmt.Fprintf(out, "Matcher: %s\n", m.Name())
	fmt.Fprintf(out, "Scales:  %.2f-%.2f (%d variant(s) per template)\n", cfg.ScaleMin, cfg.ScaleMax, len(screen.ScaleSteps(cfg.ScaleMin, cfg.ScaleMax)))
	if cfg.Region != nil {
		fmt.Fprintf(out, "Region:  %v\n", *cfg.Region)
	}

	var problems int
	for i, a := range actions {
		fmt.Fprintf(out, "  %2d. %s\n", i+1, a.Kind())
	}
	for _, p := range task.ImagePaths(actions) {
		if _, err := os.Stat(p); err != nil {
			fmt.Fprintf(out, "  missing image: %s\n", p)
			problems++
			continue
		}
		if _, err := screen.LoadImage(p); err != nil {
			fmt.Fprintf(out, "  unreadable image: %s: %v\n", p, err)
			problems++
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d image problem(s) found", problems)
	}
	fmt.Fprintln(out, "OK")
	return nil
}
