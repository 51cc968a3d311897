// Command debug_match runs the template locator against a saved screenshot
// and prints the best score per scale, to tune confidence and scale ranges
// offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ConserveLee/gui-rpa/internal/config"
	"github.com/ConserveLee/gui-rpa/internal/engine/screen"
	"github.com/ConserveLee/gui-rpa/internal/logger"
	"github.com/ConserveLee/gui-rpa/internal/platform"
)

func main() {
	var (
		configPath string
		confidence float64
		scaleMin   float64
		scaleMax   float64
		matcher    string
	)

	cmd := &cobra.Command{
		Use:   "debug_match <screenshot.png> <template.png>...",
		Short: "Match templates against a saved screenshot",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("confidence") {
				cfg.Confidence = confidence
			}
			if cmd.Flags().Changed("scale-min") {
				cfg.ScaleMin = scaleMin
			}
			if cmd.Flags().Changed("scale-max") {
				cfg.ScaleMax = scaleMax
			}
			if cmd.Flags().Changed("matcher") {
				cfg.Matcher = matcher
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg, args[0], args[1:])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (YAML)")
	cmd.Flags().Float64Var(&confidence, "confidence", config.DefaultConfidence, "match threshold in (0, 1]")
	cmd.Flags().Float64Var(&scaleMin, "scale-min", config.DefaultScaleMin, "smallest template scale")
	cmd.Flags().Float64Var(&scaleMax, "scale-max", config.DefaultScaleMax, "largest template scale")
	cmd.Flags().StringVar(&matcher, "matcher", config.MatcherAuto, "auto, ncc or pixel")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, screenPath string, templates []string) error {
	shot, err := screen.LoadImage(screenPath)
	if err != nil {
		return fmt.Errorf("failed to load screen: %w", err)
	}
	fmt.Printf("Screen size: %dx%d\n", shot.Bounds().Dx(), shot.Bounds().Dy())

	m, err := screen.SelectMatcher(cfg.Matcher)
	if err != nil {
		return err
	}
	fmt.Printf("Matcher: %s, confidence %.2f, scales %.2f-%.2f\n", m.Name(), cfg.Confidence, cfg.ScaleMin, cfg.ScaleMax)

	log := logger.New(nil, func(line string) { fmt.Println(line) })
	cache := screen.NewTemplateCache(cfg.ScaleMin, cfg.ScaleMax, m.Scales(), log)
	cache.Preload(templates)

	capturer := platform.NewStaticScreen(shot)
	locator := screen.NewLocator(capturer, cache, m, cfg.Confidence, cfg.Region, nil, log)
	frame := screen.NewGray(shot)

	for _, path := range templates {
		tpl, ok := cache.Get(path)
		if !ok {
			fmt.Printf("\n=== %s: not loaded ===\n", path)
			continue
		}
		fmt.Printf("\n=== Testing %s (%dx%d) ===\n", path, tpl.Gray.W, tpl.Gray.H)

		report(m, frame, tpl.Gray, 1.0)
		if m.Scales() {
			for _, v := range tpl.Variants {
				report(m, frame, v.Gray, v.Scale)
			}
		}

		if pt, found := locator.Locate(path); found {
			fmt.Printf("  -> located at %d, %d\n", pt.X, pt.Y)
		} else {
			fmt.Println("  -> not found")
		}
	}
	return nil
}

func report(m screen.Matcher, frame, needle *screen.Gray, scale float64) {
	if !frame.Fits(needle.W, needle.H) {
		fmt.Printf("  scale %.2f (%dx%d): larger than screen\n", scale, needle.W, needle.H)
		return
	}
	pt, score, _ := m.Match(frame, needle, 1, nil)
	fmt.Printf("  scale %.2f (%dx%d): best %.3f at %d, %d\n", scale, needle.W, needle.H, score, pt.X, pt.Y)
}
