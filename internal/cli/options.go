package cli

import (
	"github.com/spf13/cobra"

	"github.com/ConserveLee/gui-rpa/internal/config"
)

// configFlags are the config file path plus the fields that can be
// overridden on the command line.
type configFlags struct {
	path       string
	confidence float64
	scaleMin   float64
	scaleMax   float64
	timeout    float64
	region     string
	display    int
	matcher    string
	logFile    string
}

func (f *configFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "config", "c", "", "config file (YAML)")
	cmd.Flags().Float64Var(&f.confidence, "confidence", config.DefaultConfidence, "match threshold in (0, 1]")
	cmd.Flags().Float64Var(&f.scaleMin, "scale-min", config.DefaultScaleMin, "smallest template scale")
	cmd.Flags().Float64Var(&f.scaleMax, "scale-max", config.DefaultScaleMax, "largest template scale")
	cmd.Flags().Float64Var(&f.timeout, "timeout", 0, "seconds to keep retrying image actions (0 = single attempt)")
	cmd.Flags().StringVar(&f.region, "region", "", "scan region as x,y,width,height")
	cmd.Flags().IntVar(&f.display, "display", 0, "display index to capture")
	cmd.Flags().StringVar(&f.matcher, "matcher", config.MatcherAuto, "auto, ncc or pixel")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "write diagnostics to this file")
}

// build reads the config file, applies the flags the user set and validates
// the result.
func (f *configFlags) build(cmd *cobra.Command) (*config.Config, error) {
	file, err := config.Read(f.path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("confidence") {
		file.Confidence = f.confidence
	}
	if flags.Changed("scale-min") {
		file.ScaleMin = f.scaleMin
	}
	if flags.Changed("scale-max") {
		file.ScaleMax = f.scaleMax
	}
	if flags.Changed("timeout") {
		file.Timing.Timeout = f.timeout
	}
	if flags.Changed("region") {
		r, err := config.ParseRegion(f.region)
		if err != nil {
			return nil, err
		}
		file.Region = r
	}
	if flags.Changed("display") {
		file.Display = f.display
	}
	if flags.Changed("matcher") {
		file.Matcher = f.matcher
	}
	if flags.Changed("log-file") {
		file.Log.File = f.logFile
	}
	return file.Build()
}
