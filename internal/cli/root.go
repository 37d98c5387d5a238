// Package cli implements streakctl, an offline front end to the streak engine
// that evaluates YAML fixtures.
package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

type RootOptions struct {
	Format string
	Now    string

	clock func() time.Time
}

var ValidFormats = []string{"text", "json"}

// Upper bounds on the ranges a command walks day by day.
const (
	MaxWindowDays   = 3660
	MaxHeatmapWeeks = 520
)

func NewRootCommand() *cobra.Command {
	return newRootCommand(time.Now)
}

func newRootCommand(clock func() time.Time) *cobra.Command {
	opts := &RootOptions{clock: clock}

	cmd := &cobra.Command{
		Use:   "streakctl",
		Short: "Evaluate habit streaks from a fixture file",
		Long:  "streakctl runs the streak engine over a YAML fixture of habits, rules and completions.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Now, "now", "", "reference instant (RFC3339), overrides the fixture")

	cmd.AddCommand(newSummaryCommand(opts))
	cmd.AddCommand(newRateCommand(opts))
	cmd.AddCommand(newScheduledCommand(opts))
	cmd.AddCommand(newHeatmapCommand(opts))

	return cmd
}

// load reads the fixture named by the first argument and resolves the
// reference instant.
func (o *RootOptions) load(path string) (*Fixture, time.Time, error) {
	f, err := LoadFixture(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	now, err := f.Reference(o.Now, o.clock())
	if err != nil {
		return nil, time.Time{}, err
	}
	return f, now, nil
}
