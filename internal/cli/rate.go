package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/streak"
)

type HabitRate struct {
	HabitID string  `json:"habit_id"`
	Window  int     `json:"window_days"`
	Rate    float64 `json:"rate"`
	Percent int     `json:"percent"`
}

func newRateCommand(opts *RootOptions) *cobra.Command {
	var window int

	cmd := &cobra.Command{
		Use:   "rate <fixture.yaml>",
		Short: "Print the completion rate over the last N days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if window > MaxWindowDays {
				return fmt.Errorf("--window %d exceeds the maximum of %d days", window, MaxWindowDays)
			}

			f, now, err := opts.load(args[0])
			if err != nil {
				return err
			}

			cal := f.Calendar()
			out := make([]HabitRate, 0, len(f.Habits))
			for _, h := range f.Habits {
				rate := cal.CompletionRate(h.Completions, h.Rule, window, now)
				out = append(out, HabitRate{
					HabitID: h.ID,
					Window:  window,
					Rate:    rate,
					Percent: streak.RatePercent(rate),
				})
			}

			return printer{opts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				for _, r := range out {
					fprintf(w, "%s\t%dd\t%d%%\n", r.HabitID, r.Window, r.Percent)
				}
			})
		},
	}

	cmd.Flags().IntVarP(&window, "window", "w", streak.Window30, "window size in days, ending on the reference day")
	return cmd
}
