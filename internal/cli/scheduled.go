package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/streak"
)

type HabitSchedule struct {
	HabitID string   `json:"habit_id"`
	Days    []string `json:"days"`
}

func newScheduledCommand(opts *RootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "scheduled <fixture.yaml>",
		Short: "List the days each habit is scheduled on between two dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, now, err := opts.load(args[0])
			if err != nil {
				return err
			}

			end := f.Calendar().Day(now)
			if to != "" {
				if end, err = streak.ParseDay(to); err != nil {
					return err
				}
			}
			start := end.AddDays(-6)
			if from != "" {
				if start, err = streak.ParseDay(from); err != nil {
					return err
				}
			}
			if end.Before(start) {
				return fmt.Errorf("--from %s is after --to %s", start, end)
			}
			if start.DaysUntil(end)+1 > MaxWindowDays {
				return fmt.Errorf("range %s..%s exceeds the maximum of %d days", start, end, MaxWindowDays)
			}

			out := make([]HabitSchedule, 0, len(f.Habits))
			for _, h := range f.Habits {
				days := streak.ScheduledDaysInWindow(h.Rule, start, end)
				keys := make([]string, 0, len(days))
				for _, d := range days {
					keys = append(keys, d.Key())
				}
				out = append(out, HabitSchedule{HabitID: h.ID, Days: keys})
			}

			return printer{opts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				for _, s := range out {
					fprintf(w, "%s\t%d\t%s\n", s.HabitID, len(s.Days), strings.Join(s.Days, " "))
				}
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD), defaults to six days before --to")
	cmd.Flags().StringVar(&to, "to", "", "last day (YYYY-MM-DD), defaults to the reference day")
	return cmd
}
