package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/streak"
)

type HabitSummary struct {
	HabitID string `json:"habit_id"`
	Rule    string `json:"rule"`
	streak.Summary
	Rate7     int     `json:"rate_7d"`
	Rate30    int     `json:"rate_30d"`
	Rate90    int     `json:"rate_90d"`
	WeekDots  [7]bool `json:"week_dots"`
	Milestone int     `json:"milestone,omitempty"`
}

func newSummaryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <fixture.yaml>",
		Short: "Print current and longest streak, rates and week dots per habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, now, err := opts.load(args[0])
			if err != nil {
				return err
			}

			out := Summaries(f, now)
			return printer{opts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				for _, s := range out {
					fprintf(w, "%s\t%s\tcurrent=%d longest=%d at_risk=%t\t7d=%d%% 30d=%d%% 90d=%d%%\t%s",
						s.HabitID, s.Rule, s.CurrentStreak, s.LongestStreak, s.AtRisk,
						s.Rate7, s.Rate30, s.Rate90, dots(s.WeekDots))
					if s.Milestone > 0 {
						fprintf(w, "\tmilestone=%d", s.Milestone)
					}
					fprintf(w, "\n")
				}
			})
		},
	}
}

func Summaries(f *Fixture, now time.Time) []HabitSummary {
	cal := f.Calendar()
	out := make([]HabitSummary, 0, len(f.Habits))
	for _, h := range f.Habits {
		s := HabitSummary{
			HabitID:  h.ID,
			Rule:     h.Rule.String(),
			Summary:  cal.Summarize(h.Completions, h.Rule, now),
			Rate7:    streak.RatePercent(cal.CompletionRate(h.Completions, h.Rule, streak.Window7, now)),
			Rate30:   streak.RatePercent(cal.CompletionRate(h.Completions, h.Rule, streak.Window30, now)),
			Rate90:   streak.RatePercent(cal.CompletionRate(h.Completions, h.Rule, streak.Window90, now)),
			WeekDots: cal.WeekDots(h.Completions, now),
		}
		if tier, ok := streak.MilestoneTier(s.CurrentStreak); ok {
			s.Milestone = tier
		}
		out = append(out, s)
	}
	return out
}
