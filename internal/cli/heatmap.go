package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var heatmapGlyphs = []byte(" .:*#")

func newHeatmapCommand(opts *RootOptions) *cobra.Command {
	var weeks int

	cmd := &cobra.Command{
		Use:   "heatmap <fixture.yaml>",
		Short: "Render the activity heatmap of all habits in the fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if weeks > MaxHeatmapWeeks {
				return fmt.Errorf("--weeks %d exceeds the maximum of %d", weeks, MaxHeatmapWeeks)
			}

			f, now, err := opts.load(args[0])
			if err != nil {
				return err
			}

			days := f.Calendar().Heatmap(f.completionsByHabit(), now, weeks)
			return printer{opts.Format, cmd.OutOrStdout()}.print(days, func(w io.Writer) {
				// One line per week, Sunday first.
				for i := 0; i < len(days); i += 7 {
					row := make([]byte, 0, 7)
					for _, d := range days[i:min(i+7, len(days))] {
						if d.Future {
							row = append(row, '-')
							continue
						}
						row = append(row, heatmapGlyphs[d.Level])
					}
					fprintf(w, "%s  %s\n", days[i].Date, row)
				}
			})
		},
	}

	cmd.Flags().IntVar(&weeks, "weeks", 12, "number of weeks to render")
	return cmd
}
