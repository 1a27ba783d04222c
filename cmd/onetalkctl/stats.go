package main

import (
	"fmt"
	"io"

	"github.com/YusovID/onetalk-router/internal/report"
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		date        string
		writeReport bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-line usage for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(env *environment) error {
				if writeReport {
					if date == "" {
						return fmt.Errorf("--report needs --date")
					}

					reporter := report.New(env.app.Stats, env.app.Directory, env.cfg.Notify.InsightsDir, env.app.Location, env.log)

					path, err := reporter.Generate(cmd.Context(), date)
					if err != nil {
						return err
					}

					fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)

					return nil
				}

				lines, err := env.app.Stats.DailyStats(cmd.Context(), date)
				if err != nil {
					return err
				}

				return env.out.print(lines, func(w io.Writer) {
					if len(lines) == 0 {
						fmt.Fprintln(w, "No lines registered.")
						return
					}

					fmt.Fprintln(w, "NUMBER\tDEPARTMENT\tCALLS\tSMS\tMINUTES")
					for _, l := range lines {
						fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f\n", l.PhoneNumber, l.Department, l.Calls, l.SMS, l.DurationMinutes)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (today when empty)")
	cmd.Flags().BoolVar(&writeReport, "report", false, "write the Markdown daily report instead")

	return cmd
}
