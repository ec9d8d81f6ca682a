package main

import (
	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/newsclip/internal/harvest"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run fetch cycles on schedule.interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptions(cmd)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		log.InfoObj("scheduler started", "schedule_start", map[string]any{
			"interval": cfg.Schedule.Interval.String(),
		})
		return harvest.NewScheduler(cfg.Schedule.Interval, a.Harvester, opts, log).Run(cmd.Context())
	},
}

func init() {
	addRunFlags(scheduleCmd)
	rootCmd.AddCommand(scheduleCmd)
}
