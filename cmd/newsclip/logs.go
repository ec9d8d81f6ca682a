package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/store"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the fetch log, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := store.LogFilter{}
		if cmd.Flags().Changed("client-id") {
			id, _ := cmd.Flags().GetInt64("client-id")
			filter.ClientID = &id
		}
		if raw, _ := cmd.Flags().GetString("level"); raw != "" {
			lvl, err := domain.ParseLevel(raw)
			if err != nil {
				return err
			}
			filter.Level = lvl
		}
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Store.ListLogs(cmd.Context(), filter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tLEVEL\tCLIENT\tSOURCE\tMESSAGE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.Time.Local().Format(time.DateTime), e.Level, e.ClientName, e.SourceName, e.Message)
		}
		return w.Flush()
	},
}

func init() {
	logsCmd.Flags().Int64("client-id", 0, "only entries for this client")
	logsCmd.Flags().String("level", "", "info, warning, error or success")
	logsCmd.Flags().Int("limit", 50, "maximum number of entries")
	rootCmd.AddCommand(logsCmd)
}
