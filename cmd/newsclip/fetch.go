package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/newsclip/internal/harvest"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one fetch cycle",
	Long: `Fetch runs a single cycle over every client (or only --client-id).
Paid APIs are skipped when their key is missing unless --force-run is given.`,
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

		summary, err := a.Harvester.RunFetchCycle(cmd.Context(), opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "clients processed: %d, articles saved: %d, new: %d\n",
			summary.ClientsProcessed, summary.TotalSaved, summary.Created)
		return nil
	},
}

func runOptions(cmd *cobra.Command) (harvest.RunOptions, error) {
	var opts harvest.RunOptions
	if cmd.Flags().Changed("client-id") {
		id, err := cmd.Flags().GetInt64("client-id")
		if err != nil {
			return opts, err
		}
		opts.ClientID = &id
	}
	force, err := cmd.Flags().GetBool("force-run")
	if err != nil {
		return opts, err
	}
	opts.Force = force
	return opts, nil
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("client-id", 0, "only fetch for this client")
	cmd.Flags().Bool("force-run", false, "call paid APIs even when their key is not configured")
}

func init() {
	addRunFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}
