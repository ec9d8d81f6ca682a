package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/newsclip/internal/app"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage registered sources",
}

var sourcesImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create or update sources from a YAML file (keyed by URL)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := app.ImportSources(cmd.Context(), a.Store, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sources created: %d, updated: %d\n", res.Created, res.Updated)
		return nil
	},
}

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage clients",
}

var clientsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create or update clients from a YAML file (keyed by name)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := app.ImportClients(cmd.Context(), a.Store, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "clients imported: %d\n", n)
		return nil
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesImportCmd)
	clientsCmd.AddCommand(clientsImportCmd)
	rootCmd.AddCommand(sourcesCmd, clientsCmd)
}
