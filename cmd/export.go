package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compass-hr/pricing-engine/internal/export"
)

var (
	exportOut   string
	exportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export latest pricing results to XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := export.WriteResults(ctx, st, exportOut, exportLimit)
		if err != nil {
			return err
		}

		fmt.Printf("exported %d results to %s\n", n, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "pricing-results.xlsx", "output file path")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "maximum results to export (0 = all)")
	rootCmd.AddCommand(exportCmd)
}
