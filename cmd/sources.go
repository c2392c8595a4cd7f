package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured benchmark sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Sources) == 0 {
			fmt.Println("no sources configured")
			return nil
		}

		fmt.Printf("%-18s  %-32s  %9s  %8s  %s\n", "NAME", "SURVEY", "FRESHNESS", "TIMEOUT", "RATE/S")
		for _, s := range cfg.Sources {
			rate := "-"
			if s.RatePerSec > 0 {
				rate = fmt.Sprintf("%.1f", s.RatePerSec)
			}
			fmt.Printf("%-18s  %-32s  %8dd  %7ds  %s\n",
				s.Name, s.SurveyLabel, s.FreshnessDays, s.TimeoutSecs, rate)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
