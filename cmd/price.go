package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/compass-hr/pricing-engine/internal/pricing"
)

var (
	priceDescription string
	priceLocation    string
	priceFamily      string
	priceLevel       string
	priceRequester   string
	priceJSON        bool
)

var priceCmd = &cobra.Command{
	Use:   "price <job title>",
	Short: "Price a single job title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Engine.Price(ctx, pricing.Request{
			JobTitle:       args[0],
			JobDescription: priceDescription,
			Location:       priceLocation,
			JobFamily:      priceFamily,
			CareerLevel:    priceLevel,
			Requester:      priceRequester,
		})
		if err != nil {
			if partial := pricing.PartialMatches(err); len(partial) > 0 {
				fmt.Fprintf(os.Stderr, "partial matches:\n")
				for _, m := range partial {
					fmt.Fprintf(os.Stderr, "  %-12s %-40s %.0f%%\n", m.CanonicalCode, m.CanonicalTitle, m.Similarity*100)
				}
			}
			return err
		}

		if priceJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}

		fmt.Printf("%s — %s\n\n", resp.JobTitle, resp.Location)
		fmt.Printf("  Recommended: %s – %s (target %s, %s %s)\n",
			pricing.FormatSalary(resp.RecommendedRange.Min, resp.Currency),
			pricing.FormatSalary(resp.RecommendedRange.Max, resp.Currency),
			pricing.FormatSalary(resp.RecommendedRange.Target, resp.Currency),
			resp.Currency, resp.Period)
		fmt.Printf("  Confidence:  %.0f/100 (%s)\n", resp.Confidence.Score, resp.Confidence.Level)
		fmt.Printf("  Version:     %d  cache_hit=%v\n\n", resp.Version, resp.CacheHit)

		fmt.Println("  Matched jobs:")
		for _, m := range resp.MatchedJobs {
			fmt.Printf("    %-12s %-40s %.0f%% (%s)\n", m.Code, m.Title, m.SimilarityPct, m.ConfidenceBucket)
		}

		fmt.Println("\n  Sources:")
		for name, s := range resp.DataSources {
			fmt.Printf("    %-16s %d jobs, n=%d\n", name, s.JobsMatched, s.TotalSampleSize)
		}

		fmt.Printf("\n%s\n", resp.Summary)

		return nil
	},
}

func init() {
	priceCmd.Flags().StringVar(&priceDescription, "description", "", "job description for match refinement")
	priceCmd.Flags().StringVar(&priceLocation, "location", "", "location (default: reference location)")
	priceCmd.Flags().StringVar(&priceFamily, "family", "", "job family filter")
	priceCmd.Flags().StringVar(&priceLevel, "level", "", "career level filter")
	priceCmd.Flags().StringVar(&priceRequester, "requester", "cli", "requester identity")
	priceCmd.Flags().BoolVar(&priceJSON, "json", false, "emit full JSON response")
	rootCmd.AddCommand(priceCmd)
}
