package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/compass-hr/pricing-engine/internal/store"
)

var (
	requestsRequester string
	requestsLimit     int
	requestsOffset    int
	purgeKeepLatest   bool
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect and maintain pricing requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pricing requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		requests, err := st.ListRequests(ctx, store.RequestFilter{
			Requester: requestsRequester,
			Limit:     requestsLimit,
			Offset:    requestsOffset,
		})
		if err != nil {
			return err
		}

		if len(requests) == 0 {
			fmt.Println("no requests found")
			return nil
		}

		fmt.Printf("%-16s  %-40s  %-20s  %5s  %s\n", "HASH", "TITLE", "LOCATION", "COUNT", "LAST REQUESTED")
		for _, r := range requests {
			fmt.Printf("%-16s  %-40s  %-20s  %5d  %s\n",
				r.Hash[:16], truncate(r.JobTitle, 40), truncate(r.Location, 20),
				r.RequestCount, r.LastRequestedAt.Format("2006-01-02 15:04"))
		}

		return nil
	},
}

var requestsHistoryCmd = &cobra.Command{
	Use:   "history <request hash>",
	Short: "Show the version history for a request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		req, err := st.GetRequestByHash(ctx, args[0])
		if err != nil {
			return err
		}
		if req == nil {
			return eris.Errorf("no request with hash %q", args[0])
		}

		versions, err := st.ListResultVersions(ctx, req.ID)
		if err != nil {
			return err
		}

		fmt.Printf("%s — %s (%d versions)\n\n", req.JobTitle, req.Location, len(versions))
		fmt.Printf("%-8s  %-6s  %12s  %12s  %12s  %10s  %s\n",
			"VERSION", "LATEST", "MIN", "TARGET", "MAX", "CONFIDENCE", "CALCULATED")
		for _, v := range versions {
			fmt.Printf("%-8d  %-6v  %12.0f  %12.0f  %12.0f  %7.0f/%s  %s\n",
				v.Version, v.IsLatest,
				v.RecommendedMin, v.TargetSalary, v.RecommendedMax,
				v.ConfidenceScore, v.ConfidenceLevel,
				v.CalculatedAt.Format("2006-01-02 15:04"))
		}

		return nil
	},
}

var requestsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired result versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		deleted, err := st.DeleteExpiredResults(ctx, purgeKeepLatest)
		if err != nil {
			return err
		}

		zap.L().Info("purge complete", zap.Int("deleted", deleted), zap.Bool("keep_latest", purgeKeepLatest))
		fmt.Printf("deleted %d expired result versions\n", deleted)

		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func init() {
	requestsListCmd.Flags().StringVar(&requestsRequester, "requester", "", "filter by requester identity")
	requestsListCmd.Flags().IntVar(&requestsLimit, "limit", 50, "maximum rows")
	requestsListCmd.Flags().IntVar(&requestsOffset, "offset", 0, "rows to skip")
	requestsPurgeCmd.Flags().BoolVar(&purgeKeepLatest, "keep-latest", true, "retain each request's latest version even when expired")

	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsHistoryCmd)
	requestsCmd.AddCommand(requestsPurgeCmd)
	rootCmd.AddCommand(requestsCmd)
}
