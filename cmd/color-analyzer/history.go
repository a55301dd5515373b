package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/menta2k/color-analyzer/pkg/types"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:         "history",
	Short:       "List stored results and the season distribution",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"store": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if db == nil {
			return errors.New("no database configured (use --db or store.dsn)")
		}
		records, err := db.RecentResults(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSESSION\tCREATED\tSEASON\tCONFIDENCE\tSKIN\tCONTRAST")
		for _, rec := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
				rec.ID, rec.SessionID, rec.CreatedAt.Format("2006-01-02 15:04"),
				rec.Result.Season, rec.Result.Confidence, rec.Result.SkinHex, rec.Result.ContrastLevel)
		}
		w.Flush()

		counts, err := db.SeasonCounts(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println()
		for _, s := range types.Seasons {
			fmt.Printf("%-8s %d\n", s, counts[s])
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of results to list")
	rootCmd.AddCommand(historyCmd)
}
