package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ampm-club/portal/internal/student"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Show the club leaderboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		entries, err := a.students.Tiers(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no ranked students yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tNAME\tNUMBER\tTIER\tSOLVED\tRATING")
		for i, entry := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\n",
				i+1, entry.StudentName, entry.StudentNumber,
				student.TierName(entry.Tier), entry.SolvedCount, entry.Rating)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)
}
