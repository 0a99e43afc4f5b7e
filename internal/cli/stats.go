package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long:  "Show memory, embedding and relation counts, per owner and category.",
		Run:   runStats,
	}

	cmd.Flags().StringP("owner", "o", "", "Show only this owner's breakdown")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	owner, _ := cmd.Flags().GetString("owner")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	if owner != "" {
		for _, o := range stats.Owners {
			if o.OwnerID == owner {
				b, _ := json.MarshalIndent(o, "", "  ")
				fmt.Println(string(b))
				return
			}
		}
		exitErr("stats", fmt.Errorf("no memories for owner %q", owner))
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
