package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-graph/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Run:   runList,
	}

	cmd.Flags().StringP("owner", "o", "", "Filter by owner")
	cmd.Flags().StringP("category", "c", "", "Filter by category")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("pending", false, "Only memories awaiting embedding backfill")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	owner, _ := cmd.Flags().GetString("owner")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	pending, _ := cmd.Flags().GetBool("pending")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.List(cmd.Context(), store.ListParams{
		OwnerID:     owner,
		Category:    category,
		Limit:       limit,
		PendingOnly: pending,
	})
	if err != nil {
		exitErr("list", err)
	}

	b, _ := json.MarshalIndent(memories, "", "  ")
	fmt.Println(string(b))
}
