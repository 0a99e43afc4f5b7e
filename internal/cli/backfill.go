package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Compute embeddings for memories stored without one",
		Run:   runBackfill,
	}

	cmd.Flags().StringP("owner", "o", "", "Owner ID (required)")
	cmd.Flags().IntP("batch", "b", 100, "Batch size")

	cmd.MarkFlagRequired("owner")

	RootCmd.AddCommand(cmd)
}

func runBackfill(cmd *cobra.Command, args []string) {
	owner, _ := cmd.Flags().GetString("owner")
	batch, _ := cmd.Flags().GetInt("batch")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	n, err := s.Backfill(cmd.Context(), owner, batch)
	if err != nil {
		exitErr("backfill", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"processed":%d}`+"\n", n)
}
