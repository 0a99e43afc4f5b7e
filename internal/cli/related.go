package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "related [id]",
		Short: "Show memories related to one, strongest first",
		Args:  cobra.ExactArgs(1),
		Run:   runRelated,
	}

	cmd.Flags().IntP("limit", "l", 10, "Max results")

	RootCmd.AddCommand(cmd)
}

func runRelated(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	related, err := s.Related(cmd.Context(), args[0], limit)
	if err != nil {
		exitErr("related", err)
	}

	if len(related) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(related, "", "  ")
	fmt.Println(string(b))
}
