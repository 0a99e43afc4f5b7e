package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	ownersCmd := &cobra.Command{
		Use:   "owners",
		Short: "Owner management",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List owners with memory counts",
		Run:   runOwnersList,
	}

	ownersCmd.AddCommand(listCmd)
	RootCmd.AddCommand(ownersCmd)
}

func runOwnersList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("list owners", err)
	}

	b, _ := json.MarshalIndent(stats.Owners, "", "  ")
	fmt.Println(string(b))
}
