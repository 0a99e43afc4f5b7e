package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories and relations as JSON",
		Long:  "Export memories and relations as JSON. Filter by owner with -o.",
		Run:   runExport,
	}

	cmd.Flags().StringP("owner", "o", "", "Filter by owner")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	owner, _ := cmd.Flags().GetString("owner")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	exp, err := s.ExportAll(cmd.Context(), owner)
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(exp, "", "  ")
	fmt.Println(string(b))
}
