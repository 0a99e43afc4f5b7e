package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Group an owner's memories into named clusters",
		Run:   runCluster,
	}

	cmd.Flags().StringP("owner", "o", "", "Owner ID (required)")
	cmd.Flags().IntP("clusters", "n", 5, "Number of clusters")

	cmd.MarkFlagRequired("owner")

	RootCmd.AddCommand(cmd)
}

func runCluster(cmd *cobra.Command, args []string) {
	owner, _ := cmd.Flags().GetString("owner")
	n, _ := cmd.Flags().GetInt("clusters")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	clusters, err := s.Cluster(cmd.Context(), owner, n)
	if err != nil {
		exitErr("cluster", err)
	}

	b, _ := json.MarshalIndent(clusters, "", "  ")
	fmt.Println(string(b))
}
