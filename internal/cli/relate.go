package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-graph/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "relate [source-id] [target-id]",
		Short: "Create or remove a relation between two memories",
		Args:  cobra.ExactArgs(2),
		Run:   runRelate,
	}

	cmd.Flags().StringP("type", "t", "", "Relation type (default similar_content)")
	cmd.Flags().Float64("strength", 0, "Relation strength in [0,1] (default 1.0)")
	cmd.Flags().Bool("rm", false, "Remove the relation")

	RootCmd.AddCommand(cmd)
}

func runRelate(cmd *cobra.Command, args []string) {
	relType, _ := cmd.Flags().GetString("type")
	strength, _ := cmd.Flags().GetFloat64("strength")
	rm, _ := cmd.Flags().GetBool("rm")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rel, err := s.Relate(cmd.Context(), store.RelateParams{
		SourceID: args[0],
		TargetID: args[1],
		Type:     relType,
		Strength: strength,
		Remove:   rm,
	})
	if err != nil {
		exitErr("relate", err)
	}

	b, _ := json.MarshalIndent(rel, "", "  ")
	fmt.Println(string(b))
}
