package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a memory and its relations",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Delete(cmd.Context(), args[0]); err != nil {
		exitErr("rm", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q}`+"\n", args[0])
}
