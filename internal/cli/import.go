package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-graph/internal/model"
	"github.com/rcliao/memory-graph/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import memories from JSON",
		Long:  "Import memories from JSON on stdin. Accepts the format produced by export.",
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	// Accept either a full export snapshot or a bare memory array.
	var exp store.Export
	if err := json.Unmarshal(data, &exp); err != nil || len(exp.Memories) == 0 {
		var memories []model.Memory
		if err := json.Unmarshal(data, &memories); err != nil {
			exitErr("parse json", err)
		}
		exp.Memories = memories
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.Import(cmd.Context(), exp.Memories)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
