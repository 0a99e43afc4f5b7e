// Package cli implements the memory-graph CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rcliao/memory-graph/internal/embedding"
	"github.com/rcliao/memory-graph/internal/store"
)

var (
	dbPath  string
	verbose bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memory-graph",
	Short: "Embedding-backed memory store with a similarity graph",
	Long: "Store text memories, search them semantically, and walk the similarity graph\n" +
		"maintained between them. SQLite-backed, single binary.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MEMORY_GRAPH_DB or ~/.memory-graph/memory.db)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("MEMORY_GRAPH_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memory-graph", "memory.db")
}

func openStore() (*store.SQLiteStore, error) {
	var enc *embedding.Encoder
	if e := embedding.NewFromEnv(); e != nil {
		enc = embedding.NewEncoder(e)
	}
	return store.NewSQLiteStore(getDBPath(), enc)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
