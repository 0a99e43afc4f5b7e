package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-graph/internal/model"
	"github.com/rcliao/memory-graph/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "store [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runStore,
	}

	cmd.Flags().StringP("owner", "o", "", "Owner ID (required)")
	cmd.Flags().StringP("category", "c", "episodic", "Category: episodic, semantic, procedural, social, conversational")
	cmd.Flags().Float64("confidence", 1.0, "Confidence in [0,1]")
	cmd.Flags().StringArrayP("entity", "e", nil, "Extracted entity as type=value (repeatable)")
	cmd.Flags().StringArray("emotion", nil, "Detected emotion (repeatable)")
	cmd.Flags().String("time", "", "Temporal expression from the content")
	cmd.Flags().String("meta", "", "Extra JSON metadata")

	cmd.MarkFlagRequired("owner")

	RootCmd.AddCommand(cmd)
}

func runStore(cmd *cobra.Command, args []string) {
	owner, _ := cmd.Flags().GetString("owner")
	category, _ := cmd.Flags().GetString("category")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	entities, _ := cmd.Flags().GetStringArray("entity")
	emotions, _ := cmd.Flags().GetStringArray("emotion")
	timeExpr, _ := cmd.Flags().GetString("time")
	meta, _ := cmd.Flags().GetString("meta")

	// Get content: positional arg first, then check stdin
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	if strings.TrimSpace(content) == "" {
		exitErr("store", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	md := model.Metadata{Emotions: emotions}
	for _, e := range entities {
		typ, val, ok := strings.Cut(e, "=")
		if !ok {
			exitErr("store", fmt.Errorf("invalid entity %q (use type=value)", e))
		}
		md.Entities = append(md.Entities, model.Entity{Type: typ, Value: val})
	}
	if timeExpr != "" {
		md.TimeInfo = &model.TimeInfo{HasTime: true, Original: timeExpr}
	}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &md.Extra); err != nil {
			exitErr("store", fmt.Errorf("invalid meta json: %w", err))
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := s.Store(cmd.Context(), store.StoreParams{
		OwnerID:    owner,
		Content:    strings.TrimSpace(content),
		Category:   category,
		Metadata:   md,
		Confidence: confidence,
	})
	if err != nil {
		exitErr("store", err)
	}

	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}
