package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/memory-graph/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories",
		Long:  "Search memories semantically, by keyword, or as a hybrid of both.",
		Run:   runSearch,
	}

	cmd.Flags().StringP("owner", "o", "", "Owner ID (required)")
	cmd.Flags().StringP("mode", "m", "semantic", "Mode: semantic, keyword, hybrid")
	cmd.Flags().StringP("category", "c", "", "Filter by categories (comma-separated)")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Float64("threshold", 0, "Minimum similarity (semantic mode, default 0.5)")
	cmd.Flags().Float64("keyword-weight", 0.3, "Keyword score weight (hybrid mode)")
	cmd.Flags().Float64("semantic-weight", 0.7, "Semantic score weight (hybrid mode)")

	cmd.MarkFlagRequired("owner")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	owner, _ := cmd.Flags().GetString("owner")
	mode, _ := cmd.Flags().GetString("mode")
	categoryStr, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	kw, _ := cmd.Flags().GetFloat64("keyword-weight")
	sw, _ := cmd.Flags().GetFloat64("semantic-weight")
	query := strings.Join(args, " ")

	var categories []string
	if categoryStr != "" {
		for _, c := range strings.Split(categoryStr, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var results []store.SearchResult
	switch mode {
	case "semantic":
		results, err = s.SemanticSearch(cmd.Context(), store.SemanticParams{
			OwnerID:    owner,
			Query:      query,
			Categories: categories,
			Limit:      limit,
			Threshold:  threshold,
		})
	case "keyword":
		results, err = s.KeywordSearch(cmd.Context(), store.KeywordParams{
			OwnerID:    owner,
			Query:      query,
			Categories: categories,
			Limit:      limit,
		})
	case "hybrid":
		results, err = s.HybridSearch(cmd.Context(), store.HybridParams{
			OwnerID:        owner,
			Query:          query,
			KeywordWeight:  kw,
			SemanticWeight: sw,
			Limit:          limit,
		})
	default:
		exitErr("search", fmt.Errorf("unknown mode %q (use semantic, keyword, hybrid)", mode))
	}
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
