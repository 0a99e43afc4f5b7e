package store

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/memory-graph/internal/model"
)

// clusterSeed fixes k-means initialization so repeated calls over the same
// corpus produce the same grouping. Part of the contract, not an accident.
const clusterSeed = 42

const clusterMaxIterations = 100

// Cluster groups the owner's embedded memories into up to nClusters named
// clusters via k-means over their embeddings. With fewer memories than
// clusters everything lands in a single cluster; an empty corpus yields an
// empty map. Naming is best-effort and never fails the operation.
func (s *SQLiteStore) Cluster(ctx context.Context, ownerID string, nClusters int) (map[string][]model.Memory, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if nClusters <= 0 {
		nClusters = 5
	}

	memories, err := s.listFiltered(ctx, ownerID, nil, time.Time{}, time.Time{}, 0, true)
	if err != nil {
		return nil, err
	}
	if len(memories) == 0 {
		return map[string][]model.Memory{}, nil
	}

	// Exclude vectors whose dimension disagrees with the rest of the corpus
	// (stale model upgrades): fail closed, cluster what is consistent.
	dims := modalDims(memories)
	kept := memories[:0:0]
	for _, m := range memories {
		if len(m.Embedding) == dims {
			kept = append(kept, m)
		}
	}
	memories = kept

	if len(memories) < nClusters {
		name := nameCluster(memories)
		return map[string][]model.Memory{name: memories}, nil
	}

	assignments := kmeans(memories, nClusters)

	groups := make([][]model.Memory, nClusters)
	for i, c := range assignments {
		groups[c] = append(groups[c], memories[i])
	}

	result := make(map[string][]model.Memory, nClusters)
	for _, group := range groups {
		if len(group) == 0 {
			continue // do not fabricate empty clusters
		}
		name := nameCluster(group)
		// Disambiguate duplicate names rather than merging clusters.
		if _, taken := result[name]; taken {
			for n := 2; ; n++ {
				alt := fmt.Sprintf("%s %d", name, n)
				if _, taken := result[alt]; !taken {
					name = alt
					break
				}
			}
		}
		result[name] = group
	}
	return result, nil
}

// kmeans assigns each memory to one of k clusters by Euclidean distance,
// seeded deterministically.
func kmeans(memories []model.Memory, k int) []int {
	rng := rand.New(rand.NewSource(clusterSeed))
	dims := len(memories[0].Embedding)

	// Initialize centroids from k distinct seeded picks.
	centroids := make([][]float64, k)
	for i, idx := range rng.Perm(len(memories))[:k] {
		centroids[i] = toFloat64(memories[idx].Embedding)
	}

	assignments := make([]int, len(memories))
	for iter := 0; iter < clusterMaxIterations; iter++ {
		changed := false
		for i, m := range memories {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := sqDist(m.Embedding, centroid)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids; an emptied cluster keeps its old centroid.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dims)
		}
		for i, m := range memories {
			c := assignments[i]
			counts[c]++
			for d, v := range m.Embedding {
				sums[c][d] += float64(v)
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}
	return assignments
}

// nameCluster derives a display name from the cluster's first 5 members:
// the most frequent extracted-entity value, then the most frequent
// category, then a generic fallback.
func nameCluster(memories []model.Memory) string {
	sample := memories
	if len(sample) > 5 {
		sample = sample[:5]
	}

	entityCounts := map[string]int{}
	var entityOrder []string
	for _, m := range sample {
		for _, ent := range m.Metadata.Entities {
			if entityCounts[ent.Value] == 0 {
				entityOrder = append(entityOrder, ent.Value)
			}
			entityCounts[ent.Value]++
		}
	}
	if top := mostFrequent(entityCounts, entityOrder); top != "" {
		return top + " Memories"
	}

	categoryCounts := map[string]int{}
	var categoryOrder []string
	for _, m := range memories {
		if categoryCounts[m.Category] == 0 {
			categoryOrder = append(categoryOrder, m.Category)
		}
		categoryCounts[m.Category]++
	}
	if top := mostFrequent(categoryCounts, categoryOrder); top != "" {
		return titleCase(top) + " Memories"
	}

	return "Memory Cluster"
}

// mostFrequent picks the highest-count key, first-seen order breaking ties.
func mostFrequent(counts map[string]int, order []string) string {
	best, bestCount := "", 0
	for _, k := range order {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func sqDist(v []float32, centroid []float64) float64 {
	var sum float64
	for i := range v {
		d := float64(v[i]) - centroid[i]
		sum += d * d
	}
	return sum
}

// modalDims returns the most common embedding dimension in the corpus.
func modalDims(memories []model.Memory) int {
	counts := map[int]int{}
	for _, m := range memories {
		counts[len(m.Embedding)]++
	}
	dims := make([]int, 0, len(counts))
	for d := range counts {
		dims = append(dims, d)
	}
	sort.Ints(dims)
	best, bestCount := 0, 0
	for _, d := range dims {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
