package pipeline

import (
	"time"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/stats"
	"github.com/Sumatoshi-tech/neardup/pkg/observability"
)

// Result is the outcome of one run.
type Result struct {
	Clusters []Cluster `json:"clusters" yaml:"clusters"`
	Sources  *Sources  `json:"sources,omitempty" yaml:"sources,omitempty"`
	Stats    Stats     `json:"stats" yaml:"stats"`
}

// Stats describes what a run did.
type Stats struct {
	Documents int    `json:"documents" yaml:"documents"`
	Signed    int    `json:"signed" yaml:"signed"`
	Skipped   int    `json:"skipped" yaml:"skipped"`
	Mode      string `json:"mode" yaml:"mode"`

	// LargeBuckets counts buckets with at least the minimum size after the
	// first pass, summed over stages.
	LargeBuckets int `json:"large_buckets" yaml:"large_buckets"`

	// Memberships counts document-to-bucket recordings of the second pass.
	Memberships   int   `json:"memberships" yaml:"memberships"`
	WrittenGroups int64 `json:"written_groups,omitempty" yaml:"written_groups,omitempty"`

	BigGroups  int `json:"big_groups" yaml:"big_groups"`
	Pairs      int `json:"pairs" yaml:"pairs"`
	FromGroups int `json:"from_groups" yaml:"from_groups"`
	FromPairs  int `json:"from_pairs" yaml:"from_pairs"`

	Duplicates     int     `json:"duplicates" yaml:"duplicates"`
	MeanSize       float64 `json:"mean_cluster_size" yaml:"mean_cluster_size"`
	MaxSize        int     `json:"max_cluster_size" yaml:"max_cluster_size"`
	MedianMinSim   float64 `json:"median_min_similarity" yaml:"median_min_similarity"`
	LowestMinSim   float64 `json:"lowest_min_similarity" yaml:"lowest_min_similarity"`
	P95ClusterSize float64 `json:"p95_cluster_size" yaml:"p95_cluster_size"`

	Elapsed       time.Duration            `json:"elapsed" yaml:"elapsed"`
	PassDurations map[string]time.Duration `json:"pass_durations" yaml:"pass_durations"`
}

func (s *Stats) summarizeClusters(clusters []Cluster) {
	if len(clusters) == 0 {
		return
	}

	sizes := make([]int, len(clusters))
	minSims := make([]float64, len(clusters))
	members := make(map[int64]struct{})

	for i, c := range clusters {
		sizes[i] = len(c.IDs)
		minSims[i] = c.MinSimilarity

		for _, id := range c.IDs {
			members[id] = struct{}{}
		}
	}

	sizeSummary := stats.Summarize(sizes)
	simSummary := stats.Summarize(minSims)

	s.Duplicates = len(members)
	s.MeanSize = sizeSummary.Mean
	s.MaxSize = stats.Max(sizes)
	s.P95ClusterSize = sizeSummary.P95
	s.MedianMinSim = simSummary.Median
	s.LowestMinSim = simSummary.Min
}

func (s *Stats) runStats() observability.RunStats {
	return observability.RunStats{
		Signed:        int64(s.Signed),
		Skipped:       int64(s.Skipped),
		Grouped:       int64(s.Memberships),
		FromGroups:    int64(s.FromGroups),
		FromPairs:     int64(s.FromPairs),
		LargeBuckets:  int64(s.LargeBuckets),
		PassDurations: s.PassDurations,
	}
}
