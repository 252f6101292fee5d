package registry

import (
	"cmp"
	"slices"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/light-recon/internal/facematch"
)

// HNSW parameters. Registries are small, so recall matters more than speed.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100
)

// Neighbor is one approximate nearest-neighbour hit.
type Neighbor struct {
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

// Index is an HNSW graph over the registry vectors, keyed by entry position.
// It backs diagnostics only; Query always scans exactly.
type Index struct {
	graph  *hnsw.Graph[int]
	labels []string
}

func newIndex(entries []Entry) *Index {
	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance

	labels := make([]string, len(entries))
	for i, e := range entries {
		g.Add(hnsw.MakeNode(i, e.Vector))
		labels[i] = e.Label
	}
	return &Index{graph: g, labels: labels}
}

// search returns up to k neighbours sorted by exact distance.
func (x *Index) search(query []float32, k int) []Neighbor {
	nodes := x.graph.Search(query, k)
	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Neighbor{
			Label:    x.labels[n.Key],
			Distance: facematch.EuclideanDistance(query, n.Value),
		})
	}
	slices.SortStableFunc(out, func(a, b Neighbor) int { return cmp.Compare(a.Distance, b.Distance) })
	return out
}

// Nearest returns up to k approximate nearest neighbours of vec. The graph
// is built on first use after the registry changes.
func (r *Registry) Nearest(vec []float32, k int) []Neighbor {
	if k <= 0 {
		return nil
	}

	r.mu.RLock()
	if len(r.entries) == 0 || len(vec) != r.dim {
		r.mu.RUnlock()
		return nil
	}
	idx := r.index
	r.mu.RUnlock()

	if idx == nil {
		r.mu.Lock()
		if r.index == nil {
			r.index = newIndex(r.entries)
		}
		idx = r.index
		r.mu.Unlock()
	}
	return idx.search(vec, k)
}
