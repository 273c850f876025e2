// Package clusters implements the avatar_clusters addon (§4.H):
// union-find over Results whose avatar fingerprints match, producing
// deterministic integer cluster ids.
package clusters

import (
	"sort"

	"github.com/jmylchreest/usercheck/internal/addons/avatarfp"
)

// Item is one Result's avatar fingerprint, keyed by its provider name
// for the deterministic-representative rule (§4.H).
type Item struct {
	Provider string
	SHA256   string
	DHash    uint64
	HasHash  bool // false when the avatar couldn't be fetched/hashed
}

// unionFind is a standard union-find with path compression and
// union-by-rank (§9 design note, §8 testable property 6: "the
// resulting partition is the transitive closure of the pairwise edge
// predicate").
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// Cluster groups the providers assigned the same cluster id.
type Cluster struct {
	ID        int
	Providers []string
}

// Assign partitions items by the equality rule "identical sha256 OR
// dhash Hamming distance ≤ threshold" (§3, §4.H), then assigns
// deterministic integer ids: the lexicographically smallest provider
// name in a cluster becomes its representative; ids are assigned in
// provider-order first occurrence (§4.H). Items with HasHash=false are
// excluded (no fingerprint to cluster on). Returns a map from provider
// name to cluster id.
func Assign(items []Item, threshold int) (map[string]int, []Cluster) {
	hashed := make([]Item, 0, len(items))
	for _, it := range items {
		if it.HasHash {
			hashed = append(hashed, it)
		}
	}

	uf := newUnionFind(len(hashed))
	for i := 0; i < len(hashed); i++ {
		for j := i + 1; j < len(hashed); j++ {
			if hashed[i].SHA256 != "" && hashed[i].SHA256 == hashed[j].SHA256 {
				uf.union(i, j)
				continue
			}
			if avatarfp.HammingDistance(hashed[i].DHash, hashed[j].DHash) <= threshold {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]int) // root -> indices
	for i := range hashed {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	// Deterministic id assignment: order groups by each group's
	// earliest provider-order occurrence, id 0..n-1.
	type groupInfo struct {
		root    int
		indices []int
		first   int
	}
	infos := make([]groupInfo, 0, len(groups))
	for root, indices := range groups {
		first := indices[0]
		for _, idx := range indices {
			if idx < first {
				first = idx
			}
		}
		infos = append(infos, groupInfo{root: root, indices: indices, first: first})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].first < infos[j].first })

	providerToCluster := make(map[string]int, len(hashed))
	clusterList := make([]Cluster, 0, len(infos))

	for id, gi := range infos {
		names := make([]string, len(gi.indices))
		for k, idx := range gi.indices {
			names[k] = hashed[idx].Provider
		}
		sort.Strings(names)
		for _, name := range names {
			providerToCluster[name] = id
		}
		clusterList = append(clusterList, Cluster{ID: id, Providers: names})
	}

	return providerToCluster, clusterList
}
