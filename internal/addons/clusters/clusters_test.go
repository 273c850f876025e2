package clusters

import "testing"

func TestAssign_SameSHA256Clusters(t *testing.T) {
	items := []Item{
		{Provider: "github", SHA256: "abc", DHash: 0, HasHash: true},
		{Provider: "gitlab", SHA256: "abc", DHash: 0xFF, HasHash: true},
		{Provider: "reddit", SHA256: "def", DHash: 0xFF00, HasHash: true},
	}
	assignment, clusters := Assign(items, 10)

	if assignment["github"] != assignment["gitlab"] {
		t.Fatal("expected github and gitlab in the same cluster (identical sha256)")
	}
	if assignment["reddit"] == assignment["github"] {
		t.Fatal("expected reddit in a different cluster")
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
}

func TestAssign_HammingDistanceThreshold(t *testing.T) {
	items := []Item{
		{Provider: "a", SHA256: "x1", DHash: 0b1111000011110000, HasHash: true},
		{Provider: "b", SHA256: "x2", DHash: 0b1111000011110001, HasHash: true}, // distance 1
		{Provider: "c", SHA256: "x3", DHash: 0b0000111100001111, HasHash: true}, // far
	}
	assignment, _ := Assign(items, 2)

	if assignment["a"] != assignment["b"] {
		t.Fatal("expected a and b clustered (within threshold)")
	}
	if assignment["a"] == assignment["c"] {
		t.Fatal("expected c in a separate cluster")
	}
}

func TestAssign_ExcludesUnhashedItems(t *testing.T) {
	items := []Item{
		{Provider: "a", HasHash: false},
		{Provider: "b", SHA256: "x", HasHash: true},
	}
	assignment, clusters := Assign(items, 10)

	if _, ok := assignment["a"]; ok {
		t.Fatal("unhashed item should not be assigned a cluster")
	}
	if _, ok := assignment["b"]; !ok {
		t.Fatal("hashed item should be assigned a cluster")
	}
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
}

func TestAssign_DeterministicIDOrderAndProviderSort(t *testing.T) {
	items := []Item{
		{Provider: "zeta", SHA256: "g2", HasHash: true},
		{Provider: "alpha", SHA256: "g1", DHash: 0xFFFFFFFF, HasHash: true},
		{Provider: "beta", SHA256: "g2", HasHash: true},
	}
	_, clusterList := Assign(items, 10)

	if len(clusterList) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusterList))
	}
	// "g2" group (zeta, beta) has earliest first-occurrence index 0, so id 0.
	if clusterList[0].ID != 0 {
		t.Fatalf("expected first cluster id 0, got %d", clusterList[0].ID)
	}
	if clusterList[0].Providers[0] != "beta" || clusterList[0].Providers[1] != "zeta" {
		t.Fatalf("expected lexicographically sorted providers, got %v", clusterList[0].Providers)
	}
}

func TestAssign_NoItemsYieldsNoClusters(t *testing.T) {
	assignment, clusterList := Assign(nil, 10)
	if len(assignment) != 0 || len(clusterList) != 0 {
		t.Fatal("expected empty result for no items")
	}
}
