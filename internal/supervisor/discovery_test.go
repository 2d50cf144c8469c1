package supervisor

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverPairsMatchesByStem(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "shard1.header")
	touch(t, dir, "shard1.payload")
	touch(t, dir, "shard2.header")
	touch(t, dir, "shard2.payload")
	touch(t, dir, "processor-1.state")

	pairs, err := DiscoverPairs(dir)
	if err != nil {
		t.Fatalf("DiscoverPairs() error: %v", err)
	}

	stems := make([]string, len(pairs))
	for i, p := range pairs {
		stems[i] = p.Stem
	}
	sort.Strings(stems)

	if len(stems) != 2 || stems[0] != "shard1" || stems[1] != "shard2" {
		t.Fatalf("stems = %v, want [shard1 shard2]", stems)
	}
}

func TestDiscoverPairsSkipsOrphans(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "orphanheader.header")
	touch(t, dir, "orphanpayload.payload")

	pairs, err := DiscoverPairs(dir)
	if err != nil {
		t.Fatalf("DiscoverPairs() error: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("pairs = %v, want none (both sides are orphans)", pairs)
	}
}
