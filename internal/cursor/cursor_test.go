package cursor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsZero(t *testing.T) {
	dir := t.TempDir()
	got := Load(dir, "1")
	if got != (ShardCursor{}) {
		t.Fatalf("Load() on missing file = %+v, want zero value", got)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	want := ShardCursor{HeaderOffset: 140, PayloadOffset: 140, AccSize: 140, AccCount: 1}

	if err := Save(dir, "1", want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got := Load(dir, "1")
	if got != want {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadCorruptFileReturnsZero(t *testing.T) {
	dir := t.TempDir()
	path := StatePath(dir, "1")
	if err := os.WriteFile(path, []byte("not,a,valid,cursor,line\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got := Load(dir, "1")
	if got != (ShardCursor{}) {
		t.Fatalf("Load() on corrupt file = %+v, want zero value", got)
	}
}

func TestStatePathNaming(t *testing.T) {
	got := StatePath("/base/2024/3/7", "42")
	want := filepath.Join("/base/2024/3/7", "processor-42.state")
	if got != want {
		t.Fatalf("StatePath() = %q, want %q", got, want)
	}
}
