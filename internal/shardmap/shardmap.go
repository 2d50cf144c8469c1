// Package shardmap maps a shard's file stem to operator-facing metadata:
// a human-readable name and free-text notes for whoever is triaging
// STATUS_ENDED_UNSUCCESSFULLY give-ups. It has no bearing on tailer
// correctness — a stem missing from the map is tailed exactly the same as
// one present in it.
package shardmap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ShardInfo is the operator-supplied metadata for one shard stem.
type ShardInfo struct {
	Name  string `yaml:"name"`
	Owner string `yaml:"owner"`
	Notes string `yaml:"notes"`
}

// Map maps a shard stem (the filename without .header/.payload) to its
// ShardInfo.
type Map struct {
	Shards map[string]ShardInfo `yaml:"shards"`
}

// Load reads and parses a shard map YAML file. A missing file is not an
// error — it yields an empty map, since the shard map is purely advisory.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Map{Shards: make(map[string]ShardInfo)}, nil
		}
		return nil, fmt.Errorf("shardmap: read %s: %w", path, err)
	}

	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("shardmap: parse %s: %w", path, err)
	}
	if m.Shards == nil {
		m.Shards = make(map[string]ShardInfo)
	}
	return &m, nil
}

// Lookup returns the ShardInfo for stem, falling back to a ShardInfo whose
// Name is the stem itself when the map has no entry for it.
func (m *Map) Lookup(stem string) ShardInfo {
	if info, ok := m.Shards[stem]; ok {
		return info
	}
	return ShardInfo{Name: stem}
}
