package workitems

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Completed is the part of a checkpoint document Enumerate needs.
type Completed interface {
	Has(key string) bool
}

// Enumerate returns the universe members not yet completed, in universe
// order and without duplicates. The result is a fresh slice; callers iterate
// it as an immutable snapshot.
func Enumerate(universe []string, completed Completed) []string {
	seen := make(map[string]struct{}, len(universe))
	pending := make([]string, 0, len(universe))
	for _, key := range universe {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if completed != nil && completed.Has(key) {
			continue
		}
		pending = append(pending, key)
	}
	return pending
}

// KeySource is anything that lists keys in a stable order, such as a checkpoint document.
type KeySource interface {
	Keys() []string
}

// KeysOf returns the universe of a stage that consumes an earlier stage's
// output: the earlier stage's keys, in the order they were recorded.
func KeysOf(src KeySource) []string {
	if src == nil {
		return nil
	}
	return Enumerate(src.Keys(), nil)
}

// LoadUniverse expands each glob pattern (sorted matches, patterns in the
// given order) and reads the keys from every file. .json files hold a JSON
// string array; anything else is one key per line. Blank lines are dropped
// and duplicates keep their first position.
func LoadUniverse(patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("workitems: no universe sources given")
	}
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("workitems: bad pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("workitems: no files match %q", p)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}

	var keys []string
	for _, f := range files {
		got, err := readKeys(f)
		if err != nil {
			return nil, err
		}
		keys = append(keys, got...)
	}
	return Enumerate(keys, nil), nil
}

func readKeys(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workitems: read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("workitems: %s must be a json string array: %w", path, err)
		}
		out := make([]string, 0, len(list))
		for _, k := range list {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
		return out, nil
	}

	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if k := strings.TrimSpace(sc.Text()); k != "" {
			out = append(out, k)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("workitems: scan %s: %w", path, err)
	}
	return out, nil
}
