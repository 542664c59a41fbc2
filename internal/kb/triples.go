package kb

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yungbote/neurobridge-kgbuild/internal/checkpoint"
	"github.com/yungbote/neurobridge-kgbuild/internal/platform/logger"
)

// Aggregate concatenates the per-key triple lists of an extract checkpoint in
// document order. Arity is left alone; the graph loader drops bad records.
// Values or elements that are not string arrays are skipped with a warning.
func Aggregate(doc *checkpoint.Document, log *logger.Logger) [][]string {
	var out [][]string
	for _, key := range doc.Keys() {
		raw, _ := doc.Get(key)
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			if log != nil {
				log.Warn("skipping non-array extract result", "key", key, "error", err.Error())
			}
			continue
		}
		for i, item := range items {
			var rec []string
			if err := json.Unmarshal(item, &rec); err != nil {
				if log != nil {
					log.Warn("skipping malformed triple record", "key", key, "index", i, "error", err.Error())
				}
				continue
			}
			out = append(out, rec)
		}
	}
	return out
}

// WriteTriples stores triples as indented JSON, atomically.
func WriteTriples(path string, triples [][]string) error {
	if triples == nil {
		triples = [][]string{}
	}
	b, err := json.MarshalIndent(triples, "", "    ")
	if err != nil {
		return fmt.Errorf("kb: encode triples: %w", err)
	}
	if err := checkpoint.WriteFileAtomic(path, append(b, '\n')); err != nil {
		return fmt.Errorf("kb: write triples %s: %w", path, err)
	}
	return nil
}

func ReadTriples(path string) ([][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kb: read triples %s: %w", path, err)
	}
	var out [][]string
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("kb: decode triples %s: %w", path, err)
	}
	return out, nil
}

// LocationRelation is one entry of a location-relation file.
type LocationRelation struct {
	Forward  string `json:"forward"`
	Backward string `json:"backward"`
}

// MirrorTriples turns a location-relation document of the shape
// {first: {second: {"forward": r, "backward": r2}}} into the pairs
// [first, r, second] and [second, r2, first], in file order.
func MirrorTriples(data []byte) ([][]string, error) {
	outer := checkpoint.NewDocument()
	if err := json.Unmarshal(data, outer); err != nil {
		return nil, fmt.Errorf("kb: location relations: %w", err)
	}
	var out [][]string
	for _, first := range outer.Keys() {
		inner := checkpoint.NewDocument()
		if err := outer.Decode(first, inner); err != nil {
			return nil, fmt.Errorf("kb: location relations %q: %w", first, err)
		}
		for _, second := range inner.Keys() {
			var rel LocationRelation
			if err := inner.Decode(second, &rel); err != nil {
				return nil, fmt.Errorf("kb: location relation %q -> %q: %w", first, second, err)
			}
			out = append(out,
				[]string{first, rel.Forward, second},
				[]string{second, rel.Backward, first},
			)
		}
	}
	return out, nil
}

// MirrorFiles reads each location-relation file in order and concatenates the results.
func MirrorFiles(paths ...string) ([][]string, error) {
	var out [][]string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("kb: read %s: %w", p, err)
		}
		triples, err := MirrorTriples(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, triples...)
	}
	return out, nil
}
