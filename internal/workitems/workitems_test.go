package workitems

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type doneSet map[string]struct{}

func (s doneSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func TestEnumerate(t *testing.T) {
	cases := []struct {
		name      string
		universe  []string
		completed doneSet
		want      []string
	}{
		{"nothing done", []string{"A", "B", "C"}, doneSet{}, []string{"A", "B", "C"}},
		{"subset done keeps order", []string{"A", "B", "C", "D"}, doneSet{"B": {}, "D": {}}, []string{"A", "C"}},
		{"adjacent completed keys", []string{"A", "B", "C", "D"}, doneSet{"A": {}, "B": {}}, []string{"C", "D"}},
		{"all done", []string{"A", "B"}, doneSet{"A": {}, "B": {}}, []string{}},
		{"duplicates dropped", []string{"A", "B", "A", "C", "B"}, doneSet{"C": {}}, []string{"A", "B"}},
		{"completed keys outside universe ignored", []string{"A"}, doneSet{"Z": {}}, []string{"A"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Enumerate(tc.universe, tc.completed)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("want=%v got=%v", tc.want, got)
			}
		})
	}
}

func TestEnumerateDoesNotAliasUniverse(t *testing.T) {
	universe := []string{"A", "B"}
	got := Enumerate(universe, nil)
	got[0] = "mutated"
	if universe[0] != "A" {
		t.Fatalf("universe mutated through result")
	}
}

type keyList []string

func (k keyList) Keys() []string { return k }

func TestKeysOf(t *testing.T) {
	got := KeysOf(keyList{"insula", "precentral", "insula"})
	if !reflect.DeepEqual(got, []string{"insula", "precentral"}) {
		t.Fatalf("got=%v", got)
	}
	if KeysOf(nil) != nil {
		t.Fatalf("nil source should give nil")
	}
}

func TestLoadUniverse(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("b_region_names.txt", "insula\n\nprecentral\n")
	write("a_region_names.txt", "bankssts\r\ninsula\n")
	write("extra.json", `["cuneus", "", "bankssts"]`)

	got, err := LoadUniverse(filepath.Join(dir, "*_region_names.txt"), filepath.Join(dir, "extra.json"))
	if err != nil {
		t.Fatalf("LoadUniverse: %v", err)
	}
	want := []string{"bankssts", "insula", "precentral", "cuneus"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want=%v got=%v", want, got)
	}
}

func TestLoadUniverseErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadUniverse(); err == nil {
		t.Fatalf("expected error with no patterns")
	}
	if _, err := LoadUniverse(filepath.Join(dir, "*.txt")); err == nil {
		t.Fatalf("expected error when nothing matches")
	}
	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte(`{"not":"a list"}`), 0o644)
	if _, err := LoadUniverse(bad); err == nil {
		t.Fatalf("expected error for non-array json")
	}
}
