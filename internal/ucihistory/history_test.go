package ucihistory

import (
	"path/filepath"
	"testing"

	"github.com/uci-go/uci/internal/uci/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if !fileExists(filepath.Join(dir, "history.db")) {
		t.Fatal("expected history.db to be created")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s1.Close()

	s2, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("re-Open: %v", err)
	}
	defer s2.Close()
}

func TestRecordAndList(t *testing.T) {
	s := newTestStore(t)

	entry := model.DeltaEntry{
		Command:   model.DeltaChange,
		Section:   "lan",
		Option:    "proto",
		Value:     "static",
		HasOption: true,
		HasValue:  true,
	}
	if err := s.Record("network", entry); err != nil {
		t.Fatalf("Record: %v", err)
	}

	records, err := s.List(ListOptions{Package: "network"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Package != "network" || got.Entry.Section != "lan" || got.Entry.Option != "proto" || got.Entry.Value != "static" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Line == "" {
		t.Fatal("expected rendered line to be non-empty")
	}
}

func TestListFiltersByPackage(t *testing.T) {
	s := newTestStore(t)

	mustRecord := func(pkg string) {
		t.Helper()
		err := s.Record(pkg, model.DeltaEntry{Command: model.DeltaRemove, Section: "wan"})
		if err != nil {
			t.Fatalf("Record(%s): %v", pkg, err)
		}
	}
	mustRecord("network")
	mustRecord("firewall")
	mustRecord("network")

	records, err := s.List(ListOptions{Package: "network"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 network records, got %d", len(records))
	}
	for _, r := range records {
		if r.Package != "network" {
			t.Fatalf("unexpected package in filtered results: %s", r.Package)
		}
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.Record("network", model.DeltaEntry{Command: model.DeltaListAdd, Section: "lan", HasValue: true, Value: "eth0"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	records, err := s.List(ListOptions{Package: "network"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i := 0; i+1 < len(records); i++ {
		if records[i].ID < records[i+1].ID {
			t.Fatalf("expected newest-first ordering, got ids %v", []int64{records[0].ID, records[1].ID, records[2].ID})
		}
	}
}

func TestPruneRemovesOnlyMatchingPackage(t *testing.T) {
	s := newTestStore(t)

	if err := s.Record("network", model.DeltaEntry{Command: model.DeltaRemove, Section: "wan"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Record("firewall", model.DeltaEntry{Command: model.DeltaRemove, Section: "rule"}); err != nil {
		t.Fatal(err)
	}

	n, err := s.Prune("network")
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row pruned, got %d", n)
	}

	remaining, err := s.List(ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Package != "firewall" {
		t.Fatalf("expected only firewall to remain, got %+v", remaining)
	}
}

func TestRecordImplementsHistoryInterface(t *testing.T) {
	s := newTestStore(t)
	var _ interface {
		Record(pkgName string, entry model.DeltaEntry) error
	} = s
}
