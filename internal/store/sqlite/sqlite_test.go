package sqlite

import (
	"path/filepath"
	"testing"

	"agrimarket/internal/refdata"
)

func TestSeedAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refdata.db")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	custom, err := refdata.NewTable([]refdata.Commodity{
		{Name: "大豆", BasePrice: 5.1},
		{Name: "高粱", BasePrice: 3.2},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Seed(custom); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	// Re-seeding replaces rather than duplicates.
	if err := w.Seed(custom); err != nil {
		t.Fatalf("re-Seed: %v", err)
	}
	w.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	tbl, err := r.LoadTable()
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}

	cs := tbl.Commodities()
	if len(cs) != 2 || cs[0].Name != "大豆" || cs[1].BasePrice != 3.2 {
		t.Errorf("unexpected commodities %+v", cs)
	}

	want := refdata.Default().Products(refdata.Fruits)
	got := tbl.Products(refdata.Fruits)
	if len(got) != len(want) {
		t.Fatalf("fruits: got %d products, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fruit %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestNewReader_MissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Fatal("expected error opening a missing read-only database")
	}
}
