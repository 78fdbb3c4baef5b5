package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadTableCSV(t *testing.T) {
	path := writeFile(t, "extract.csv", "SKU,Quantity\nCNB-1,3\nCNB-2,\"1,200\"\n")

	table, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(table.Header) != 2 || len(table.Rows) != 2 {
		t.Fatalf("unexpected shape: header=%d rows=%d", len(table.Header), len(table.Rows))
	}
	if got := table.Cell(table.Rows[1], 1); got != "1,200" {
		t.Errorf("quoted cell = %q, want %q", got, "1,200")
	}
}

func TestReadTableRaggedRows(t *testing.T) {
	path := writeFile(t, "ragged.csv", "SKU,Quantity,Extra\nCNB-1,3\nCNB-2,4,x,y\n")

	table, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got := table.Cell(table.Rows[0], 2); got != "" {
		t.Errorf("missing cell = %q, want empty", got)
	}
}

func TestReadTableUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "extract.txt", "whatever")
	if _, err := ReadTable(path); err == nil {
		t.Fatal("unsupported extension should error")
	}
}

func TestColIndexMatching(t *testing.T) {
	table := &Table{Header: []string{"  SKU ", "Net sales", "Gross_Sales", "Last-Sale"}}

	cases := []struct {
		name     string
		expected int
	}{
		{"sku", 0},
		{"Net Sales", 1},
		{"netsales", 1},
		{"gross sales", 2},
		{"Last Sale", 3},
		{"profit", -1},
	}
	for _, tc := range cases {
		if got := table.ColIndex(tc.name); got != tc.expected {
			t.Errorf("ColIndex(%q) = %d, want %d", tc.name, got, tc.expected)
		}
	}
}

func TestColIndexFirstHeaderWins(t *testing.T) {
	table := &Table{Header: []string{"Item Code", "SKU"}}
	if got := table.ColIndex("item code", "sku"); got != 0 {
		t.Errorf("ColIndex = %d, want 0", got)
	}
}
