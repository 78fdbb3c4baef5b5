package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/greenridge/replen/internal/config"
	"github.com/greenridge/replen/internal/domain"
	"github.com/greenridge/replen/internal/reconcile"
)

// stockColumnTokens mark inventory-extract columns that hold on-hand
// quantities for a location (e.g. "Hill Sales Floor", "Valley Storage").
var stockColumnTokens = []string{"sales", "storage", "inventory"}

// ReadInventory parses the inventory extract. Each location's stock cells are
// collected from every column whose header names the location together with a
// sales-floor/storage/inventory token; summing and cleaning happen in the
// reconciler.
func ReadInventory(path string, cols config.ColumnMap) ([]reconcile.InventoryRow, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("inventory extract: %w", err)
	}

	idxSKU := t.ColIndex(cols.InventorySKU, cols.SKU)
	if idxSKU < 0 {
		return nil, fmt.Errorf("inventory extract %s: missing SKU column %q", path, cols.InventorySKU)
	}
	idxName := t.ColIndex(cols.Description, "name")
	idxCategory := t.ColIndex("category")
	idxBrand := t.ColIndex("brand")

	// Map each location to the indices of its stock columns.
	stockIdx := make(map[domain.Location][]int)
	for i, h := range t.Header {
		if i == idxSKU {
			continue
		}
		loc := domain.NormalizeLocation(h)
		if loc == domain.LocationUnmapped {
			continue
		}
		lower := strings.ToLower(h)
		for _, token := range stockColumnTokens {
			if strings.Contains(lower, token) {
				stockIdx[loc] = append(stockIdx[loc], i)
				break
			}
		}
	}
	if len(stockIdx) == 0 {
		return nil, fmt.Errorf("inventory extract %s: no location-tagged stock columns found", path)
	}

	rows := make([]reconcile.InventoryRow, 0, len(t.Rows))
	for _, record := range t.Rows {
		row := reconcile.InventoryRow{
			SKU:         t.Cell(record, idxSKU),
			ProductName: t.Cell(record, idxName),
			Category:    t.Cell(record, idxCategory),
			Brand:       t.Cell(record, idxBrand),
			StockCells:  make(map[domain.Location][]string, len(stockIdx)),
		}
		for loc, idxs := range stockIdx {
			for _, i := range idxs {
				row.StockCells[loc] = append(row.StockCells[loc], t.Cell(record, i))
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// lastSaleLayouts are the date encodings seen in point-of-sale exports.
var lastSaleLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", time.RFC3339}

// ReadSales parses the sales extract. The last-sale column is optional.
func ReadSales(path string, cols config.ColumnMap) ([]reconcile.SalesRow, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("sales extract: %w", err)
	}

	idxSKU := t.ColIndex(cols.SKU)
	idxQty := t.ColIndex(cols.QtySold)
	if idxSKU < 0 || idxQty < 0 {
		return nil, fmt.Errorf("sales extract %s: missing %q or %q column", path, cols.SKU, cols.QtySold)
	}
	idxLoc := t.ColIndex(cols.Location)
	idxLastSale := t.ColIndex(cols.LastSale)

	rows := make([]reconcile.SalesRow, 0, len(t.Rows))
	for _, record := range t.Rows {
		row := reconcile.SalesRow{
			SKU:      t.Cell(record, idxSKU),
			Location: t.Cell(record, idxLoc),
			QtySold:  t.Cell(record, idxQty),
		}
		if raw := t.Cell(record, idxLastSale); raw != "" {
			for _, layout := range lastSaleLayouts {
				if d, err := time.Parse(layout, raw); err == nil {
					row.LastSale = &d
					break
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadTransfers parses a transfer extract. Files that omit explicit
// source/destination columns fall back to the provided defaults; the
// per-destination export style names only quantities moved to one location.
func ReadTransfers(path string, cols config.ColumnMap, fallbackSource, fallbackDest domain.Location) ([]domain.TransferRecord, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("transfer extract: %w", err)
	}

	idxSKU := t.ColIndex(cols.SKU)
	idxQty := t.ColIndex(cols.Quantity, cols.QtySold)
	if idxSKU < 0 || idxQty < 0 {
		return nil, fmt.Errorf("transfer extract %s: missing %q or %q column", path, cols.SKU, cols.Quantity)
	}
	idxSource := t.ColIndex(cols.Source, "from", "from location")
	idxDest := t.ColIndex(cols.Dest, "to", "to location")

	records := make([]domain.TransferRecord, 0, len(t.Rows))
	for _, record := range t.Rows {
		tr := domain.TransferRecord{
			SKU:      t.Cell(record, idxSKU),
			Quantity: reconcile.CleanCurrency(t.Cell(record, idxQty)),
			Source:   fallbackSource,
			Dest:     fallbackDest,
		}
		if raw := t.Cell(record, idxSource); raw != "" {
			tr.Source = domain.NormalizeLocation(raw)
		}
		if raw := t.Cell(record, idxDest); raw != "" {
			tr.Dest = domain.NormalizeLocation(raw)
		}
		if tr.Quantity < 0 {
			log.Warn().Str("sku", tr.SKU).Float64("quantity", tr.Quantity).Msg("transfer with negative quantity treated as zero")
			tr.Quantity = 0
		}
		records = append(records, tr)
	}
	return records, nil
}

// ReadPurchaseOrders parses the purchase-order extract.
func ReadPurchaseOrders(path string, cols config.ColumnMap) ([]domain.PurchaseOrderRecord, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("purchase order extract: %w", err)
	}

	idxSKU := t.ColIndex(cols.SKU)
	idxQty := t.ColIndex("qty ordered", "quantity ordered", cols.Quantity)
	if idxSKU < 0 || idxQty < 0 {
		return nil, fmt.Errorf("purchase order extract %s: missing SKU or quantity column", path)
	}

	records := make([]domain.PurchaseOrderRecord, 0, len(t.Rows))
	for _, record := range t.Rows {
		records = append(records, domain.PurchaseOrderRecord{
			SKU:      t.Cell(record, idxSKU),
			Quantity: reconcile.CleanCurrency(t.Cell(record, idxQty)),
		})
	}
	return records, nil
}

// caseRefHeaderOffset skips the title banner rows of the regulator's product
// catalogue; the real header sits on row 11.
const caseRefHeaderOffset = 10

// ReadCaseSizes parses the case-size reference workbook into a normalized
// SKU -> units-per-case map. Unparseable case sizes default to 1; a missing
// reference file is an optional input, handled by the caller.
func ReadCaseSizes(path string) (map[string]int, error) {
	t, err := readXLSX(path, caseRefHeaderOffset)
	if err != nil {
		return nil, fmt.Errorf("case size reference: %w", err)
	}

	idxSKU := t.ColIndex("aglc sku", "sku")
	idxCase := t.ColIndex("eachespercase", "case size")
	if idxSKU < 0 || idxCase < 0 {
		return nil, fmt.Errorf("case size reference %s: missing SKU or case size column", path)
	}

	sizes := make(map[string]int, len(t.Rows))
	for _, record := range t.Rows {
		sku := domain.NormalizeSKU(t.Cell(record, idxSKU))
		if sku == domain.NoValue {
			continue
		}
		size, err := strconv.ParseFloat(strings.ReplaceAll(t.Cell(record, idxCase), ",", ""), 64)
		if err != nil || size < 1 {
			size = 1
		}
		if _, ok := sizes[sku]; !ok {
			sizes[sku] = int(size)
		}
	}
	return sizes, nil
}
