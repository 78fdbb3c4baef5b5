// Package report renders an analysis result into the order-builder workbook
// that buyers work from.
package report

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/greenridge/replen/internal/domain"
	"github.com/greenridge/replen/internal/engine"
)

const sheetName = "Order Builder"

// keyColumns lead every row; one block of locationColumns follows per store.
var keyColumns = []string{"SKU", "Product Name", "Category", "Brand", "Case Size"}

var locationColumns = []string{"Status", "Buy (Cs)", "Inc", "Sold", "Stock", "Vel", "WOS", "Trend"}

// locationFills match the store colors buyers already know from the manual
// sheet this replaces.
var locationFills = map[domain.Location]string{
	domain.LocationHill:   "#B4C6E7",
	domain.LocationValley: "#F8CBAD",
	domain.LocationJasper: "#C6E0B4",
}

const buyHighlightFill = "#FFFF00"

// WriteWorkbook writes the order-builder workbook for one run to path.
func WriteWorkbook(path string, result *engine.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("report: create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("report: drop default sheet: %w", err)
	}

	grouped := groupBySKU(result.Rows)
	if err := writeHeader(f); err != nil {
		return err
	}
	if err := writeRows(f, grouped); err != nil {
		return err
	}

	// Keep the key columns and both header rows in view while scrolling.
	err = f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      len(keyColumns),
		YSplit:      2,
		TopLeftCell: "F3",
		ActivePane:  "bottomRight",
	})
	if err != nil {
		return fmt.Errorf("report: freeze panes: %w", err)
	}

	if err := f.SetColWidth(sheetName, "A", "A", 16); err != nil {
		return fmt.Errorf("report: set widths: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "B", 40); err != nil {
		return fmt.Errorf("report: set widths: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

// skuLine is one workbook row, with the per-location cells keyed by store.
type skuLine struct {
	sku       string
	name      string
	category  string
	brand     string
	caseSize  int
	locations map[domain.Location]domain.SKUReport
}

func groupBySKU(rows []domain.SKUReport) []skuLine {
	byKey := make(map[string]*skuLine)
	for _, row := range rows {
		line, ok := byKey[row.SKU]
		if !ok {
			line = &skuLine{
				sku:       row.SKU,
				name:      row.ProductName,
				category:  row.Category,
				brand:     row.Brand,
				caseSize:  row.CaseSize,
				locations: make(map[domain.Location]domain.SKUReport),
			}
			byKey[row.SKU] = line
		}
		line.locations[row.Location] = row
	}

	lines := make([]skuLine, 0, len(byKey))
	for _, line := range byKey {
		lines = append(lines, *line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].sku < lines[j].sku })
	return lines
}

func writeHeader(f *excelize.File) error {
	for i, name := range keyColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return fmt.Errorf("report: header: %w", err)
		}
	}

	col := len(keyColumns) + 1
	for _, loc := range domain.Locations {
		bandStyle, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{locationFills[loc]}, Pattern: 1},
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			return fmt.Errorf("report: band style: %w", err)
		}

		start, _ := excelize.CoordinatesToCellName(col, 1)
		end, _ := excelize.CoordinatesToCellName(col+len(locationColumns)-1, 1)
		if err := f.MergeCell(sheetName, start, end); err != nil {
			return fmt.Errorf("report: merge band: %w", err)
		}
		if err := f.SetCellValue(sheetName, start, string(loc)); err != nil {
			return fmt.Errorf("report: band label: %w", err)
		}
		if err := f.SetCellStyle(sheetName, start, end, bandStyle); err != nil {
			return fmt.Errorf("report: band style: %w", err)
		}

		for i, name := range locationColumns {
			cell, _ := excelize.CoordinatesToCellName(col+i, 2)
			if err := f.SetCellValue(sheetName, cell, name); err != nil {
				return fmt.Errorf("report: header: %w", err)
			}
			if err := f.SetCellStyle(sheetName, cell, cell, bandStyle); err != nil {
				return fmt.Errorf("report: header style: %w", err)
			}
		}
		col += len(locationColumns)
	}
	return nil
}

func writeRows(f *excelize.File, lines []skuLine) error {
	buyStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{buyHighlightFill}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("report: buy style: %w", err)
	}

	for i, line := range lines {
		rowNum := i + 3
		keyCells := []any{line.sku, line.name, line.category, line.brand, line.caseSize}
		for c, v := range keyCells {
			cell, _ := excelize.CoordinatesToCellName(c+1, rowNum)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("report: row %d: %w", rowNum, err)
			}
		}

		col := len(keyColumns) + 1
		for _, loc := range domain.Locations {
			row, here := line.locations[loc]
			if here {
				if err := writeLocationBlock(f, col, rowNum, row, buyStyle); err != nil {
					return err
				}
			}
			col += len(locationColumns)
		}
	}
	return nil
}

func writeLocationBlock(f *excelize.File, col, rowNum int, row domain.SKUReport, buyStyle int) error {
	buyCases := 0
	if row.CaseSize > 0 {
		buyCases = row.SOQ / row.CaseSize
	}

	wos := any(round1(row.WeeksOfStock))
	if row.WeeksOfStock >= engine.SilenceThreshold {
		wos = "∞"
	}

	values := []any{
		row.Status.Symbol(),
		buyCases,
		row.Incoming,
		row.UnitsSold,
		row.Stock,
		round1(row.Velocity),
		wos,
		row.Trend,
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+i, rowNum)
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("report: row %d: %w", rowNum, err)
		}
	}

	if buyCases > 0 {
		cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
		if err := f.SetCellStyle(sheetName, cell, cell, buyStyle); err != nil {
			return fmt.Errorf("report: buy highlight: %w", err)
		}
	}
	return nil
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
