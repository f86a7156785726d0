// =============================================================================
// YO TE LLEVO Importer - Legacy XLS Reader
// =============================================================================
//
// Older agency lists arrive as Excel 97-2003 (.xls, BIFF) workbooks. They are
// read into the same Sheet as .xlsx files, with one difference: cell fill
// colours are not extracted, so every row carries an empty Fills map. Family
// clustering by colour then yields one group per row unless a column key is
// configured.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"

	"github.com/yotellevo/passenger-import/internal/config"
)

// oleSignature opens every OLE2 compound file, which is the container of a
// BIFF workbook.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// legacyCharset is the encoding passed to the BIFF decoder for 8-bit strings.
const legacyCharset = "utf-8"

// readLegacy reads a BIFF workbook according to layout.
func readLegacy(data []byte, layout config.TemplateLayout) (sheet *Sheet, err error) {
	// The BIFF decoder panics on some truncated or corrupt files.
	defer func() {
		if r := recover(); r != nil {
			sheet, err = nil, fmt.Errorf("%w: malformed xls workbook: %v", ErrUnreadable, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), legacyCharset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if wb == nil {
		return nil, fmt.Errorf("%w: empty xls workbook", ErrUnreadable)
	}

	ws := findLegacySheet(wb, layout.Sheet)
	if ws == nil {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrUnreadable, layout.Sheet)
	}

	return buildSheet(ws.Name, FormatXLS, legacyGrid(ws), layout, noFills{})
}

// findLegacySheet returns the sheet called name, or the first sheet when
// name is empty.
func findLegacySheet(wb *xls.WorkBook, name string) *xls.WorkSheet {
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		if name == "" || ws.Name == name {
			return ws
		}
	}
	return nil
}

// legacyGrid copies a BIFF sheet into the same [][]string shape GetRows
// returns: row 1 at index 0, column A at index 0.
func legacyGrid(ws *xls.WorkSheet) [][]string {
	grid := make([][]string, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			continue
		}
		last := row.LastCol()
		if last < 0 {
			continue
		}
		cells := make([]string, last+1)
		for col := row.FirstCol(); col <= last; col++ {
			cells[col] = row.Col(col)
		}
		grid[i] = cells
	}
	return grid
}

// noFills is the colour source of a workbook without fill information.
type noFills struct{}

func (noFills) color(string, int) (string, error) { return "", nil }
