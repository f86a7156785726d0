// =============================================================================
// YO TE LLEVO Importer - XLSX Passenger Sheet Reader
// =============================================================================
//
// This module reads the agency's passenger spreadsheet (.xlsx, or legacy .xls
// through legacy.go). The template is fixed
// and position based:
//
//   | B1: destination |
//   | Row 3 (header range)  | PASAJERO | DNI | F. NAC. | TEL | SUBE | CANT | VALOR | SEÑA | ... | VENDEDOR |   | TARIFA | PRECIO |
//   | Rows 4.. (data range) | ...                                                                           | Mayor  | 100000 |
//
// The reader returns:
//   - a map from normalized header caption to column letter
//   - the data rows, each addressable by column letter, with the fill colour
//     of every non-empty cell (family clusters are marked by colour)
//   - the pricing table (tier name -> price)
//
// Nothing is auto-detected. A spreadsheet that deviates from the configured
// ranges is read as empty or garbage rows.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yotellevo/passenger-import/internal/config"
	"github.com/yotellevo/passenger-import/internal/normalize"
	"github.com/yotellevo/passenger-import/internal/types"
)

// ErrUnreadable is returned for any file that cannot be opened as the
// passenger template. No partial result accompanies it.
var ErrUnreadable = errors.New("could not read file")

// Workbook formats.
const (
	FormatXLSX = "xlsx"
	FormatXLS  = "xls"
)

// =============================================================================
// SHEET STRUCTURE
// =============================================================================

// Sheet is the parsed content of the passenger spreadsheet.
type Sheet struct {
	// Name is the sheet that was read.
	Name string

	// Format is FormatXLSX or FormatXLS.
	Format string

	// Destination is the value of the destination cell. May be empty.
	Destination string

	// Headers maps a normalized header caption to its column letter.
	Headers map[string]string

	// Rows are the non-empty rows of the data range, in sheet order.
	Rows []Row

	// PricingTiers is the pricing table in sheet order.
	PricingTiers []types.PricingTier
}

// Row is one spreadsheet row of the data range.
type Row struct {
	// Number is the 1-based sheet row number.
	Number int

	// Cells maps column letter to the raw (unformatted) cell value.
	Cells map[string]string

	// Fills maps column letter to the normalized RRGGBB fill colour of the
	// cell. Cells without a pattern fill are absent, and so are all cells of
	// a legacy .xls workbook.
	Fills map[string]string
}

// Cell returns the trimmed value in column col, or "" when col is unknown.
func (r Row) Cell(col string) string {
	if col == "" {
		return ""
	}
	return strings.TrimSpace(r.Cells[col])
}

// Fill returns the fill colour of the cell in column col.
func (r Row) Fill(col string) string {
	if col == "" {
		return ""
	}
	return r.Fills[col]
}

// =============================================================================
// COLUMN RESOLUTION
// =============================================================================

// Columns holds the column letter of each logical field. An empty string
// means the template has no such column.
type Columns struct {
	Name         string
	DNI          string
	BirthDate    string
	Phone        string
	Boarding     string
	Quantity     string
	Value        string
	Seller       string
	Installments []string
}

// Columns resolves the header dictionary against the headers found in the
// sheet. The first alias present wins.
func (s *Sheet) Columns(dict config.HeaderDictionary) Columns {
	find := func(aliases []string) string {
		for _, a := range aliases {
			if col, ok := s.Headers[normalize.Header(a)]; ok {
				return col
			}
		}
		return ""
	}

	cols := Columns{
		Name:      find(dict.Name),
		DNI:       find(dict.DNI),
		BirthDate: find(dict.BirthDate),
		Phone:     find(dict.Phone),
		Boarding:  find(dict.Boarding),
		Quantity:  find(dict.Quantity),
		Value:     find(dict.Value),
		Seller:    find(dict.Seller),
	}
	for _, aliases := range dict.Installments {
		if col := find(aliases); col != "" {
			cols.Installments = append(cols.Installments, col)
		}
	}
	return cols
}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// ReadFile reads a spreadsheet from disk. See Read.
func ReadFile(path string, layout config.TemplateLayout) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return Read(data, layout)
}

// Read parses raw spreadsheet bytes according to layout. Legacy .xls
// workbooks are recognised by their OLE2 signature and read without fill
// colours.
//
// PARAMETERS:
//   - data: The .xlsx or .xls file contents.
//   - layout: The fixed ranges and the sheet to read.
//
// RETURNS:
//   - The parsed Sheet.
//   - An error wrapping ErrUnreadable if the bytes are not a workbook, the
//     sheet is missing or a configured range is malformed.
func Read(data []byte, layout config.TemplateLayout) (*Sheet, error) {
	if bytes.HasPrefix(data, oleSignature) {
		return readLegacy(data, layout)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()

	sheetName := layout.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrUnreadable, sheetName)
	}

	// Raw values keep serial dates and plain numbers unformatted.
	grid, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	fills := &fillReader{file: f, sheet: sheetName, cache: make(map[int]string)}
	return buildSheet(sheetName, FormatXLSX, grid, layout, fills)
}

// buildSheet extracts destination, headers, rows and pricing from a grid of
// raw cell values. Both workbook formats end up here.
func buildSheet(name, format string, grid [][]string, layout config.TemplateLayout, fills colorSource) (*Sheet, error) {
	headerRange, err := parseRange(layout.HeaderRange)
	if err != nil {
		return nil, fmt.Errorf("%w: header range: %w", ErrUnreadable, err)
	}
	dataRange, err := parseRange(layout.DataRange)
	if err != nil {
		return nil, fmt.Errorf("%w: data range: %w", ErrUnreadable, err)
	}

	sheet := &Sheet{
		Name:   name,
		Format: format,
	}

	if layout.DestinationCell != "" {
		if col, row, err := excelize.CellNameToCoordinates(layout.DestinationCell); err == nil {
			sheet.Destination = strings.TrimSpace(gridValue(grid, row, col))
		}
	}

	sheet.Headers = readHeaders(grid, headerRange)

	sheet.Rows, err = readRows(grid, dataRange, fills)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	if layout.PricingRange != "" {
		pricingRange, err := parseRange(layout.PricingRange)
		if err != nil {
			return nil, fmt.Errorf("%w: pricing range: %w", ErrUnreadable, err)
		}
		sheet.PricingTiers = readPricing(grid, pricingRange)
	}

	return sheet, nil
}

// readHeaders maps each non-empty caption of the header row to its column.
// When a caption repeats, the left-most column wins.
func readHeaders(grid [][]string, r cellRange) map[string]string {
	headers := make(map[string]string)
	for col := r.firstCol; col <= r.lastCol; col++ {
		caption := normalize.Header(gridValue(grid, r.firstRow, col))
		if caption == "" {
			continue
		}
		if _, exists := headers[caption]; !exists {
			headers[caption] = columnName(col)
		}
	}
	return headers
}

// readRows collects the non-empty rows of the data range.
func readRows(grid [][]string, r cellRange, fills colorSource) ([]Row, error) {
	var rows []Row
	for rowNum := r.firstRow; rowNum <= r.lastRow; rowNum++ {
		if rowNum > len(grid) {
			break
		}

		row := Row{
			Number: rowNum,
			Cells:  make(map[string]string),
			Fills:  make(map[string]string),
		}
		for col := r.firstCol; col <= r.lastCol; col++ {
			value := strings.TrimSpace(gridValue(grid, rowNum, col))
			if value == "" {
				continue
			}
			letter := columnName(col)
			row.Cells[letter] = value

			color, err := fills.color(letter, rowNum)
			if err != nil {
				return nil, err
			}
			if color != "" {
				row.Fills[letter] = color
			}
		}

		if len(row.Cells) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readPricing reads name/price pairs from the first two columns of r.
// Rows without a name or a parseable price (such as a caption row) are
// skipped.
func readPricing(grid [][]string, r cellRange) []types.PricingTier {
	var tiers []types.PricingTier
	for rowNum := r.firstRow; rowNum <= r.lastRow; rowNum++ {
		name := strings.TrimSpace(gridValue(grid, rowNum, r.firstCol))
		if name == "" {
			continue
		}
		price, ok := normalize.Amount(gridValue(grid, rowNum, r.firstCol+1))
		if !ok {
			continue
		}
		tiers = append(tiers, types.PricingTier{Name: name, Price: price})
	}
	return tiers
}

// =============================================================================
// FILL COLOURS
// =============================================================================

// colorSource resolves the fill colour of a cell. An empty colour means the
// cell has no pattern fill.
type colorSource interface {
	color(col string, row int) (string, error)
}

// fillReader resolves cell fill colours, caching by style id. Theme and
// indexed colours come back from excelize already resolved to RGB.
type fillReader struct {
	file  *excelize.File
	sheet string
	cache map[int]string
}

func (fr *fillReader) color(col string, row int) (string, error) {
	cell := col + fmt.Sprint(row)
	styleID, err := fr.file.GetCellStyle(fr.sheet, cell)
	if err != nil {
		return "", err
	}
	if styleID == 0 {
		return "", nil
	}
	if c, ok := fr.cache[styleID]; ok {
		return c, nil
	}

	color := ""
	style, err := fr.file.GetStyle(styleID)
	if err == nil && style != nil && style.Fill.Pattern > 0 && len(style.Fill.Color) > 0 {
		color = NormalizeColor(style.Fill.Color[0])
	}
	fr.cache[styleID] = color
	return color, nil
}

// NormalizeColor turns "#ffff00", "FFFF00" and ARGB "FFFFFF00" into "FFFF00".
func NormalizeColor(c string) string {
	c = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(c), "#"))
	if len(c) == 8 {
		c = c[2:]
	}
	return c
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// cellRange is a rectangular A1-style range with 1-based coordinates.
type cellRange struct {
	firstCol, firstRow int
	lastCol, lastRow   int
}

// parseRange parses "A3:P3" into coordinates.
func parseRange(ref string) (cellRange, error) {
	parts := strings.Split(strings.TrimSpace(ref), ":")
	if len(parts) != 2 {
		return cellRange{}, fmt.Errorf("invalid range %q", ref)
	}
	c1, r1, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return cellRange{}, fmt.Errorf("invalid range %q: %w", ref, err)
	}
	c2, r2, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return cellRange{}, fmt.Errorf("invalid range %q: %w", ref, err)
	}
	if c2 < c1 || r2 < r1 {
		return cellRange{}, fmt.Errorf("invalid range %q: end before start", ref)
	}
	return cellRange{firstCol: c1, firstRow: r1, lastCol: c2, lastRow: r2}, nil
}

// gridValue safely indexes the GetRows result with 1-based coordinates.
func gridValue(grid [][]string, row, col int) string {
	if row < 1 || row > len(grid) {
		return ""
	}
	cells := grid[row-1]
	if col < 1 || col > len(cells) {
		return ""
	}
	return cells[col-1]
}

func columnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	return name
}
