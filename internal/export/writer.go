// =============================================================================
// YO TE LLEVO Importer - Manifest Writer
// =============================================================================
//
// This module writes the passenger manifest of a trip as an XLSX workbook in
// the same layout the importer reads:
//   - the destination in the destination cell
//   - one caption per field in the header row
//   - one row per reservation member, payer first
//   - the pricing table
//
// Each reservation's name cells get their own fill colour, so importing the
// manifest again rebuilds the same family clusters.
//
// =============================================================================

package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yotellevo/passenger-import/internal/config"
	"github.com/yotellevo/passenger-import/internal/normalize"
	"github.com/yotellevo/passenger-import/internal/types"
)

// ErrTripNotFound is returned when the requested trip does not exist.
var ErrTripNotFound = errors.New("trip not found")

// DefaultSheetName is used when the layout does not name a sheet.
const DefaultSheetName = "Pasajeros"

// palette holds the first reservation colours. Later reservations get
// generated colours, all distinct and never white or black.
var palette = []string{
	"FFF2CC", "DDEBF7", "E2EFDA", "FCE4D6", "EDE1F5", "D9F2F2",
	"FFD966", "9BC2E6", "A9D08E", "F4B084", "C9A9E0", "8FD3D3",
}

// column is one manifest column: its header caption and the value it takes
// for a member. A nil value leaves the cell empty.
type column struct {
	caption string
	value   func(m member) interface{}
}

// member is one manifest row.
type member struct {
	passenger   types.Passenger
	reservation types.Reservation
	payer       bool
	boarding    string
	seller      string
}

// =============================================================================
// MANIFEST
// =============================================================================

// Manifest builds the workbook for tripID. Rows come from the trip's
// reservations: the payer first, then the other members.
//
// Passengers that joined no reservation are not written. They carry no trip
// link, so a manifest that is imported again reproduces the reservations
// but not those passengers.
//
// PARAMETERS:
//   - c: The collections to read from.
//   - tripID: The trip to export.
//   - layout: The template layout to write.
//
// RETURNS:
//   - The workbook. The caller saves and closes it.
//   - ErrTripNotFound, or an error when the members do not fit the data range.
func Manifest(c *types.Collections, tripID string, layout config.TemplateLayout) (*excelize.File, error) {
	trip := c.FindTrip(tripID)
	if trip == nil {
		return nil, fmt.Errorf("%w: %s", ErrTripNotFound, tripID)
	}

	headerCol, headerRow, err := rangeStart(layout.HeaderRange)
	if err != nil {
		return nil, err
	}
	dataCol, dataRow, err := rangeStart(layout.DataRange)
	if err != nil {
		return nil, err
	}
	_, lastDataRow, err := rangeEnd(layout.DataRange)
	if err != nil {
		return nil, err
	}

	members := collectMembers(c, tripID)
	if dataRow+len(members)-1 > lastDataRow {
		return nil, fmt.Errorf("%d passengers do not fit data range %s", len(members), layout.DataRange)
	}

	f := excelize.NewFile()
	sheet := layout.Sheet
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := writeManifest(f, sheet, trip, members, layout, headerCol, headerRow, dataCol, dataRow); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeManifest(f *excelize.File, sheet string, trip *types.Trip, members []member, layout config.TemplateLayout, headerCol, headerRow, dataCol, dataRow int) error {
	if layout.DestinationCell != "" {
		if err := f.SetCellValue(sheet, layout.DestinationCell, trip.Destination); err != nil {
			return fmt.Errorf("failed to write destination: %w", err)
		}
	}

	// Name first, birth date third. See columns.
	cols := columns(layout.Headers)

	for i, col := range cols {
		if err := f.SetCellValue(sheet, cellName(headerCol+i, headerRow), col.caption); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	fills := make(map[string]int)
	colorIndex := make(map[string]int)
	for i, m := range members {
		row := dataRow + i
		for j, col := range cols {
			v := col.value(m)
			if v == nil {
				continue
			}
			if err := f.SetCellValue(sheet, cellName(dataCol+j, row), v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}

		if m.passenger.BirthDate != nil {
			birthCell := cellName(dataCol+2, row)
			if err := f.SetCellStyle(sheet, birthCell, birthCell, dateStyle); err != nil {
				return fmt.Errorf("failed to style row %d: %w", row, err)
			}
		}

		if _, ok := colorIndex[m.reservation.ID]; !ok {
			colorIndex[m.reservation.ID] = len(colorIndex)
		}
		color := reservationColor(colorIndex[m.reservation.ID])
		style, ok := fills[color]
		if !ok {
			style, err = f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#" + color}},
			})
			if err != nil {
				return fmt.Errorf("failed to create fill style: %w", err)
			}
			fills[color] = style
		}
		nameCell := cellName(dataCol, row)
		if err := f.SetCellStyle(sheet, nameCell, nameCell, style); err != nil {
			return fmt.Errorf("failed to style row %d: %w", row, err)
		}
	}

	if layout.PricingRange != "" {
		pc, pr, err := rangeStart(layout.PricingRange)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cellName(pc, pr), &[]interface{}{"TARIFA", "PRECIO"}); err != nil {
			return fmt.Errorf("failed to write pricing: %w", err)
		}
		for i, tier := range trip.PricingTiers {
			if err := f.SetSheetRow(sheet, cellName(pc, pr+1+i), &[]interface{}{tier.Name, tier.Price}); err != nil {
				return fmt.Errorf("failed to write pricing: %w", err)
			}
		}
	}

	return nil
}

// columns lists the manifest columns. Each caption is the first spelling of
// the field in the header dictionary, so the import resolves it.
func columns(h config.HeaderDictionary) []column {
	first := func(aliases []string) string {
		if len(aliases) == 0 {
			return ""
		}
		return aliases[0]
	}
	payerOnly := func(fn func(m member) interface{}) func(m member) interface{} {
		return func(m member) interface{} {
			if !m.payer {
				return nil
			}
			return fn(m)
		}
	}

	cols := []column{
		{first(h.Name), func(m member) interface{} { return m.passenger.FullName }},
		{first(h.DNI), func(m member) interface{} { return m.passenger.DNI }},
		{first(h.BirthDate), func(m member) interface{} {
			if m.passenger.BirthDate == nil {
				return nil
			}
			return normalize.ExcelSerial(*m.passenger.BirthDate)
		}},
		{first(h.Phone), func(m member) interface{} { return nilIfEmpty(m.passenger.Phone) }},
		{first(h.Boarding), func(m member) interface{} { return nilIfEmpty(m.boarding) }},
		{first(h.Quantity), payerOnly(func(m member) interface{} { return m.reservation.PassengerCount })},
		{first(h.Value), payerOnly(func(m member) interface{} {
			if m.reservation.FinalPrice == 0 {
				return nil
			}
			return m.reservation.FinalPrice
		})},
	}

	for i := 0; i < len(h.Installments) && i < config.MaxInstallments; i++ {
		number := i + 1
		cols = append(cols, column{first(h.Installments[i]), payerOnly(func(m member) interface{} {
			for _, inst := range m.reservation.Installments {
				if inst.Number == number && inst.Paid {
					return inst.Amount
				}
			}
			return nil
		})})
	}

	cols = append(cols, column{first(h.Seller), payerOnly(func(m member) interface{} { return nilIfEmpty(m.seller) })})
	return cols
}

// collectMembers lists the members of every reservation of tripID, payer
// first, in reservation order.
func collectMembers(c *types.Collections, tripID string) []member {
	passengers := c.PassengerByID()

	boarding := make(map[string]string, len(c.BoardingPoints))
	for _, bp := range c.BoardingPoints {
		boarding[bp.ID] = bp.ID + " - " + bp.Name
	}
	sellers := make(map[string]string, len(c.Sellers))
	for _, s := range c.Sellers {
		sellers[s.ID] = s.Name
	}

	var members []member
	for _, r := range c.Reservations {
		if r.TripID != tripID {
			continue
		}
		for i, id := range r.PassengerIDs {
			p, ok := passengers[id]
			if !ok {
				continue
			}
			code := boarding[p.BoardingPointID]
			if code == "" {
				code = p.BoardingPointID
			}
			members = append(members, member{
				passenger:   *p,
				reservation: r,
				payer:       i == 0,
				boarding:    code,
				seller:      sellers[r.SellerID],
			})
		}
	}
	return members
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func reservationColor(i int) string {
	if i < len(palette) {
		return palette[i]
	}
	return fmt.Sprintf("%06X", 0x404040+i)
}

func nilIfEmpty(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func rangeStart(ref string) (int, int, error) {
	parts := strings.Split(ref, ":")
	col, row, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: %w", ref, err)
	}
	return col, row, nil
}

func rangeEnd(ref string) (int, int, error) {
	parts := strings.Split(ref, ":")
	col, row, err := excelize.CellNameToCoordinates(parts[len(parts)-1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: %w", ref, err)
	}
	return col, row, nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
