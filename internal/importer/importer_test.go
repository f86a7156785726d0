package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yotellevo/passenger-import/internal/config"
	"github.com/yotellevo/passenger-import/internal/types"
	"github.com/yotellevo/passenger-import/internal/xlsxparser"
)

func newImporter(t *testing.T) *Importer {
	t.Helper()
	im := New(config.Default(), zap.NewNop().Sugar())
	im.NewTripID = func() string { return "trip-1" }
	im.Now = func() time.Time { return time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC) }
	return im
}

// agencySheet builds a spreadsheet with two families: the Perez (two rows,
// one reservation) and the Gomez (one payer and one row without DNI).
func agencySheet(t *testing.T, destination string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if destination != "" {
		f.SetCellValue(sheet, "B1", destination)
	}
	f.SetSheetRow(sheet, "A3", &[]interface{}{"PASAJERO", "DNI", "F. NAC.", "TELEFONO", "SUBE", "CANT", "VALOR", "SEÑA", "PAGO 2", "VENDEDOR"})
	f.SetSheetRow(sheet, "A4", &[]interface{}{"juan perez", 30123456, 31048, "1155550000", "A", 2, 200000, 100000})
	f.SetSheetRow(sheet, "A5", &[]interface{}{"ana perez", "31.222.333", nil, nil, "A"})
	f.SetSheetRow(sheet, "A6", &[]interface{}{"luis gomez", 28999111, nil, nil, "B - Plaza Mitre", 1, 100000, 60000, 40000})
	f.SetSheetRow(sheet, "A7", &[]interface{}{"sofia gomez", nil, nil, nil, "B"})

	yellow, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFFF00"}}})
	require.NoError(t, err)
	blue, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#00B0F0"}}})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "A4", "A5", yellow))
	require.NoError(t, f.SetCellStyle(sheet, "A6", "A7", blue))

	f.SetSheetRow(sheet, "R3", &[]interface{}{"TARIFA", "PRECIO"})
	f.SetSheetRow(sheet, "R4", &[]interface{}{"Mayor", 100000})
	f.SetSheetRow(sheet, "R5", &[]interface{}{"Menor", 80000})

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestImport(t *testing.T) {
	c := &types.Collections{}
	summary, err := newImporter(t).Import("Bariloche Julio 2026.xlsx", agencySheet(t, "bariloche"), c)
	require.NoError(t, err)

	assert.Equal(t, "Bariloche Julio 2026.xlsx", summary.FileName)
	assert.Equal(t, 1, summary.NewTrips)
	assert.Equal(t, "trip-1", summary.NewTripID)
	assert.Equal(t, "trip-1", summary.TripID)
	assert.Equal(t, 2, summary.NewReservations)
	assert.Equal(t, 3, summary.NewPassengers)
	assert.Zero(t, summary.UpdatedPassengers)
	assert.Equal(t, time.July, summary.SuggestedMonth)

	require.Len(t, c.Trips, 1)
	trip := c.Trips[0]
	assert.Equal(t, "Bariloche", trip.Destination)
	assert.Equal(t, float64(100000), trip.BasePrice)
	assert.Len(t, trip.PricingTiers, 2)
	assert.Equal(t, types.Transport{Type: "bus", Capacity: 60}, trip.Transport)
	assert.Nil(t, trip.DepartureAt)

	require.Len(t, c.Reservations, 2)
	perez, gomez := c.Reservations[0], c.Reservations[1]

	assert.Equal(t, "R-26-0001", perez.ID)
	assert.Equal(t, "trip-1", perez.TripID)
	assert.Equal(t, []string{"30123456", "31222333"}, perez.PassengerIDs)
	assert.Equal(t, types.PaymentPartial, perez.PaymentStatus)

	assert.Equal(t, "R-26-0002", gomez.ID)
	assert.Equal(t, []string{"28999111"}, gomez.PassengerIDs)
	assert.Equal(t, float64(100000), gomez.PaidAmount)
	assert.Equal(t, types.PaymentPaid, gomez.PaymentStatus)
	assert.Len(t, gomez.Installments, 2)

	assert.Equal(t, types.Counters{ReservationYear: 2026, ReservationSeq: 2}, c.Counters)
	assert.Equal(t, []types.BoardingPoint{{ID: "A", Name: "Parada A"}, {ID: "B", Name: "Plaza Mitre"}}, c.BoardingPoints)

	require.Len(t, c.Passengers, 3)
	assert.Equal(t, "Perez", c.Passengers[0].Family)
	assert.Equal(t, "Gomez", c.Passengers[2].Family)
	require.NotNil(t, c.Passengers[0].BirthDate)
	assert.Equal(t, 1985, c.Passengers[0].BirthDate.Year())
}

func TestImportTwiceUpdatesPassengers(t *testing.T) {
	c := &types.Collections{}
	im := newImporter(t)
	data := agencySheet(t, "bariloche")

	_, err := im.Import("Bariloche.xlsx", data, c)
	require.NoError(t, err)

	im.NewTripID = func() string { return "trip-2" }
	summary, err := im.Import("Bariloche.xlsx", data, c)
	require.NoError(t, err)

	assert.Zero(t, summary.NewTrips)
	assert.Empty(t, summary.NewTripID)
	assert.Equal(t, "trip-1", summary.TripID)
	assert.Zero(t, summary.NewPassengers)
	assert.Equal(t, 3, summary.UpdatedPassengers)
	assert.Equal(t, 2, summary.NewReservations)

	assert.Len(t, c.Trips, 1)
	assert.Len(t, c.Passengers, 3)
	require.Len(t, c.Reservations, 4)
	assert.Equal(t, "R-26-0004", c.Reservations[3].ID)
	assert.Len(t, c.BoardingPoints, 2)
}

func TestImportDestinationFromFileName(t *testing.T) {
	c := &types.Collections{}
	_, err := newImporter(t).Import("salta enero 2026.xlsx", agencySheet(t, ""), c)
	require.NoError(t, err)

	require.Len(t, c.Trips, 1)
	assert.Equal(t, "Salta", c.Trips[0].Destination)
}

func TestImportUnreadableFile(t *testing.T) {
	c := &types.Collections{Trips: []types.Trip{{ID: "trip-0", Destination: "Salta"}}}

	summary, err := newImporter(t).Import("lista.xls", []byte("not a workbook"), c)
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, ErrProcessFile)
	assert.ErrorIs(t, err, xlsxparser.ErrUnreadable)

	assert.Len(t, c.Trips, 1)
	assert.Empty(t, c.Reservations)
}

func TestImportWithoutKnownHeaders(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetRow("Sheet1", "A3", &[]interface{}{"COL1", "COL2"})
	f.SetSheetRow("Sheet1", "A4", &[]interface{}{"juan perez", 1})
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	f.Close()

	c := &types.Collections{}
	summary, err := newImporter(t).Import("Salta.xlsx", buf.Bytes(), c)
	require.NoError(t, err)

	assert.Zero(t, summary.NewPassengers)
	assert.Zero(t, summary.NewReservations)
	// The trip is still created from the file name.
	assert.Equal(t, 1, summary.NewTrips)
}
