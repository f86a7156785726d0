// =============================================================================
// YO TE LLEVO Importer - Import Pipeline
// =============================================================================
//
// This module orchestrates one spreadsheet import, from raw bytes to merged
// collections.
//
// IMPORT PIPELINE:
//   1. Read the spreadsheet (headers, rows, fill colours, pricing table)
//   2. Resolve the columns from the header dictionary
//   3. Cluster rows into families by fill colour
//   4. Reconcile clusters into passengers and reservations
//   5. Merge into the caller's collections
//   6. Validate the merged collections (findings are logged)
//   7. Build the summary
//
// CONCURRENCY:
//   Imports are sequential. The collections and the reservation counter are
//   mutated in place without locking, so a caller must not run two imports
//   against the same collections at once.
//
// =============================================================================

package importer

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yotellevo/passenger-import/internal/config"
	"github.com/yotellevo/passenger-import/internal/grouping"
	"github.com/yotellevo/passenger-import/internal/merge"
	"github.com/yotellevo/passenger-import/internal/normalize"
	"github.com/yotellevo/passenger-import/internal/reconcile"
	"github.com/yotellevo/passenger-import/internal/types"
	"github.com/yotellevo/passenger-import/internal/validation"
	"github.com/yotellevo/passenger-import/internal/xlsxparser"
)

// ErrProcessFile is the single failure an import reports. The cause is
// wrapped alongside it.
var ErrProcessFile = errors.New("could not process file")

// =============================================================================
// IMPORTER STRUCTURE
// =============================================================================

// Logger is the logging surface the importer needs. *zap.SugaredLogger
// satisfies it.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Importer runs imports with a fixed configuration.
type Importer struct {
	cfg    *config.MainConfig
	logger Logger

	// Grouping overrides the family key extractor. nil groups by the fill
	// colour of the passenger name column.
	Grouping func(cols xlsxparser.Columns) grouping.KeyExtractor

	// NewTripID overrides trip id generation.
	NewTripID func() string

	// Now overrides the clock used by the reservation counter.
	Now func() time.Time
}

// New creates an Importer. logger may be nil, in which case the global zap
// logger is used.
func New(cfg *config.MainConfig, logger Logger) *Importer {
	if logger == nil {
		logger = zap.S()
	}
	return &Importer{cfg: cfg, logger: logger}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Import reads one spreadsheet and merges it into c.
//
// PARAMETERS:
//   - fileName: The original file name. It supplies the month guess and the
//     destination when the destination cell is empty.
//   - data: The spreadsheet bytes.
//   - c: The collections to merge into. Mutated in place, including the
//     reservation counter.
//
// RETURNS:
//   - The summary of what changed.
//   - An error wrapping ErrProcessFile when the file cannot be read. In that
//     case c is untouched.
func (im *Importer) Import(fileName string, data []byte, c *types.Collections) (*types.Summary, error) {
	start := time.Now()
	im.logger.Infof("importing %s", fileName)

	// =========================================================================
	// STEP 1: READ SPREADSHEET
	// =========================================================================

	sheet, err := xlsxparser.Read(data, im.cfg.Layout)
	if err != nil {
		im.logger.Errorf("failed to read %s: %v", fileName, err)
		return nil, fmt.Errorf("%w: %w", ErrProcessFile, err)
	}
	im.logger.Debugf("read %d rows and %d pricing tiers from sheet %q", len(sheet.Rows), len(sheet.PricingTiers), sheet.Name)

	// =========================================================================
	// STEP 2: RESOLVE COLUMNS
	// =========================================================================

	cols := sheet.Columns(im.cfg.Layout.Headers)
	if cols.Name == "" || cols.DNI == "" {
		// Without these every row is skipped; the import still "succeeds".
		im.logger.Warnf("%s: name or DNI column not found in header range %s", fileName, im.cfg.Layout.HeaderRange)
	}

	// =========================================================================
	// STEP 3: CLUSTER FAMILIES
	// =========================================================================

	var extractor grouping.KeyExtractor = grouping.FillColorKey{Column: cols.Name}
	if im.Grouping != nil {
		extractor = im.Grouping(cols)
	} else if sheet.Format == xlsxparser.FormatXLS {
		im.logger.Warnf("%s: legacy .xls carries no fill colours; every row is its own family", fileName)
	}
	groups := grouping.Cluster(sheet.Rows, cols.Name, extractor)
	im.logger.Debugf("clustered into %d families", len(groups))

	// =========================================================================
	// STEP 4: RECONCILE
	// =========================================================================

	counter := reconcile.NewSequenceCounter(c.Counters, im.cfg.ReservationIDWidth, im.Now)
	engine := &reconcile.Engine{
		Columns:        cols,
		Counter:        counter,
		BoardingPoints: c.BoardingPoints,
		Sellers:        c.Sellers,
		Location:       im.cfg.Location(),
	}
	result := engine.Run(groups)

	for _, row := range result.SkippedRows {
		im.logger.Debugf("row %d skipped: no DNI", row)
	}
	for _, id := range result.Unassigned {
		im.logger.Debugf("passenger %s joined no reservation", id)
	}

	// =========================================================================
	// STEP 5: MERGE
	// =========================================================================

	trip := im.buildTrip(fileName, sheet)
	summary := merge.Merge(c, merge.Imported{
		Trip:           trip,
		Passengers:     result.Passengers,
		Reservations:   result.Reservations,
		BoardingPoints: result.BoardingPoints,
	}, im.NewTripID)
	c.Counters = counter.State()

	// =========================================================================
	// STEP 6: VALIDATE
	// =========================================================================

	report := validation.Validate(c)
	for _, finding := range report.Errors {
		im.logger.Warnf("validation: %s", finding.Error())
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	summary.FileName = fileName
	summary.SuggestedMonth = normalize.MonthFromFileName(fileName)

	im.logger.Infof("imported %s in %s: %d new trip(s), %d new reservation(s), %d new passenger(s), %d updated passenger(s)",
		fileName, time.Since(start), summary.NewTrips, summary.NewReservations, summary.NewPassengers, summary.UpdatedPassengers)

	return &summary, nil
}

// buildTrip derives the trip from the sheet. The destination cell wins; the
// file name is the fallback.
func (im *Importer) buildTrip(fileName string, sheet *xlsxparser.Sheet) types.Trip {
	destination := normalize.TitleCase(sheet.Destination)
	if destination == "" {
		destination = normalize.DestinationFromFileName(fileName)
	}

	trip := types.Trip{
		Destination:  destination,
		PricingTiers: sheet.PricingTiers,
		Transport:    im.cfg.DefaultTransport,
	}
	if trip.PricingTiers == nil {
		trip.PricingTiers = []types.PricingTier{}
	}
	if len(sheet.PricingTiers) > 0 {
		trip.BasePrice = sheet.PricingTiers[0].Price
	}
	return trip
}
