// =============================================================================
// YO TE LLEVO Importer - Reservation Reconciliation Engine
// =============================================================================
//
// This module turns family clusters into passengers and reservations.
//
// PER CLUSTER:
//   1. Pick the main payer (first row with a quantity or value, else the
//      first row) and derive the family label from its surname. A label seen
//      earlier in the run gets a suffix: "Gomez", "Gomez (2)", ...
//   2. Build a passenger for every row (title-cased name, digits-only DNI,
//      decoded birth date, phone, boarding point, family label).
//   3. Split rows into payers (quantity or value present) and dependents.
//   4. For each payer in sheet order, fill a member list starting with the
//      payer, pulling dependents from the END of the pool whose boarding
//      point equals the payer's, until the declared passenger count is met.
//   5. Record installments, paid amount, payment status and seller.
//   6. Emit one reservation per payer with the next sequential id.
//
// POLICIES:
//   - Rows without a name or a DNI are skipped. No passenger, no reservation.
//   - Dependents no payer can take keep their passenger record but join no
//     reservation.
//   - A dependent joins at most one reservation per run, even when its DNI
//     repeats within a cluster or across clusters.
//   - Assignment is greedy. An earlier payer may absorb a dependent a later
//     payer would have matched; there is no backtracking.
//
// =============================================================================

package reconcile

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/yotellevo/passenger-import/internal/config"
	"github.com/yotellevo/passenger-import/internal/grouping"
	"github.com/yotellevo/passenger-import/internal/normalize"
	"github.com/yotellevo/passenger-import/internal/types"
	"github.com/yotellevo/passenger-import/internal/xlsxparser"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine reconciles one import run. An Engine must not be reused across runs:
// family labels are unique per run.
type Engine struct {
	// Columns locates each field in the sheet.
	Columns xlsxparser.Columns

	// Counter issues reservation ids.
	Counter Counter

	// BoardingPoints are the points already known. Unknown codes create new
	// points; known ones are never renamed.
	BoardingPoints []types.BoardingPoint

	// Sellers are matched by name, ignoring case.
	Sellers []types.Seller

	// Location anchors decoded birth dates. nil means time.Local.
	Location *time.Location
}

// Result is what one run produces. Reservations carry no trip id yet; the
// merge step assigns it.
type Result struct {
	// Passengers holds one record per DNI, in first-seen order. A DNI that
	// repeats within the run keeps the values of its last row.
	Passengers []types.Passenger

	Reservations []types.Reservation

	// BoardingPoints lists only the points created by this run.
	BoardingPoints []types.BoardingPoint

	// SkippedRows are sheet rows dropped for lacking a DNI.
	SkippedRows []int

	// Unassigned are the ids of dependents that joined no reservation.
	Unassigned []string
}

// entry is a row that survived validation, with its passenger built.
type entry struct {
	row       xlsxparser.Row
	passenger types.Passenger
	payer     bool
}

// run holds the per-run state.
type run struct {
	*Engine
	result      Result
	labels      map[string]int
	boarding    map[string]bool
	passengerAt map[string]int

	// assigned holds the passenger ids already placed in a reservation.
	assigned map[string]bool
}

// Run reconciles the given clusters.
func (e *Engine) Run(groups []grouping.Group) Result {
	r := &run{
		Engine:      e,
		labels:      make(map[string]int),
		boarding:    make(map[string]bool),
		passengerAt: make(map[string]int),
		assigned:    make(map[string]bool),
	}
	for _, bp := range e.BoardingPoints {
		r.boarding[bp.ID] = true
	}

	for _, g := range groups {
		r.reconcileGroup(g)
	}

	// A dependent left over in one cluster may have joined a later one.
	unassigned := r.result.Unassigned[:0]
	for _, id := range r.result.Unassigned {
		if !r.assigned[id] {
			unassigned = append(unassigned, id)
		}
	}
	r.result.Unassigned = unassigned
	return r.result
}

// reconcileGroup runs steps 1 to 6 for a single cluster.
func (r *run) reconcileGroup(g grouping.Group) {
	cols := r.Columns

	// Drop rows the policy skips.
	var rows []xlsxparser.Row
	for _, row := range g.Rows {
		if row.Cell(cols.Name) == "" {
			continue
		}
		if normalize.Digits(row.Cell(cols.DNI)) == "" {
			r.result.SkippedRows = append(r.result.SkippedRows, row.Number)
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return
	}

	// Step 1: family label from the main payer's surname.
	lead := rows[0]
	for _, row := range rows {
		if r.isPayer(row) {
			lead = row
			break
		}
	}
	label := r.familyLabel(surname(normalize.TitleCase(lead.Cell(cols.Name))))

	// Steps 2 and 3: passengers, split into payers and dependents.
	var payers, pool []entry
	for _, row := range rows {
		e := entry{row: row, passenger: r.buildPassenger(row, label), payer: r.isPayer(row)}
		r.addPassenger(e.passenger)
		if e.payer {
			payers = append(payers, e)
		} else {
			pool = append(pool, e)
		}
	}

	// Step 4: greedy assignment, walking the pool from its end. A passenger
	// joins at most one reservation per run, however often its DNI repeats.
	for _, payer := range payers {
		pax := r.quantity(payer.row)
		members := []string{payer.passenger.ID}
		r.assigned[payer.passenger.ID] = true

		for i := len(pool) - 1; i >= 0 && len(members) < pax; i-- {
			dep := pool[i].passenger
			if r.assigned[dep.ID] || dep.BoardingPointID != payer.passenger.BoardingPointID {
				continue
			}
			members = append(members, dep.ID)
			r.assigned[dep.ID] = true
			pool = append(pool[:i], pool[i+1:]...)
		}

		// Steps 5 and 6.
		r.result.Reservations = append(r.result.Reservations, r.buildReservation(payer, members, pax))
	}

	for _, dep := range pool {
		r.markUnassigned(dep.passenger.ID)
	}
}

// markUnassigned records a dependent left out of its cluster's reservations,
// once.
func (r *run) markUnassigned(id string) {
	if r.assigned[id] {
		return
	}
	for _, u := range r.result.Unassigned {
		if u == id {
			return
		}
	}
	r.result.Unassigned = append(r.result.Unassigned, id)
}

// =============================================================================
// PASSENGERS
// =============================================================================

func (r *run) buildPassenger(row xlsxparser.Row, family string) types.Passenger {
	cols := r.Columns
	dni := normalize.Digits(row.Cell(cols.DNI))

	p := types.Passenger{
		ID:              dni,
		FullName:        normalize.TitleCase(row.Cell(cols.Name)),
		DNI:             dni,
		Phone:           row.Cell(cols.Phone),
		Family:          family,
		BoardingPointID: r.resolveBoarding(row.Cell(cols.Boarding)),
	}
	if birth, ok := normalize.ExcelSerialDate(row.Cell(cols.BirthDate), r.Location); ok {
		p.BirthDate = &birth
	}
	return p
}

// addPassenger records p, replacing an earlier row with the same DNI.
func (r *run) addPassenger(p types.Passenger) {
	if i, ok := r.passengerAt[p.DNI]; ok {
		r.result.Passengers[i] = p
		return
	}
	r.passengerAt[p.DNI] = len(r.result.Passengers)
	r.result.Passengers = append(r.result.Passengers, p)
}

// familyLabel returns surname, suffixed with " (n)" from its second use on.
func (r *run) familyLabel(surname string) string {
	r.labels[surname]++
	if n := r.labels[surname]; n > 1 {
		return fmt.Sprintf("%s (%d)", surname, n)
	}
	return surname
}

// surname is the last whitespace-separated token of a name.
func surname(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// =============================================================================
// BOARDING POINTS
// =============================================================================

// resolveBoarding returns the boarding point id encoded in raw, creating the
// point when the id is new. Codes look like "A", "A - Terminal" or "Terminal".
func (r *run) resolveBoarding(raw string) string {
	id, name, ok := ParseBoardingCode(raw)
	if !ok {
		return ""
	}
	if !r.boarding[id] {
		r.boarding[id] = true
		r.result.BoardingPoints = append(r.result.BoardingPoints, types.BoardingPoint{ID: id, Name: name})
	}
	return id
}

// ParseBoardingCode splits a boarding cell into its single-letter id and a
// display name.
//
// EXAMPLES:
//   "a"               -> "A", "Parada A"
//   "B - Plaza Mitre" -> "B", "Plaza Mitre"
//   "terminal"        -> "T", "Terminal"
func ParseBoardingCode(raw string) (id, name string, ok bool) {
	runes := []rune(strings.TrimSpace(raw))
	if len(runes) == 0 || !unicode.IsLetter(runes[0]) {
		return "", "", false
	}
	id = string(unicode.ToUpper(runes[0]))

	if len(runes) > 1 && unicode.IsLetter(runes[1]) {
		return id, normalize.TitleCase(string(runes)), true
	}

	rest := strings.TrimLeft(strings.TrimSpace(string(runes[1:])), "-:.) ")
	if rest == "" {
		return id, "Parada " + id, true
	}
	return id, normalize.TitleCase(rest), true
}

// =============================================================================
// RESERVATIONS
// =============================================================================

// isPayer reports whether the row carries a quantity or a value.
func (r *run) isPayer(row xlsxparser.Row) bool {
	if _, ok := normalize.Amount(row.Cell(r.Columns.Quantity)); ok {
		return true
	}
	_, ok := normalize.Amount(row.Cell(r.Columns.Value))
	return ok
}

// MaxPartySize caps the passenger count a single payer row can declare.
const MaxPartySize = 99

// quantity is the declared passenger count of a payer row, between 1 and
// MaxPartySize.
func (r *run) quantity(row xlsxparser.Row) int {
	q, ok := normalize.Amount(row.Cell(r.Columns.Quantity))
	if !ok || q < 1 {
		return 1
	}
	if q > MaxPartySize {
		return MaxPartySize
	}
	return int(math.Round(q))
}

func (r *run) buildReservation(payer entry, members []string, pax int) types.Reservation {
	cols := r.Columns
	row := payer.row

	res := types.Reservation{
		ID:              r.Counter.Next(),
		PayerName:       payer.passenger.FullName,
		PassengerIDs:    members,
		PassengerCount:  pax,
		BoardingPointID: payer.passenger.BoardingPointID,
		Installments:    []types.Installment{},
	}

	for i, col := range cols.Installments {
		if i == config.MaxInstallments {
			break
		}
		amount, ok := normalize.Amount(row.Cell(col))
		if !ok || amount <= 0 {
			continue
		}
		res.Installments = append(res.Installments, types.Installment{Number: i + 1, Amount: amount, Paid: true})
		res.PaidAmount += amount
	}

	if value, ok := normalize.Amount(row.Cell(cols.Value)); ok {
		res.FinalPrice = value
	}
	res.PaymentStatus = PaymentStatus(res.PaidAmount, res.FinalPrice)
	res.SellerID = r.sellerID(row.Cell(cols.Seller))

	return res
}

// PaymentStatus classifies a reservation from what was paid against its
// final price. A missing or zero price is always pending.
func PaymentStatus(paid, price float64) types.PaymentStatus {
	switch {
	case price <= 0:
		return types.PaymentPending
	case paid >= price:
		return types.PaymentPaid
	case paid > 0:
		return types.PaymentPartial
	default:
		return types.PaymentPending
	}
}

func (r *run) sellerID(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	for _, s := range r.Sellers {
		if strings.EqualFold(strings.TrimSpace(s.Name), name) {
			return s.ID
		}
	}
	return ""
}
