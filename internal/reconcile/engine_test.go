package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yotellevo/passenger-import/internal/grouping"
	"github.com/yotellevo/passenger-import/internal/types"
	"github.com/yotellevo/passenger-import/internal/xlsxparser"
)

var testColumns = xlsxparser.Columns{
	Name:         "A",
	DNI:          "B",
	BirthDate:    "C",
	Phone:        "D",
	Boarding:     "E",
	Quantity:     "F",
	Value:        "G",
	Installments: []string{"H", "J"},
	Seller:       "I",
}

type fakeCounter struct{ n int }

func (c *fakeCounter) Next() string {
	c.n++
	return fmt.Sprintf("R-%d", c.n)
}

func newEngine() *Engine {
	return &Engine{
		Columns:  testColumns,
		Counter:  &fakeCounter{},
		Location: time.UTC,
	}
}

// line builds a sheet row from "column=value" pairs.
func line(number int, cells map[string]string) xlsxparser.Row {
	return xlsxparser.Row{Number: number, Cells: cells, Fills: map[string]string{}}
}

func group(key string, rows ...xlsxparser.Row) grouping.Group {
	return grouping.Group{Key: key, Rows: rows}
}

func TestRunSharedBoardingPoint(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("fill:FFFF00",
		line(4, map[string]string{"A": "juan perez", "B": "30123456", "E": "A", "F": "2"}),
		line(5, map[string]string{"A": "ana perez", "B": "31222333", "E": "A"}),
	)})

	require.Len(t, result.Reservations, 1)
	res := result.Reservations[0]
	assert.Equal(t, "R-1", res.ID)
	assert.Equal(t, "Juan Perez", res.PayerName)
	assert.Equal(t, []string{"30123456", "31222333"}, res.PassengerIDs)
	assert.Equal(t, 2, res.PassengerCount)
	assert.Equal(t, "A", res.BoardingPointID)

	require.Len(t, result.Passengers, 2)
	for _, p := range result.Passengers {
		assert.Equal(t, "A", p.BoardingPointID)
		assert.Equal(t, "Perez", p.Family)
	}
	assert.Equal(t, []types.BoardingPoint{{ID: "A", Name: "Parada A"}}, result.BoardingPoints)
	assert.Empty(t, result.Unassigned)
}

func TestRunDifferentBoardingPointStaysOut(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("fill:FFFF00",
		line(4, map[string]string{"A": "juan perez", "B": "30123456", "E": "A", "F": "1"}),
		line(5, map[string]string{"A": "ana perez", "B": "31222333", "E": "B"}),
	)})

	require.Len(t, result.Reservations, 1)
	assert.Equal(t, []string{"30123456"}, result.Reservations[0].PassengerIDs)
	assert.Len(t, result.Passengers, 2)
	assert.Equal(t, []string{"31222333"}, result.Unassigned)
}

func TestRunBoardingMismatchEvenWithRoom(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("fill:FFFF00",
		line(4, map[string]string{"A": "juan perez", "B": "30123456", "E": "A", "F": "2"}),
		line(5, map[string]string{"A": "ana perez", "B": "31222333", "E": "B"}),
	)})

	require.Len(t, result.Reservations, 1)
	res := result.Reservations[0]
	assert.Equal(t, []string{"30123456"}, res.PassengerIDs)
	assert.Equal(t, 2, res.PassengerCount)
}

func TestRunMembersNeverExceedCount(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("fill:FFFF00",
		line(4, map[string]string{"A": "juan perez", "B": "1", "E": "A", "F": "2"}),
		line(5, map[string]string{"A": "ana perez", "B": "2", "E": "A"}),
		line(6, map[string]string{"A": "sofia perez", "B": "3", "E": "A"}),
		line(7, map[string]string{"A": "tomas perez", "B": "4", "E": "A"}),
	)})

	require.Len(t, result.Reservations, 1)
	// Dependents are taken from the end of the group.
	assert.Equal(t, []string{"1", "4"}, result.Reservations[0].PassengerIDs)
	assert.Equal(t, []string{"2", "3"}, result.Unassigned)
}

func TestRunSeveralPayersGreedy(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("fill:FFFF00",
		line(4, map[string]string{"A": "juan perez", "B": "1", "F": "2"}),
		line(5, map[string]string{"A": "ana perez", "B": "2", "F": "2"}),
		line(6, map[string]string{"A": "sofia perez", "B": "3"}),
		line(7, map[string]string{"A": "tomas perez", "B": "4"}),
	)})

	require.Len(t, result.Reservations, 2)
	assert.Equal(t, []string{"1", "4"}, result.Reservations[0].PassengerIDs)
	assert.Equal(t, []string{"2", "3"}, result.Reservations[1].PassengerIDs)
	assert.Equal(t, "R-1", result.Reservations[0].ID)
	assert.Equal(t, "R-2", result.Reservations[1].ID)
	assert.Empty(t, result.Unassigned)
}

func TestRunGroupWithoutPayer(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("row:4",
		line(4, map[string]string{"A": "juan perez", "B": "1"}),
	)})

	assert.Empty(t, result.Reservations)
	require.Len(t, result.Passengers, 1)
	assert.Equal(t, []string{"1"}, result.Unassigned)
}

func TestRunValueOnlyPayerDefaultsToOnePassenger(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("row:4",
		line(4, map[string]string{"A": "juan perez", "B": "1", "G": "100000"}),
	)})

	require.Len(t, result.Reservations, 1)
	assert.Equal(t, 1, result.Reservations[0].PassengerCount)
	assert.Equal(t, float64(100000), result.Reservations[0].FinalPrice)
}

func TestRunPaymentStatus(t *testing.T) {
	tests := []struct {
		name   string
		cells  map[string]string
		status types.PaymentStatus
		paid   float64
	}{
		{"fully paid", map[string]string{"G": "100000", "H": "100000"}, types.PaymentPaid, 100000},
		{"partial", map[string]string{"G": "100000", "H": "50000"}, types.PaymentPartial, 50000},
		{"two installments", map[string]string{"G": "100000", "H": "50000", "J": "50000"}, types.PaymentPaid, 100000},
		{"pending", map[string]string{"G": "100000"}, types.PaymentPending, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := map[string]string{"A": "juan perez", "B": "1"}
			for k, v := range tt.cells {
				cells[k] = v
			}
			result := newEngine().Run([]grouping.Group{group("row:4", line(4, cells))})

			require.Len(t, result.Reservations, 1)
			res := result.Reservations[0]
			assert.Equal(t, tt.status, res.PaymentStatus)
			assert.Equal(t, tt.paid, res.PaidAmount)
			for _, inst := range res.Installments {
				assert.True(t, inst.Paid)
			}
		})
	}
}

func TestRunInstallmentNumbersFollowColumns(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("row:4",
		line(4, map[string]string{"A": "juan perez", "B": "1", "G": "90000", "J": "30000"}),
	)})

	require.Len(t, result.Reservations, 1)
	assert.Equal(t, []types.Installment{{Number: 2, Amount: 30000, Paid: true}}, result.Reservations[0].Installments)
	assert.Equal(t, types.PaymentPartial, result.Reservations[0].PaymentStatus)
}

func TestRunFamilyLabelSuffix(t *testing.T) {
	result := newEngine().Run([]grouping.Group{
		group("fill:FFFF00", line(4, map[string]string{"A": "juan gomez", "B": "1", "F": "1"})),
		group("fill:00B0F0", line(5, map[string]string{"A": "MARIA GOMEZ", "B": "2", "F": "1"})),
		group("fill:92D050", line(6, map[string]string{"A": "pedro gomez", "B": "3", "F": "1"})),
	})

	require.Len(t, result.Passengers, 3)
	assert.Equal(t, "Gomez", result.Passengers[0].Family)
	assert.Equal(t, "Gomez (2)", result.Passengers[1].Family)
	assert.Equal(t, "Gomez (3)", result.Passengers[2].Family)
}

func TestRunFamilyLabelFromPayer(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("fill:FFFF00",
		line(4, map[string]string{"A": "sofia diaz", "B": "1"}),
		line(5, map[string]string{"A": "juan perez", "B": "2", "F": "2"}),
	)})

	for _, p := range result.Passengers {
		assert.Equal(t, "Perez", p.Family)
	}
}

func TestRunSkipsRowsWithoutDNI(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("fill:FFFF00",
		line(4, map[string]string{"A": "juan perez", "B": "30123456", "F": "2"}),
		line(5, map[string]string{"A": "ana perez", "B": "s/d"}),
	)})

	assert.Len(t, result.Passengers, 1)
	assert.Equal(t, []int{5}, result.SkippedRows)
	require.Len(t, result.Reservations, 1)
	assert.Equal(t, []string{"30123456"}, result.Reservations[0].PassengerIDs)
}

func TestRunPassengerFields(t *testing.T) {
	e := newEngine()
	e.BoardingPoints = []types.BoardingPoint{{ID: "T", Name: "Terminal Retiro"}}
	e.Sellers = []types.Seller{{ID: "S1", Name: "Laura"}}

	result := e.Run([]grouping.Group{group("row:4",
		line(4, map[string]string{
			"A": "  juan   PEREZ ", "B": "30.123.456", "C": "36526", "D": "1155550000",
			"E": "t - terminal", "F": "1", "G": "$ 100.000", "I": " laura",
		}),
	)})

	require.Len(t, result.Passengers, 1)
	p := result.Passengers[0]
	assert.Equal(t, "30123456", p.ID)
	assert.Equal(t, "30123456", p.DNI)
	assert.Equal(t, "Juan Perez", p.FullName)
	assert.Equal(t, "1155550000", p.Phone)
	assert.Equal(t, "T", p.BoardingPointID)
	require.NotNil(t, p.BirthDate)
	assert.Equal(t, time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), *p.BirthDate)

	// Known points are neither created nor renamed.
	assert.Empty(t, result.BoardingPoints)

	require.Len(t, result.Reservations, 1)
	assert.Equal(t, "S1", result.Reservations[0].SellerID)
	assert.Equal(t, float64(100000), result.Reservations[0].FinalPrice)
}

func TestRunRepeatedDNIKeepsLastRow(t *testing.T) {
	result := newEngine().Run([]grouping.Group{
		group("row:4", line(4, map[string]string{"A": "juan perez", "B": "1", "D": "111"})),
		group("row:5", line(5, map[string]string{"A": "juan perez", "B": "1", "D": "222"})),
	})

	require.Len(t, result.Passengers, 1)
	assert.Equal(t, "222", result.Passengers[0].Phone)
}

func TestRunDependentJoinsOneReservation(t *testing.T) {
	result := newEngine().Run([]grouping.Group{
		group("fill:FFFF00",
			line(4, map[string]string{"A": "juan perez", "B": "1", "F": "2"}),
			line(5, map[string]string{"A": "ana perez", "B": "9"}),
		),
		group("fill:9FC5E8",
			line(6, map[string]string{"A": "luis gomez", "B": "2", "F": "2"}),
			line(7, map[string]string{"A": "ana perez", "B": "9"}),
		),
		group("fill:B6D7A8",
			line(8, map[string]string{"A": "rosa diaz", "B": "3", "F": "3"}),
			line(9, map[string]string{"A": "tomas diaz", "B": "7"}),
			line(10, map[string]string{"A": "tomas diaz", "B": "7"}),
		),
	})

	require.Len(t, result.Reservations, 3)
	assert.Equal(t, []string{"1", "9"}, result.Reservations[0].PassengerIDs)
	assert.Equal(t, []string{"2"}, result.Reservations[1].PassengerIDs)
	assert.Equal(t, []string{"3", "7"}, result.Reservations[2].PassengerIDs)
	assert.Equal(t, 3, result.Reservations[2].PassengerCount)
	assert.Empty(t, result.Unassigned)
	assert.Len(t, result.Passengers, 5)
}

func TestRunUnassignedDependentLaterPlaced(t *testing.T) {
	result := newEngine().Run([]grouping.Group{
		group("fill:FFFF00",
			line(4, map[string]string{"A": "juan perez", "B": "1", "E": "A", "F": "2"}),
			line(5, map[string]string{"A": "ana perez", "B": "9", "E": "B"}),
		),
		group("fill:9FC5E8",
			line(6, map[string]string{"A": "luis gomez", "B": "2", "E": "B", "F": "2"}),
			line(7, map[string]string{"A": "ana perez", "B": "9", "E": "B"}),
		),
	})

	require.Len(t, result.Reservations, 2)
	assert.Equal(t, []string{"2", "9"}, result.Reservations[1].PassengerIDs)
	assert.Empty(t, result.Unassigned)
}

func TestRunNonFiniteCellsAreIgnored(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("row:4",
		line(4, map[string]string{"A": "juan perez", "B": "1", "F": "inf", "G": "NaN"}),
	)})

	require.Len(t, result.Passengers, 1)
	assert.Empty(t, result.Reservations)
	assert.Equal(t, []string{"1"}, result.Unassigned)
}

func TestRunCapsDeclaredPassengers(t *testing.T) {
	result := newEngine().Run([]grouping.Group{group("row:4",
		line(4, map[string]string{"A": "juan perez", "B": "1", "F": "1e9"}),
	)})

	require.Len(t, result.Reservations, 1)
	assert.Equal(t, MaxPartySize, result.Reservations[0].PassengerCount)
}

func TestRunCreatesEachBoardingPointOnce(t *testing.T) {
	result := newEngine().Run([]grouping.Group{
		group("row:4", line(4, map[string]string{"A": "juan perez", "B": "1", "E": "B - Plaza Mitre"})),
		group("row:5", line(5, map[string]string{"A": "ana diaz", "B": "2", "E": "b"})),
	})

	assert.Equal(t, []types.BoardingPoint{{ID: "B", Name: "Plaza Mitre"}}, result.BoardingPoints)
}

func TestParseBoardingCode(t *testing.T) {
	tests := []struct {
		raw      string
		id, name string
	}{
		{"a", "A", "Parada A"},
		{"B - Plaza Mitre", "B", "Plaza Mitre"},
		{"c: estacion", "C", "Estacion"},
		{"terminal", "T", "Terminal"},
	}
	for _, tt := range tests {
		id, name, ok := ParseBoardingCode(tt.raw)
		require.True(t, ok, tt.raw)
		assert.Equal(t, tt.id, id, tt.raw)
		assert.Equal(t, tt.name, name, tt.raw)
	}

	for _, raw := range []string{"", "  ", "1", "-"} {
		_, _, ok := ParseBoardingCode(raw)
		assert.False(t, ok, raw)
	}
}

func TestPaymentStatus(t *testing.T) {
	assert.Equal(t, types.PaymentPending, PaymentStatus(0, 0))
	assert.Equal(t, types.PaymentPending, PaymentStatus(50000, 0))
	assert.Equal(t, types.PaymentPending, PaymentStatus(0, 100000))
	assert.Equal(t, types.PaymentPartial, PaymentStatus(1, 100000))
	assert.Equal(t, types.PaymentPaid, PaymentStatus(100000, 100000))
	assert.Equal(t, types.PaymentPaid, PaymentStatus(120000, 100000))
}
