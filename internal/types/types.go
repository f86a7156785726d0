// =============================================================================
// YO TE LLEVO Importer - Shared Types
// =============================================================================
//
// This package contains the domain model shared by every stage of the import
// pipeline and by the CLI that persists it. Types defined here are used by:
//   - reconcile  (builds passengers and reservations)
//   - merge      (folds them into the persisted collections)
//   - store      (reads and writes the collections)
//   - export     (renders a trip manifest)
//
// =============================================================================

package types

import (
	"strings"
	"time"
)

// =============================================================================
// TRIP TYPES
// =============================================================================

// Trip is a travel package sold by the agency.
type Trip struct {
	// ID is generated on first import; it is never derived from the spreadsheet.
	ID string `json:"id"`

	// Destination is the display name. Trips are matched case-insensitively on it.
	Destination string `json:"destination"`

	// DepartureAt is unknown for trips created by an import until someone sets it.
	DepartureAt *time.Time `json:"departureAt,omitempty"`

	// BasePrice is the price of the first pricing tier.
	BasePrice float64 `json:"basePrice"`

	// PricingTiers are the named price brackets read from the pricing table.
	PricingTiers []PricingTier `json:"pricingTiers"`

	// Transport carries the seat capacity of the vehicle.
	Transport Transport `json:"transport"`
}

// PricingTier is one named price bracket (e.g. "Mayor", "Menor 3-10").
type PricingTier struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Transport describes the vehicle configuration of a trip.
type Transport struct {
	Type     string `json:"type"`
	Capacity int    `json:"capacity"`
}

// =============================================================================
// PASSENGER TYPES
// =============================================================================

// Passenger is a traveller. DNI is the natural key and is unique per collection.
type Passenger struct {
	ID              string     `json:"id"`
	FullName        string     `json:"fullName"`
	DNI             string     `json:"dni"`
	BirthDate       *time.Time `json:"birthDate,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Family          string     `json:"family"`
	BoardingPointID string     `json:"boardingPointId,omitempty"`
}

// BoardingPoint is a pickup location identified by a single letter.
type BoardingPoint struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Seller is an agency employee that sells reservations.
type Seller struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// =============================================================================
// RESERVATION TYPES
// =============================================================================

// PaymentStatus classifies how much of a reservation has been paid.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPending PaymentStatus = "pending"
)

// Installment is one recorded payment amount.
type Installment struct {
	Number int     `json:"number"`
	Amount float64 `json:"amount"`
	Paid   bool    `json:"paid"`
}

// Reservation groups the passengers travelling under one payer.
type Reservation struct {
	// ID has the form R-<yy>-<sequence>.
	ID string `json:"id"`

	TripID    string `json:"tripId"`
	PayerName string `json:"payerName"`

	// PassengerIDs always starts with the payer. Its length never exceeds
	// PassengerCount.
	PassengerIDs   []string `json:"passengerIds"`
	PassengerCount int      `json:"passengerCount"`

	FinalPrice      float64       `json:"finalPrice"`
	PaidAmount      float64       `json:"paidAmount"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	Installments    []Installment `json:"installments"`
	SellerID        string        `json:"sellerId,omitempty"`
	BoardingPointID string        `json:"boardingPointId,omitempty"`
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// Counters holds the sequential id state that must survive between imports.
type Counters struct {
	ReservationYear int `json:"reservationYear"`
	ReservationSeq  int `json:"reservationSeq"`
}

// Collections is everything the application persists.
type Collections struct {
	Trips          []Trip          `json:"trips"`
	Passengers     []Passenger     `json:"passengers"`
	Reservations   []Reservation   `json:"reservations"`
	BoardingPoints []BoardingPoint `json:"boardingPoints"`
	Sellers        []Seller        `json:"sellers"`
	Counters       Counters        `json:"counters"`
}

// FindTripByDestination returns the index of the trip whose destination
// matches name ignoring case, or -1.
func (c *Collections) FindTripByDestination(name string) int {
	for i := range c.Trips {
		if strings.EqualFold(strings.TrimSpace(c.Trips[i].Destination), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

// FindTrip returns the trip with the given id, or nil.
func (c *Collections) FindTrip(id string) *Trip {
	for i := range c.Trips {
		if c.Trips[i].ID == id {
			return &c.Trips[i]
		}
	}
	return nil
}

// PassengerByID indexes passengers by id.
func (c *Collections) PassengerByID() map[string]*Passenger {
	index := make(map[string]*Passenger, len(c.Passengers))
	for i := range c.Passengers {
		index[c.Passengers[i].ID] = &c.Passengers[i]
	}
	return index
}

// =============================================================================
// IMPORT SUMMARY
// =============================================================================

// Summary is the user-facing outcome of one import.
type Summary struct {
	FileName          string
	NewTrips          int
	NewReservations   int
	NewPassengers     int
	UpdatedPassengers int

	// NewTripID is set when the import created a trip, so the caller can ask
	// for its departure date.
	NewTripID string

	// TripID is the trip the import was merged into (new or existing).
	TripID string

	// SuggestedMonth is inferred from the file name; 0 when unknown.
	SuggestedMonth time.Month
}
