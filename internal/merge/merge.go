// Package merge folds the output of one import into the persisted collections.
//
//	Trip           matched by destination, ignoring case; tiers overwritten in place
//	Passenger      matched by DNI; overwritten on match, appended on miss
//	BoardingPoint  matched by id; appended when new, never overwritten
//	Reservation    always appended
//
// Writing the collections back to storage is the caller's job.
package merge

import (
	"strings"

	"github.com/google/uuid"

	"github.com/yotellevo/passenger-import/internal/types"
)

// Imported is everything one import run derived from a spreadsheet.
type Imported struct {
	Trip           types.Trip
	Passengers     []types.Passenger
	Reservations   []types.Reservation
	BoardingPoints []types.BoardingPoint
}

// NewTripID is the default trip id generator.
func NewTripID() string {
	return uuid.New().String()
}

// Merge mutates c in place and returns the counters of what changed.
// newID generates ids for new trips; nil uses NewTripID.
func Merge(c *types.Collections, in Imported, newID func() string) types.Summary {
	if newID == nil {
		newID = NewTripID
	}
	var sum types.Summary

	sum.TripID = mergeTrip(c, in.Trip, newID, &sum)

	byDNI := make(map[string]int, len(c.Passengers))
	for i, p := range c.Passengers {
		byDNI[p.DNI] = i
	}
	remap := make(map[string]string)
	for _, p := range in.Passengers {
		if i, ok := byDNI[p.DNI]; ok {
			// The stored id survives so existing reservations keep pointing at it.
			if stored := c.Passengers[i].ID; stored != p.ID {
				remap[p.ID] = stored
				p.ID = stored
			}
			c.Passengers[i] = p
			sum.UpdatedPassengers++
			continue
		}
		byDNI[p.DNI] = len(c.Passengers)
		c.Passengers = append(c.Passengers, p)
		sum.NewPassengers++
	}

	known := make(map[string]bool, len(c.BoardingPoints))
	for _, bp := range c.BoardingPoints {
		known[bp.ID] = true
	}
	for _, bp := range in.BoardingPoints {
		if known[bp.ID] {
			continue
		}
		known[bp.ID] = true
		c.BoardingPoints = append(c.BoardingPoints, bp)
	}

	for _, r := range in.Reservations {
		r.TripID = sum.TripID
		ids := make([]string, len(r.PassengerIDs))
		for i, id := range r.PassengerIDs {
			if stored, ok := remap[id]; ok {
				id = stored
			}
			ids[i] = id
		}
		r.PassengerIDs = ids
		c.Reservations = append(c.Reservations, r)
		sum.NewReservations++
	}

	return sum
}

// mergeTrip updates the trip with the same destination or appends a new one.
// It returns the id of the trip the import belongs to.
func mergeTrip(c *types.Collections, trip types.Trip, newID func() string, sum *types.Summary) string {
	if i := c.FindTripByDestination(trip.Destination); i >= 0 {
		existing := &c.Trips[i]
		existing.PricingTiers = trip.PricingTiers
		existing.BasePrice = trip.BasePrice
		if existing.Transport.Capacity == 0 {
			existing.Transport = trip.Transport
		}
		return existing.ID
	}

	trip.ID = newID()
	trip.Destination = strings.TrimSpace(trip.Destination)
	c.Trips = append(c.Trips, trip)
	sum.NewTrips++
	sum.NewTripID = trip.ID
	return trip.ID
}
