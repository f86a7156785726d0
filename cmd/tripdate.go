// =============================================================================
// YO TE LLEVO Importer - Trip Date Command
// =============================================================================
//
// This file defines the 'trip-date' command. Imports create trips without a
// departure; the operator sets it afterwards with this command.
//
// COMMAND USAGE:
//   yotellevo trip-date --trip <id> --date "15/01/2025 06:30"
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yotellevo/passenger-import/internal/store"
)

var (
	tripDateTrip string
	tripDateDate string
)

// departureLayouts are tried in order.
var departureLayouts = []string{
	"02/01/2006 15:04",
	"2/1/2006 15:04",
	"02/01/2006",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

var tripDateCmd = &cobra.Command{
	Use:   "trip-date",
	Short: "Set the departure date and time of a trip",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTripDate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(tripDateCmd)

	tripDateCmd.Flags().StringVar(&tripDateTrip, "trip", "", "Id of the trip")
	tripDateCmd.Flags().StringVar(&tripDateDate, "date", "", `Departure, e.g. "15/01/2025 06:30"`)
	tripDateCmd.MarkFlagRequired("trip")
	tripDateCmd.MarkFlagRequired("date")
}

func runTripDate(cmd *cobra.Command) error {
	departure, err := parseDeparture(tripDateDate, mainConfig.Location())
	if err != nil {
		return err
	}

	c, err := store.Load(mainConfig.StoreFile)
	if err != nil {
		return err
	}
	trip := c.FindTrip(tripDateTrip)
	if trip == nil {
		return fmt.Errorf("trip not found: %s", tripDateTrip)
	}
	trip.DepartureAt = &departure

	if err := store.Save(mainConfig.StoreFile, c); err != nil {
		return err
	}

	zap.S().Infof("trip %s departs %s", trip.ID, departure.Format(time.RFC3339))
	fmt.Fprintf(cmd.OutOrStdout(), "%s departs %s\n", trip.Destination, departure.Format("02/01/2006 15:04"))
	return nil
}

// parseDeparture reads a day-first date with an optional time.
func parseDeparture(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range departureLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q, expected DD/MM/YYYY HH:MM", raw)
}
