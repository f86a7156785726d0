// =============================================================================
// YO TE LLEVO Importer - Main Entry Point
// =============================================================================
//
// USAGE:
//   yotellevo import      - Import the spreadsheets in the input directory
//   yotellevo export      - Write a trip's passenger manifest
//   yotellevo trip-date   - Set a trip's departure
//   yotellevo version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Reading, grouping, reconciliation, merge and persistence
//   - pkg/       : File handling shared by the commands
//
// =============================================================================

package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/yotellevo/passenger-import/cmd"
)

func main() {
	cmd.Execute()
}
