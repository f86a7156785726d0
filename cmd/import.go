// =============================================================================
// YO TE LLEVO Importer - Import Command
// =============================================================================
//
// This file defines the 'import' command, which imports passenger
// spreadsheets into the store.
//
// COMMAND USAGE:
//   yotellevo import [flags]
//
// FLAGS:
//   --file     : Import only this spreadsheet
//   --dry-run  : Run the import and print the summary without writing the
//                store or moving files
//
// PROCESSING PIPELINE:
//   1. Discover spreadsheets in the input directory (or take --file)
//   2. Load the store
//   3. For each spreadsheet, one at a time:
//      a. Import it into the collections
//      b. Save the store
//      c. Move the spreadsheet to the input archive
//   4. Print the per-file summary and write the summary log
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yotellevo/passenger-import/internal/importer"
	"github.com/yotellevo/passenger-import/internal/store"
	"github.com/yotellevo/passenger-import/internal/types"
	"github.com/yotellevo/passenger-import/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	importFile   string
	importDryRun bool
)

// =============================================================================
// IMPORT COMMAND DEFINITION
// =============================================================================

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import passenger spreadsheets",
	Long: `The import command reads every .xlsx and .xls spreadsheet in the input directory
(or the one given with --file) and merges its trip, passengers and reservations
into the store. Legacy .xls files carry no fill colours, so each of their rows
is imported as its own family.

Files are imported one at a time. A file that cannot be read is reported and
left in place; the remaining files are still imported.

On success:
  - The store is saved
  - The spreadsheet is moved to the input archive
  - A summary log is written to the output directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFile, "file", "", "Import only this spreadsheet")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Import without writing the store or moving files")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runImport(cmd *cobra.Command) error {
	log := zap.S()
	out := cmd.OutOrStdout()
	run := utils.RunSummary{StartTime: time.Now(), DryRun: importDryRun}

	fm := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir)
	if !importDryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	files, err := inputFiles(fm)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No spreadsheets found in the input directory.")
		return nil
	}
	fmt.Fprintf(out, "Found %d file(s) to import\n", len(files))

	// =========================================================================
	// STEP 2: LOAD STORE
	// =========================================================================

	c, err := store.Load(mainConfig.StoreFile)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 3: IMPORT FILES
	// =========================================================================

	im := importer.New(mainConfig, log)
	for _, file := range files {
		name := filepath.Base(file)

		data, err := os.ReadFile(file)
		if err != nil {
			log.Errorf("failed to read %s: %v", file, err)
			run.Failed = append(run.Failed, utils.FailedFile{InputFile: file, ErrorMessage: err.Error()})
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, importer.ErrProcessFile)
			continue
		}

		summary, err := im.Import(name, data, c)
		if err != nil {
			run.Failed = append(run.Failed, utils.FailedFile{InputFile: file, ErrorMessage: err.Error()})
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, importer.ErrProcessFile)
			continue
		}

		imported := utils.ImportedFile{InputFile: file, Summary: *summary}
		if !importDryRun {
			if err := store.Save(mainConfig.StoreFile, c); err != nil {
				return err
			}
			archived, err := fm.ArchiveInputFile(file)
			if err != nil {
				log.Warnf("imported %s but could not archive it: %v", name, err)
			}
			imported.ArchivePath = archived
		}
		run.Imported = append(run.Imported, imported)

		printSummary(cmd, c, summary)
	}

	// =========================================================================
	// STEP 4: SUMMARY
	// =========================================================================

	run.EndTime = time.Now()
	fmt.Fprintln(out, "\n=== Import Complete ===")
	fmt.Fprintf(out, "Imported:        %d\n", len(run.Imported))
	fmt.Fprintf(out, "Failed:          %d\n", len(run.Failed))
	fmt.Fprintf(out, "Time elapsed:    %s\n", run.EndTime.Sub(run.StartTime))
	if importDryRun {
		fmt.Fprintln(out, "Dry run: the store was not written.")
		return nil
	}

	path, err := fm.WriteSummaryLog(run)
	if err != nil {
		log.Warnf("could not write summary log: %v", err)
		return nil
	}
	fmt.Fprintf(out, "Summary log:     %s\n", path)
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// inputFiles returns --file when set, otherwise the spreadsheets in the input
// directory. A bare --file name that does not exist is looked up in the input
// directory.
func inputFiles(fm *utils.FileManager) ([]string, error) {
	if importFile == "" {
		return fm.DiscoverInputFiles()
	}
	if _, err := os.Stat(importFile); err == nil {
		return []string{importFile}, nil
	}
	candidate := filepath.Join(fm.InputDir, importFile)
	if _, err := os.Stat(candidate); err == nil {
		return []string{candidate}, nil
	}
	return nil, fmt.Errorf("file not found: %s", importFile)
}

// printSummary prints the per-file result, including the follow-ups the
// operator is expected to do for a newly created trip.
func printSummary(cmd *cobra.Command, c *types.Collections, s *types.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  ✓ %s: %d new reservation(s), %d new passenger(s), %d updated passenger(s)\n",
		s.FileName, s.NewReservations, s.NewPassengers, s.UpdatedPassengers)

	if s.NewTripID == "" {
		return
	}
	destination := ""
	if trip := c.FindTrip(s.NewTripID); trip != nil {
		destination = trip.Destination
	}
	fmt.Fprintf(out, "    New trip %q created (id %s).\n", destination, s.NewTripID)
	if s.SuggestedMonth != 0 {
		fmt.Fprintf(out, "    The file name suggests a departure in %s.\n", s.SuggestedMonth)
	}
	fmt.Fprintf(out, "    Set its departure with: yotellevo trip-date --trip %s --date \"DD/MM/YYYY HH:MM\"\n", s.NewTripID)
}
