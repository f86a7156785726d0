// =============================================================================
// YO TE LLEVO Importer - File Manager Utility
// =============================================================================
//
// This module provides the file handling around an import run:
//   - Discovery of spreadsheets in the input directory
//   - Archival of imported spreadsheets
//   - Manifest file naming
//   - The import summary log
//
// ARCHIVAL STRATEGY:
//   - A spreadsheet is moved to the input archive after a successful import
//   - Failed spreadsheets stay in the input directory
//   - An existing archive entry with the same name is never overwritten; the
//     new one gets a timestamp suffix
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yotellevo/passenger-import/internal/types"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around imports and exports.
type FileManager struct {
	// InputDir is where spreadsheets wait to be imported.
	InputDir string

	// OutputDir receives manifests and summary logs.
	OutputDir string

	// InputArchiveDir receives imported spreadsheets.
	InputArchiveDir string

	// UseTimestampSubdirs archives into year/month/day subdirectories.
	// Example: input_archive/2025/01/15/Bariloche Enero.xlsx
	UseTimestampSubdirs bool

	// Now is the clock used for archive paths and log names.
	Now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		InputArchiveDir: inputArchiveDir,
		Now:             time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.InputArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// InputPatterns are the globs DiscoverInputFiles uses when given none.
var InputPatterns = []string{"*.xlsx", "*.xls"}

// DiscoverInputFiles lists the spreadsheets in the input directory, sorted by
// name.
//
// PARAMETERS:
//   - patterns: Glob patterns to match files. If none are given,
//     InputPatterns is used.
//
// RETURNS:
//   - A slice of file paths. Excel lock files ("~$...") are skipped.
//   - An error if a pattern is malformed.
func (fm *FileManager) DiscoverInputFiles(patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = InputPatterns
	}

	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan input directory: %w", err)
		}
		files = append(files, matches...)
	}

	var result []string
	for _, file := range files {
		if strings.HasPrefix(filepath.Base(file), "~$") {
			continue
		}
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			continue
		}
		result = append(result, file)
	}
	sort.Strings(result)
	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an imported spreadsheet to the archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails. The original file is then left in place.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.archivePath(filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

func (fm *FileManager) archivePath(filePath string) string {
	now := fm.now()
	dir := fm.InputArchiveDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	name := filepath.Base(filePath)
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		ext := filepath.Ext(name)
		path = filepath.Join(dir, fmt.Sprintf("%s_%s%s", strings.TrimSuffix(name, ext), now.Format("20060102_150405"), ext))
	}
	return path
}

func (fm *FileManager) now() time.Time {
	if fm.Now == nil {
		return time.Now()
	}
	return fm.Now()
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// ManifestFileName builds a unique manifest file name for a trip.
//
// EXAMPLE:
//   destination: "Mar del Plata"
//   output:      "Mar_del_Plata_a1b2c3d4-e5f6-7890-abcd-ef1234567890.xlsx"
func ManifestFileName(destination string) string {
	stem := strings.Join(strings.Fields(destination), "_")
	stem = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) {
			return '-'
		}
		return r
	}, stem)
	if stem == "" {
		stem = "manifest"
	}
	return fmt.Sprintf("%s_%s.xlsx", stem, uuid.New().String())
}

// =============================================================================
// IMPORT SUMMARY LOG
// =============================================================================

// RunSummary describes one run of the import command.
type RunSummary struct {
	StartTime time.Time
	EndTime   time.Time
	DryRun    bool
	Imported  []ImportedFile
	Failed    []FailedFile
}

// ImportedFile is a spreadsheet that imported.
type ImportedFile struct {
	InputFile   string
	ArchivePath string
	Summary     types.Summary
}

// FailedFile is a spreadsheet that did not import.
type FailedFile struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a run summary to the output directory.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func (fm *FileManager) WriteSummaryLog(summary RunSummary) (string, error) {
	name := fmt.Sprintf("import_summary_%s.txt", fm.now().Format("20060102_150405"))
	path := filepath.Join(fm.OutputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := writeSummary(file, summary); err != nil {
		return "", err
	}
	return path, nil
}

func writeSummary(w io.Writer, summary RunSummary) error {
	writer := bufio.NewWriter(w)
	rule := strings.Repeat("=", 80) + "\n"
	thin := strings.Repeat("-", 80) + "\n"

	var trips, reservations, newPassengers, updatedPassengers int
	for _, f := range summary.Imported {
		trips += f.Summary.NewTrips
		reservations += f.Summary.NewReservations
		newPassengers += f.Summary.NewPassengers
		updatedPassengers += f.Summary.UpdatedPassengers
	}

	mode := "import"
	if summary.DryRun {
		mode = "dry run (store not written)"
	}

	fmt.Fprintf(writer, "YO TE LLEVO - Import Summary\n%s\n", rule)
	fmt.Fprintf(writer, "Run Information:\n"+
		"  Mode:           %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n",
		mode,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime))
	fmt.Fprintf(writer, "Statistics:\n"+
		"  Files Imported:     %d\n"+
		"  Files Failed:       %d\n"+
		"  New Trips:          %d\n"+
		"  New Reservations:   %d\n"+
		"  New Passengers:     %d\n"+
		"  Updated Passengers: %d\n\n",
		len(summary.Imported), len(summary.Failed),
		trips, reservations, newPassengers, updatedPassengers)

	if len(summary.Imported) > 0 {
		writer.WriteString("Imported Files:\n" + thin)
		for _, f := range summary.Imported {
			fmt.Fprintf(writer, "  Input:        %s\n", f.InputFile)
			if f.ArchivePath != "" {
				fmt.Fprintf(writer, "  Archived:     %s\n", f.ArchivePath)
			}
			fmt.Fprintf(writer, "  Trip:         %s\n", f.Summary.TripID)
			fmt.Fprintf(writer, "  Reservations: %d\n", f.Summary.NewReservations)
			fmt.Fprintf(writer, "  Passengers:   %d new, %d updated\n\n", f.Summary.NewPassengers, f.Summary.UpdatedPassengers)
		}
	}

	if len(summary.Failed) > 0 {
		writer.WriteString("Failed Files:\n" + thin)
		for _, f := range summary.Failed {
			fmt.Fprintf(writer, "  File:  %s\n", f.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", f.ErrorMessage)
		}
	}

	writer.WriteString(rule + "End of Summary\n")
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush summary file: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}
