// =============================================================================
// YO TE LLEVO Importer - Export Command
// =============================================================================
//
// This file defines the 'export' command, which writes a trip's passenger
// manifest as a spreadsheet in the import layout.
//
// COMMAND USAGE:
//   yotellevo export --trip <id> [--out manifest.xlsx]
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yotellevo/passenger-import/internal/export"
	"github.com/yotellevo/passenger-import/internal/store"
	"github.com/yotellevo/passenger-import/pkg/utils"
)

var (
	exportTrip string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a trip's passenger manifest",
	Long: `The export command writes every reservation of a trip to a spreadsheet laid
out like the import template. Each reservation is painted in its own colour, so
the manifest can be edited and imported again.

Without --out the manifest is written to the output directory under a unique
name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportTrip, "trip", "", "Id of the trip to export")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output path of the manifest")
	exportCmd.MarkFlagRequired("trip")
}

func runExport(cmd *cobra.Command) error {
	c, err := store.Load(mainConfig.StoreFile)
	if err != nil {
		return err
	}

	f, err := export.Manifest(c, exportTrip, mainConfig.Layout)
	if err != nil {
		return err
	}
	defer f.Close()

	path := exportOut
	if path == "" {
		path = filepath.Join(mainConfig.OutputDir, utils.ManifestFileName(c.FindTrip(exportTrip).Destination))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	zap.S().Infof("exported trip %s to %s", exportTrip, path)
	fmt.Fprintf(cmd.OutOrStdout(), "Manifest written to %s\n", path)
	return nil
}
