// =============================================================================
// YO TE LLEVO Importer - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the application
// configuration. It covers:
//   1. Paths (persisted store, input, archive and output directories)
//   2. Logging settings
//   3. The spreadsheet template layout (fixed cell ranges and the header
//      dictionary used to locate columns)
//
// The template layout is position based. Every range the reader uses lives
// here so a change of template is a one-line edit in config.yaml.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"gopkg.in/yaml.v3"

	"github.com/yotellevo/passenger-import/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// StoreFile is the JSON file holding trips, passengers, reservations,
	// boarding points, sellers and id counters.
	// Default: "./data/store.json"
	StoreFile string `yaml:"store_file"`

	// InputDir is scanned for spreadsheets when no --file is given.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// InputArchiveDir receives spreadsheets after a successful import.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputDir receives exported manifests and import summary logs.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// Environment selects the zap preset: "development" or "production".
	// Default: "production"
	Environment string `yaml:"environment"`

	// =========================================================================
	// IMPORT SETTINGS
	// =========================================================================

	// Timezone is the IANA zone birth dates are anchored to.
	// Default: "Local"
	Timezone string `yaml:"timezone"`

	// ReservationIDWidth is the zero padding of the reservation sequence.
	// Default: 4 (R-26-0001)
	ReservationIDWidth int `yaml:"reservation_id_width"`

	// DefaultTransport is assigned to trips created by an import.
	DefaultTransport types.Transport `yaml:"default_transport"`

	// Layout describes where things live in the spreadsheet template.
	Layout TemplateLayout `yaml:"layout"`
}

// =============================================================================
// TEMPLATE LAYOUT
// =============================================================================

// TemplateLayout defines the fixed cell ranges of the passenger spreadsheet.
// Ranges use A1 notation ("A3:P3"). Nothing is auto-detected: a spreadsheet
// that does not follow the layout is read as empty or garbage rows.
type TemplateLayout struct {
	// Sheet is the sheet to read. Empty means the first sheet.
	Sheet string `yaml:"sheet"`

	// DestinationCell holds the trip destination name.
	// Default: "B1"
	DestinationCell string `yaml:"destination_cell"`

	// HeaderRange is the single row of column headers.
	// Default: "A3:P3"
	HeaderRange string `yaml:"header_range"`

	// DataRange is the block of passenger rows.
	// Default: "A4:P400"
	DataRange string `yaml:"data_range"`

	// PricingRange is a two column block: tier name, price.
	// Default: "R3:S12"
	PricingRange string `yaml:"pricing_range"`

	// Headers maps each logical field to the header spellings it accepts.
	// Spellings are compared after header normalization (trim, upper case,
	// periods removed), so "F. Nac." and "f nac" are the same header.
	Headers HeaderDictionary `yaml:"headers"`
}

// HeaderDictionary lists the accepted header spellings per field.
type HeaderDictionary struct {
	Name         []string   `yaml:"name"`
	DNI          []string   `yaml:"dni"`
	BirthDate    []string   `yaml:"birth_date"`
	Phone        []string   `yaml:"phone"`
	Boarding     []string   `yaml:"boarding"`
	Quantity     []string   `yaml:"quantity"`
	Value        []string   `yaml:"value"`
	Seller       []string   `yaml:"seller"`
	Installments [][]string `yaml:"installments"`
}

// MaxInstallments is the number of installment columns a payer row can carry.
const MaxInstallments = 4

// DefaultHeaderDictionary returns the header spellings used by the agency
// template.
func DefaultHeaderDictionary() HeaderDictionary {
	return HeaderDictionary{
		Name:      []string{"PASAJERO", "NOMBRE", "NOMBRE Y APELLIDO", "APELLIDO Y NOMBRE"},
		DNI:       []string{"DNI", "DOCUMENTO", "NRO DOC"},
		BirthDate: []string{"F NAC", "FECHA NAC", "FECHA DE NACIMIENTO", "NACIMIENTO"},
		Phone:     []string{"TELEFONO", "TEL", "CELULAR"},
		Boarding:  []string{"SUBE", "EMBARQUE", "PARADA"},
		Quantity:  []string{"CANT", "CANTIDAD", "PAX"},
		Value:     []string{"VALOR", "TOTAL", "PRECIO"},
		Seller:    []string{"VENDEDOR", "VENDE"},
		Installments: [][]string{
			{"SEÑA", "PAGO 1", "CUOTA 1"},
			{"PAGO 2", "CUOTA 2"},
			{"PAGO 3", "CUOTA 3"},
			{"PAGO 4", "CUOTA 4"},
		},
	}
}

// DefaultTemplateLayout returns the layout of the agency template.
func DefaultTemplateLayout() TemplateLayout {
	return TemplateLayout{
		DestinationCell: "B1",
		HeaderRange:     "A3:P3",
		DataRange:       "A4:P400",
		PricingRange:    "R3:S12",
		Headers:         DefaultHeaderDictionary(),
	}
}

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	return cfg
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file
//     yields the defaults.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var cfg MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Run on defaults.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyMainConfigDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(cfg *MainConfig) {
	if cfg.StoreFile == "" {
		cfg.StoreFile = "./data/store.json"
	}
	if cfg.InputDir == "" {
		cfg.InputDir = "./input"
	}
	if cfg.InputArchiveDir == "" {
		cfg.InputArchiveDir = "./input_archive"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Environment == "" {
		cfg.Environment = "production"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.ReservationIDWidth == 0 {
		cfg.ReservationIDWidth = 4
	}
	if cfg.DefaultTransport.Type == "" {
		cfg.DefaultTransport.Type = "bus"
	}
	if cfg.DefaultTransport.Capacity == 0 {
		cfg.DefaultTransport.Capacity = 60
	}

	applyLayoutDefaults(&cfg.Layout)
}

// applyLayoutDefaults fills unset ranges and header lists field by field, so a
// config can override a single alias list without restating the rest.
func applyLayoutDefaults(layout *TemplateLayout) {
	def := DefaultTemplateLayout()
	if layout.DestinationCell == "" {
		layout.DestinationCell = def.DestinationCell
	}
	if layout.HeaderRange == "" {
		layout.HeaderRange = def.HeaderRange
	}
	if layout.DataRange == "" {
		layout.DataRange = def.DataRange
	}
	if layout.PricingRange == "" {
		layout.PricingRange = def.PricingRange
	}

	h := &layout.Headers
	dh := def.Headers
	if len(h.Name) == 0 {
		h.Name = dh.Name
	}
	if len(h.DNI) == 0 {
		h.DNI = dh.DNI
	}
	if len(h.BirthDate) == 0 {
		h.BirthDate = dh.BirthDate
	}
	if len(h.Phone) == 0 {
		h.Phone = dh.Phone
	}
	if len(h.Boarding) == 0 {
		h.Boarding = dh.Boarding
	}
	if len(h.Quantity) == 0 {
		h.Quantity = dh.Quantity
	}
	if len(h.Value) == 0 {
		h.Value = dh.Value
	}
	if len(h.Seller) == 0 {
		h.Seller = dh.Seller
	}
	if len(h.Installments) == 0 {
		h.Installments = dh.Installments
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

var (
	rangePattern = regexp.MustCompile(`^[A-Z]+[0-9]+:[A-Z]+[0-9]+$`)
	cellPattern  = regexp.MustCompile(`^[A-Z]+[0-9]+$`)
)

// Validate checks the configuration for values the importer cannot work with.
func (c *MainConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.StoreFile, validation.Required),
		validation.Field(&c.LogLevel, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Environment, validation.In("development", "production")),
		validation.Field(&c.ReservationIDWidth, validation.Min(1), validation.Max(8)),
		validation.Field(&c.Timezone, validation.By(validateTimezone)),
		validation.Field(&c.Layout),
	)
	if err != nil {
		return err
	}
	return nil
}

// Validate implements validation.Validatable so MainConfig.Validate descends
// into the layout.
func (l TemplateLayout) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.DestinationCell, validation.Match(cellPattern)),
		validation.Field(&l.HeaderRange, validation.Required, validation.Match(rangePattern)),
		validation.Field(&l.DataRange, validation.Required, validation.Match(rangePattern)),
		validation.Field(&l.PricingRange, validation.Match(rangePattern)),
		validation.Field(&l.Headers),
	)
}

// Validate requires the two columns without which no passenger can be built.
func (h HeaderDictionary) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Name, validation.Required),
		validation.Field(&h.DNI, validation.Required),
		validation.Field(&h.Installments, validation.Length(0, MaxInstallments)),
	)
}

func validateTimezone(value interface{}) error {
	name, _ := value.(string)
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("unknown timezone %q", name)
	}
	return nil
}

// Location returns the configured time zone, falling back to time.Local.
func (c *MainConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
