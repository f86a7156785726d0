// =============================================================================
// YO TE LLEVO Importer - Value Normalizers
// =============================================================================
//
// Spreadsheet cells arrive as raw strings. These helpers turn them into the
// values the reconciliation engine works with:
//   - Excel serial dates (1900 date system) -> calendar dates
//   - Free text names -> title case
//   - Header captions -> a stable lookup key
//   - Currency cells -> float64
//   - File names -> a best-guess month
//
// =============================================================================

package normalize

import (
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// =============================================================================
// DATES
// =============================================================================

var (
	// excelEpoch is day zero for serials from 61 onwards. It sits one day
	// before 1899-12-31 because Excel counts a 29 February 1900 that never
	// existed.
	excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

	// excel1900 is serial 1. Serials below 61 precede the phantom leap day.
	excel1900 = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// textDateLayouts are accepted when a birth date was typed as text.
var textDateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
}

// ExcelSerialDate converts an Excel serial day count into a calendar date at
// midnight in loc.
//
// PARAMETERS:
//   - raw: The raw cell value, e.g. "36526" or "36526.5".
//   - loc: The time zone the date is anchored to. nil means time.Local.
//
// RETURNS:
//   - The decoded date.
//   - false when raw is not a positive number or a recognised text date.
func ExcelSerialDate(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		for _, layout := range textDateLayouts {
			if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if serial < 1 || math.IsInf(serial, 0) || math.IsNaN(serial) {
		return time.Time{}, false
	}

	days := int(serial) // time of day is dropped
	var utc time.Time
	if days < 61 {
		utc = excel1900.AddDate(0, 0, days-1)
	} else {
		utc = excelEpoch.AddDate(0, 0, days)
	}

	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, loc), true
}

// ExcelSerial is the inverse of ExcelSerialDate for a calendar date: the
// serial Excel stores for t's year, month and day.
func ExcelSerial(t time.Time) int {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	serial := int(day.Sub(excelEpoch).Hours() / 24)
	if serial < 61 {
		serial = int(day.Sub(excel1900).Hours()/24) + 1
	}
	return serial
}

// =============================================================================
// TEXT
// =============================================================================

// TitleCase lowercases s and capitalises the first letter of every
// whitespace-separated token. Runs of whitespace collapse to one space.
func TitleCase(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	for i, f := range fields {
		r := []rune(f)
		r[0] = unicode.ToUpper(r[0])
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

// Header normalizes a header caption: trimmed, upper case, periods removed
// and inner whitespace collapsed. "F. Nac." and "f nac" both become "F NAC".
func Header(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Digits keeps only the ASCII digits of s. Used for DNI cells, which come in
// as "30.123.456", "30123456" or "30123456.0".
func Digits(s string) string {
	s = strings.TrimSpace(s)
	// A numeric cell read raw can carry a trailing ".0".
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) && strings.Contains(s, ".") && !thousands.MatchString(s) {
		s = strconv.FormatInt(int64(f), 10)
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// =============================================================================
// AMOUNTS
// =============================================================================

// thousands matches "100.000" and "1.250.000": dots as group separators.
var thousands = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// Amount parses a money or quantity cell. It accepts raw numerics ("100000",
// "2.5") and Argentine formatting ("$ 100.000", "1.250,50").
//
// RETURNS:
//   - The parsed value.
//   - false when the cell is empty or holds no finite number.
func Amount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return 0, false
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		// The right-most separator is the decimal one.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		if i := strings.LastIndex(s, ","); len(s)-i-1 <= 2 && strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasDot && thousands.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// =============================================================================
// FILE NAMES
// =============================================================================

// monthNames maps the spellings found in agency file names to months.
// Longer spellings come first so "sept" wins over "sep".
var monthNames = []struct {
	name  string
	month time.Month
}{
	{"septiembre", time.September}, {"setiembre", time.September},
	{"noviembre", time.November}, {"diciembre", time.December},
	{"february", time.February}, {"september", time.September},
	{"november", time.November}, {"december", time.December},
	{"febrero", time.February}, {"october", time.October},
	{"january", time.January}, {"octubre", time.October},
	{"agosto", time.August}, {"august", time.August},
	{"junio", time.June}, {"julio", time.July},
	{"enero", time.January}, {"march", time.March},
	{"marzo", time.March}, {"abril", time.April},
	{"april", time.April}, {"mayo", time.May},
	{"june", time.June}, {"july", time.July},
	{"sept", time.September},
	{"ene", time.January}, {"jan", time.January},
	{"feb", time.February}, {"mar", time.March},
	{"abr", time.April}, {"apr", time.April},
	{"may", time.May}, {"jun", time.June},
	{"jul", time.July}, {"ago", time.August},
	{"aug", time.August}, {"sep", time.September},
	{"set", time.September}, {"oct", time.October},
	{"nov", time.November}, {"dic", time.December},
	{"dec", time.December},
}

var wordSplit = regexp.MustCompile(`[^\p{L}]+`)

// MonthFromFileName guesses the travel month from a file name such as
// "Bariloche Julio 2025.xlsx". Full month names win over abbreviations so
// "Mar del Plata Enero" is January. Returns 0 when nothing matches.
func MonthFromFileName(name string) time.Month {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	words := wordSplit.Split(base, -1)

	// Full names as whole words.
	for _, w := range words {
		for _, m := range monthNames {
			if len(m.name) > 3 && w == m.name {
				return m.month
			}
		}
	}
	// Full names glued to other text, e.g. "viajejulio".
	for _, w := range words {
		for _, m := range monthNames {
			if len(m.name) > 4 && strings.Contains(w, m.name) {
				return m.month
			}
		}
	}
	// Abbreviations as whole words.
	for _, w := range words {
		for _, m := range monthNames {
			if len(m.name) <= 3 && w == m.name {
				return m.month
			}
		}
	}
	return 0
}

// DestinationFromFileName strips the extension, digits and month words from a
// file name, leaving the destination ("bariloche julio 2025.xlsx" -> "Bariloche").
func DestinationFromFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var kept []string
	for _, w := range wordSplit.Split(base, -1) {
		if w == "" || isMonthWord(strings.ToLower(w)) {
			continue
		}
		kept = append(kept, w)
	}
	return TitleCase(strings.Join(kept, " "))
}

// isMonthWord only considers full names: "Mar" is part of "Mar del Plata".
func isMonthWord(w string) bool {
	for _, m := range monthNames {
		if len(m.name) > 3 && w == m.name {
			return true
		}
	}
	return false
}
