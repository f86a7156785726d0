// Package grouping partitions passenger rows into family clusters.
//
// The agency marks the members of one family by painting their name cells
// with the same background colour. That visual convention is the only
// grouping signal the template carries, so it sits behind KeyExtractor:
// the reconciliation engine only ever sees []Group.
package grouping

import (
	"sort"
	"strconv"

	"github.com/yotellevo/passenger-import/internal/xlsxparser"
)

// KeyExtractor yields the cluster key of a row. ok is false when the row
// carries no grouping signal; such a row becomes a group of its own.
type KeyExtractor interface {
	Key(row xlsxparser.Row) (key string, ok bool)
}

// noGrouping lists fill colours that mean "not part of a family": no fill,
// plain white and plain black.
var noGrouping = map[string]bool{
	"":       true,
	"FFFFFF": true,
	"000000": true,
}

// FillColorKey groups rows by the exact RGB fill colour of one column.
type FillColorKey struct {
	Column string
}

// Key implements KeyExtractor.
func (k FillColorKey) Key(row xlsxparser.Row) (string, bool) {
	color := xlsxparser.NormalizeColor(row.Fill(k.Column))
	if noGrouping[color] {
		return "", false
	}
	return "fill:" + color, true
}

// ColumnKey groups rows by the value of an explicit family column.
type ColumnKey struct {
	Column string
}

// Key implements KeyExtractor.
func (k ColumnKey) Key(row xlsxparser.Row) (string, bool) {
	v := row.Cell(k.Column)
	if v == "" {
		return "", false
	}
	return "col:" + v, true
}

// Group is one family cluster. Rows keep sheet order.
type Group struct {
	Key  string
	Rows []xlsxparser.Row
}

// Cluster groups the rows whose nameColumn cell is non-empty. Rows without a
// grouping signal each form a singleton keyed by their row number. Groups
// are ordered by their first row so downstream labelling is deterministic.
func Cluster(rows []xlsxparser.Row, nameColumn string, extractor KeyExtractor) []Group {
	ordered := make([]xlsxparser.Row, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	index := make(map[string]int)
	var groups []Group

	for _, row := range ordered {
		if row.Cell(nameColumn) == "" {
			continue
		}

		key, ok := extractor.Key(row)
		if !ok {
			key = "row:" + strconv.Itoa(row.Number)
		}

		if i, exists := index[key]; exists {
			groups[i].Rows = append(groups[i].Rows, row)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, Group{Key: key, Rows: []xlsxparser.Row{row}})
	}

	return groups
}
