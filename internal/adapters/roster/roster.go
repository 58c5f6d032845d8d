// Package roster reads the class list and writes the gradebook import file.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
)

// Column names of the gradebook export.
const (
	ColumnOrgID     = "OrgDefinedId"
	ColumnUsername  = "Username"
	ColumnLastName  = "Last Name"
	ColumnFirstName = "First Name"
	ColumnEOL       = "End-of-Line Indicator"

	eolMarker = "#"
	utf8BOM   = "\ufeff"
)

// ErrRosterLoad is returned when the class list cannot be read.
var ErrRosterLoad = errors.New("failed to load roster")

var aliases = map[string][]string{
	ColumnOrgID:     {ColumnOrgID},
	ColumnUsername:  {ColumnUsername},
	ColumnLastName:  {ColumnLastName, "LastName"},
	ColumnFirstName: {ColumnFirstName, "FirstName"},
}

// Load reads the class list at path. Identity fields are normalized and the
// file order is preserved.
func Load(path string) ([]model.RosterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRosterLoad, err)
	}
	defer f.Close()

	entries, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Read parses a class list from r.
func Read(r io.Reader) ([]model.RosterEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrRosterLoad, err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var entries []model.RosterEntry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrRosterLoad, line, err)
		}
		get := func(col string) string {
			i := cols[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		id := model.NewIdentity(get(ColumnOrgID), get(ColumnUsername))
		if id.Username == "" {
			continue
		}
		entries = append(entries, model.RosterEntry{
			Identity:  id,
			FirstName: get(ColumnFirstName),
			LastName:  get(ColumnLastName),
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: roster is empty", ErrRosterLoad)
	}
	return entries, nil
}

func columnIndex(header []string) (map[string]int, error) {
	seen := make(map[string]int, len(header))
	for i, h := range header {
		seen[strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))] = i
	}
	cols := make(map[string]int, len(aliases))
	var missing []string
	for col, names := range aliases {
		found := false
		for _, n := range names {
			if i, ok := seen[n]; ok {
				cols[col], found = i, true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: missing columns %s", ErrRosterLoad, strings.Join(missing, ", "))
	}
	return cols, nil
}
