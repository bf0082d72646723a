// Package codetable provides static bidirectional code translation between
// the ERP and MES value domains (units of measure, plants, storage locations,
// inventory move statuses). Tables are loaded once at process start and are
// read-only afterwards.
package codetable

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
)

//go:embed tables/*.csv
var defaultTables embed.FS

// NotFoundError is returned when a code has no entry in a table.
type NotFoundError struct {
	Table string
	Code  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s value not found for code %q", e.Table, e.Code)
}

// Table is a bidirectional map between an ERP code and its MES counterpart.
// First-seen entries win on either side, which allows many-to-one folds such
// as two casing variants of the same unit collapsing to one ERP code.
type Table struct {
	name     string
	erpToMes map[string]string
	mesToErp map[string]string
}

// NewTable returns an empty table. The name is used in error messages only.
func NewTable(name string) *Table {
	return &Table{
		name:     name,
		erpToMes: make(map[string]string),
		mesToErp: make(map[string]string),
	}
}

// Name returns the human-readable table name.
func (t *Table) Name() string { return t.name }

// Add registers a mapping between a MES code and an ERP code. It is a no-op
// for any direction that already has an entry.
func (t *Table) Add(mesCode, erpCode string) {
	if _, ok := t.erpToMes[erpCode]; !ok {
		t.erpToMes[erpCode] = mesCode
	}
	if _, ok := t.mesToErp[mesCode]; !ok {
		t.mesToErp[mesCode] = erpCode
	}
}

// HasMes reports whether the given ERP code has a MES counterpart.
func (t *Table) HasMes(erpCode string) bool {
	_, ok := t.erpToMes[erpCode]
	return ok
}

// HasErp reports whether the given MES code has an ERP counterpart.
func (t *Table) HasErp(mesCode string) bool {
	_, ok := t.mesToErp[mesCode]
	return ok
}

// ToMes translates an ERP code to its MES counterpart.
func (t *Table) ToMes(erpCode string) (string, error) {
	v, ok := t.erpToMes[erpCode]
	if !ok {
		return "", &NotFoundError{Table: "MES " + t.name, Code: erpCode}
	}
	return v, nil
}

// ToErp translates a MES code to its ERP counterpart.
func (t *Table) ToErp(mesCode string) (string, error) {
	v, ok := t.mesToErp[mesCode]
	if !ok {
		return "", &NotFoundError{Table: "ERP " + t.name, Code: mesCode}
	}
	return v, nil
}

// Set bundles the four process-wide code tables.
type Set struct {
	UOM           *Table
	Plant         *Table
	Location      *Table
	InventoryMove *Table
}

// Load builds the table set from CSV files in the given filesystem. Each file
// has a header row and Mes,Erp,Enabled columns; a row with an explicit
// Enabled=false flag is skipped.
func Load(fsys fs.FS) (*Set, error) {
	uom, err := loadTable(fsys, "tables/uom.csv", "UOM")
	if err != nil {
		return nil, err
	}
	plant, err := loadTable(fsys, "tables/plant.csv", "Plant")
	if err != nil {
		return nil, err
	}
	location, err := loadTable(fsys, "tables/location.csv", "Location")
	if err != nil {
		return nil, err
	}
	moveStatus, err := loadTable(fsys, "tables/inventory-move-status.csv", "Inventory Move Status")
	if err != nil {
		return nil, err
	}
	return &Set{UOM: uom, Plant: plant, Location: location, InventoryMove: moveStatus}, nil
}

// LoadDefault loads the table set embedded in the binary.
func LoadDefault() (*Set, error) {
	return Load(defaultTables)
}

func loadTable(fsys fs.FS, path, name string) (*Table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open code table %s: %w", path, err)
	}
	defer f.Close()

	table, err := parseTable(f, name)
	if err != nil {
		return nil, fmt.Errorf("parse code table %s: %w", path, err)
	}
	return table, nil
}

func parseTable(r io.Reader, name string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	mesIdx, ok := cols["Mes"]
	if !ok {
		return nil, fmt.Errorf("missing Mes column")
	}
	erpIdx, ok := cols["Erp"]
	if !ok {
		return nil, fmt.Errorf("missing Erp column")
	}
	enabledIdx, hasEnabled := cols["Enabled"]

	table := NewTable(name)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if hasEnabled && enabledIdx < len(row) && row[enabledIdx] != "" {
			enabled, err := strconv.ParseBool(strings.TrimSpace(row[enabledIdx]))
			if err != nil {
				return nil, fmt.Errorf("invalid Enabled flag %q", row[enabledIdx])
			}
			if !enabled {
				continue
			}
		}
		table.Add(row[mesIdx], row[erpIdx])
	}
	return table, nil
}
