package pipeline

import (
	"sort"
	"strconv"
	"strings"
)

// SchemaVersion identifies the canonical column set written by Normalize.
// Bump it whenever a canonical column is added, removed or retyped.
const SchemaVersion = 1

// ColumnType is the semantic type of a canonical column.
type ColumnType int

const (
	TypeInt ColumnType = iota
	TypeNullableInt
	TypeCategory
	TypeBool
)

func (t ColumnType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeNullableInt:
		return "nullable_int"
	case TypeCategory:
		return "category"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Column is one canonical output column.
type Column struct {
	Name string
	Type ColumnType
}

// Canonical column names.
const (
	ColPrice            = "Price EUR"
	ColYear             = "Manufactured year"
	ColMonth            = "Manufactured month"
	ColMileage          = "Mileage km"
	ColHorsepower       = "Horsepower"
	ColCapacity         = "Capacity"
	ColFuel             = "Fuel"
	ColTransmission     = "Transmission"
	ColTransmissionType = "Transmission type"
	ColGears            = "Gears"
	ColDrive            = "Drive"
	ColForm             = "Form"
	ColDoors            = "Doors"
	ColCondition        = "Condition"
	ColColor            = "Color"
	ColPaint            = "Paint"
	ColMetallic         = "Metallic"
	ColACType           = "A/C type"
	ColDocumentsType    = "Documents type"
	ColDocuments        = "Documents"
	ColDocumentsValid   = "Documents valid"
	ColTrunkCapacity    = "Trunk capacity liters"
	ColOwnWeight        = "Own weight kg"
	ColTotalWeight      = "Total weight kg"
	ColCMaxVariant      = "C-Max_variant"
)

// CanonicalSchema is the fixed leading column set of every output table.
var CanonicalSchema = []Column{
	{ColPrice, TypeInt},
	{ColYear, TypeNullableInt},
	{ColMonth, TypeNullableInt},
	{ColMileage, TypeNullableInt},
	{ColHorsepower, TypeNullableInt},
	{ColCapacity, TypeNullableInt},
	{ColFuel, TypeCategory},
	{ColTransmissionType, TypeCategory},
	{ColGears, TypeNullableInt},
	{ColDrive, TypeCategory},
	{ColForm, TypeCategory},
	{ColDoors, TypeNullableInt},
	{ColCondition, TypeCategory},
	{ColPaint, TypeCategory},
	{ColMetallic, TypeBool},
	{ColACType, TypeCategory},
	{ColDocuments, TypeCategory},
	{ColDocumentsValid, TypeCategory},
	{ColTrunkCapacity, TypeNullableInt},
	{ColOwnWeight, TypeNullableInt},
	{ColTotalWeight, TypeNullableInt},
	{ColCMaxVariant, TypeCategory},
}

// Project orders the table as the canonical columns followed by every other
// column in sorted order, and coerces nullable integer columns: empty or
// malformed values become null.
type Project struct {
	Schema []Column
}

func (s *Project) Name() string { return "project_schema" }

func (s *Project) Apply(in *Table, rep *Report) (*Table, error) {
	canonical := make(map[string]ColumnType, len(s.Schema))
	columns := make([]string, 0, len(s.Schema)+len(in.columns))
	for _, c := range s.Schema {
		canonical[c.Name] = c.Type
		columns = append(columns, c.Name)
	}

	var extras []string
	for _, c := range in.columns {
		if _, ok := canonical[c]; !ok {
			extras = append(extras, c)
		}
	}
	sort.Strings(extras)
	columns = append(columns, extras...)

	return in.mapRows(columns, func(r Row) (Row, bool) {
		for _, c := range s.Schema {
			v := r.Values[c.Name]
			if c.Type == TypeNullableInt {
				v = nullableInt(v)
			}
			r.Values[c.Name] = v
		}
		return r, true
	}), nil
}

func nullableInt(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil
		}
		return n
	default:
		n, err := toInt(val)
		if err != nil {
			return nil
		}
		return n
	}
}
