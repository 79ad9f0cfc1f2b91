// Package schema defines the fixed three-field output schema and the rows produced against it.
package schema

import (
	"fmt"
	"strconv"
)

// FieldType is the storage type of an output field.
type FieldType int

const (
	Int64 FieldType = iota
	VWString
	String
)

// DefaultTextSize is the maximum length, in runes, of the schema's text fields.
const DefaultTextSize = 100

// Default field names.
const (
	DefaultIDField     = "Employee Id"
	DefaultNameField   = "Employee Name"
	DefaultSalaryField = "Salary"
)

func (t FieldType) String() string {
	switch t {
	case Int64:
		return "int64"
	case VWString:
		return "v_wstring"
	case String:
		return "string"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// MarshalText lets the type appear by name in JSON output.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Field is a single named, typed output column.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
	Size int       `json:"size,omitempty"` // 0 = unbounded
}

// Schema is an ordered list of fields.
type Schema struct {
	Fields []Field
}

// New builds the fixed schema: an int64 id followed by two bounded text fields.
func New(idName, nameName, salaryName string) Schema {
	return Schema{Fields: []Field{
		{Name: idName, Type: Int64},
		{Name: nameName, Type: VWString, Size: DefaultTextSize},
		{Name: salaryName, Type: String, Size: DefaultTextSize},
	}}
}

// Default returns the schema with the default field names.
func Default() Schema {
	return New(DefaultIDField, DefaultNameField, DefaultSalaryField)
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Value is a single cell. Exactly one of Int or Str is meaningful, selected by the field type.
type Value struct {
	Type FieldType
	Int  int64
	Str  string
}

// IntValue returns an int64 cell.
func IntValue(v int64) Value { return Value{Type: Int64, Int: v} }

// TextValue returns a text cell of the given type.
func TextValue(t FieldType, v string) Value { return Value{Type: t, Str: v} }

// String renders the cell as text.
func (v Value) String() string {
	if v.Type == Int64 {
		return strconv.FormatInt(v.Int, 10)
	}
	return v.Str
}

// Interface returns the cell as an int64 or a string.
func (v Value) Interface() any {
	if v.Type == Int64 {
		return v.Int
	}
	return v.Str
}

// Row is one record in schema order.
type Row []Value

// Strings renders every cell of the row as text.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = v.String()
	}
	return out
}

// Validate checks that the row has the schema's shape.
func (s Schema) Validate(r Row) error {
	if len(r) != len(s.Fields) {
		return fmt.Errorf("row has %d values, schema has %d fields", len(r), len(s.Fields))
	}
	for i, f := range s.Fields {
		if r[i].Type != f.Type {
			return fmt.Errorf("field %q: value type %s, want %s", f.Name, r[i].Type, f.Type)
		}
	}
	return nil
}
