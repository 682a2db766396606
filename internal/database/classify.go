package database

import "strings"

// ColumnClass is how a declared column type is handled.
type ColumnClass int

const (
	// ClassExcluded columns are never read.
	ClassExcluded ColumnClass = iota
	// ClassText columns are read as-is.
	ClassText
	// ClassJSON columns are cast to text.
	ClassJSON
	// ClassNumeric columns are cast to text.
	ClassNumeric
)

func (c ColumnClass) String() string {
	switch c {
	case ClassText:
		return "text"
	case ClassJSON:
		return "json"
	case ClassNumeric:
		return "numeric"
	default:
		return "excluded"
	}
}

// Indexed reports whether values of this class are read.
func (c ColumnClass) Indexed() bool { return c != ClassExcluded }

var textTypes = map[string]bool{
	"text":              true,
	"varchar":           true,
	"char":              true,
	"character varying": true,
	"character":         true,
	"name":              true,
	"clob":              true,
	"nvarchar":          true,
	"nchar":             true,
	"citext":            true,
}

var numericTypes = map[string]bool{
	"integer":   true,
	"bigint":    true,
	"smallint":  true,
	"tinyint":   true,
	"mediumint": true,
	"numeric":   true,
	"decimal":   true,
}

// Classify maps a declared column type to its class.
// The type is lower-cased and any "(n)" modifier is dropped first, so
// "VARCHAR(255)" and "numeric(10,2)" classify like "varchar" and "numeric".
func Classify(declared string) ColumnClass {
	t := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	switch {
	case textTypes[t]:
		return ClassText
	case t == "json" || t == "jsonb":
		return ClassJSON
	case numericTypes[t], strings.HasPrefix(t, "int"):
		return ClassNumeric
	default:
		return ClassExcluded
	}
}
