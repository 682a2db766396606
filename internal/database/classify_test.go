package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		declared string
		expected ColumnClass
	}{
		{"text", ClassText},
		{"TEXT", ClassText},
		{"character varying", ClassText},
		{"VARCHAR(255)", ClassText},
		{"char(2)", ClassText},
		{"name", ClassText},
		{"citext", ClassText},
		{"json", ClassJSON},
		{"JSONB", ClassJSON},
		{"integer", ClassNumeric},
		{"int4", ClassNumeric},
		{"INT", ClassNumeric},
		{"bigint", ClassNumeric},
		{"numeric(10,2)", ClassNumeric},
		{"decimal", ClassNumeric},
		{"boolean", ClassExcluded},
		{"bytea", ClassExcluded},
		{"BLOB", ClassExcluded},
		{"timestamp with time zone", ClassExcluded},
		{"uuid", ClassExcluded},
		{"", ClassExcluded},
	}

	for _, tc := range tests {
		t.Run(tc.declared, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.declared))
		})
	}
}

func TestColumnClass_Indexed(t *testing.T) {
	assert.True(t, ClassText.Indexed())
	assert.True(t, ClassJSON.Indexed())
	assert.True(t, ClassNumeric.Indexed())
	assert.False(t, ClassExcluded.Indexed())
	assert.Equal(t, "excluded", ClassExcluded.String())
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"notes"`, quoteIdent("notes"))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}

func TestProjection(t *testing.T) {
	pg := &SQLIntrospector{dialect: postgresDialect, schema: "public"}
	assert.Equal(t,
		`SELECT CAST("clientes"."notes" AS TEXT) FROM "public"."clientes" WHERE "clientes"."notes" IS NOT NULL AND CAST("clientes"."notes" AS TEXT) <> ''`,
		pg.projection("clientes", "notes"))

	lite := &SQLIntrospector{dialect: sqliteDialect}
	assert.Equal(t,
		`SELECT CAST("clientes"."notes" AS TEXT) FROM "clientes" WHERE "clientes"."notes" IS NOT NULL AND CAST("clientes"."notes" AS TEXT) <> ''`,
		lite.projection("clientes", "notes"))
}
