package migrate

import (
	"fmt"
	"strings"
)

// Pre-built migrations for common schema operations.

// CreateTable returns a migration creating a table with the given
// (name, definition) column pairs.
func CreateTable(table string, columns [][2]string) Migration {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = c[0] + " " + c[1]
	}
	return NewBuilder("create_table_" + table).
		Up(fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))).
		Down("DROP TABLE " + table).
		Build()
}

// AddColumn returns a migration adding a column to an existing table.
func AddColumn(table, column, definition string) Migration {
	return NewBuilder(fmt.Sprintf("add_column_%s_%s", table, column)).
		Up(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)).
		Down(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, column)).
		Build()
}

// DropColumn returns a migration dropping a column.
func DropColumn(table, column string) Migration {
	return NewBuilder(fmt.Sprintf("drop_column_%s_%s", table, column)).
		Up(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, column)).
		Build()
}

// CreateIndex returns a migration creating an index over the given
// columns.
func CreateIndex(index, table string, columns ...string) Migration {
	return NewBuilder("create_index_" + index).
		Up(fmt.Sprintf("CREATE INDEX %s ON %s (%s)", index, table, strings.Join(columns, ", "))).
		Down("DROP INDEX " + index).
		Build()
}

// DropIndex returns a migration dropping an index.
func DropIndex(index string) Migration {
	return NewBuilder("drop_index_" + index).
		Up("DROP INDEX " + index).
		Build()
}
