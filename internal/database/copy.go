package database

import (
	"fmt"
	"strings"

	"github.com/milocarbol/dndcampaign/internal/logger"
)

// copyTable describes one table for CopyTo.
type copyTable struct {
	name string
	// hasID marks tables keyed by an auto-assigned id column.
	hasID bool
	// selfRef names a column referencing the same table. It is copied in a
	// second pass once every row exists.
	selfRef string
}

// Tables in dependency order.
var copyTables = []copyTable{
	{name: "campaigns", hasID: true},
	{name: "attributes", hasID: true},
	{name: "things", hasID: true},
	{name: "attribute_values"},
	{name: "random_attributes", hasID: true},
	{name: "thing_children"},
	{name: "randomizer_attributes", hasID: true},
	{name: "randomizer_options", hasID: true},
	{name: "randomizer_categories", hasID: true},
	{name: "category_use_values_from"},
	{name: "category_options", hasID: true},
	{name: "weight_presets", hasID: true},
	{name: "weights"},
	{name: "generator_objects", hasID: true, selfRef: "inherit_settings_from"},
	{name: "generator_contains", hasID: true},
	{name: "generator_mappings", hasID: true},
}

// TableNames returns the schema's tables in dependency order.
func TableNames() []string {
	names := make([]string, len(copyTables))
	for i, t := range copyTables {
		names[i] = t.name
	}
	return names
}

// CopyResult counts the rows read from and written for one table.
type CopyResult struct {
	Table   string
	Read    int64
	Written int64
}

// CopyTo copies every row into dst, keeping ids. Rows whose key already exists
// in dst are left alone, so a copy can be re-run. With dryRun set rows are only
// counted.
func (d *Database) CopyTo(dst *Database, dryRun bool) ([]CopyResult, error) {
	results := make([]CopyResult, 0, len(copyTables))
	for _, t := range copyTables {
		res, err := d.copyTable(dst, t, dryRun)
		if err != nil {
			return results, fmt.Errorf("failed to copy %s: %w", t.name, err)
		}
		logger.Debug("Copied table", "table", t.name, "read", res.Read, "written", res.Written)
		results = append(results, res)
	}
	return results, nil
}

func (d *Database) copyTable(dst *Database, t copyTable, dryRun bool) (CopyResult, error) {
	res := CopyResult{Table: t.name}

	order := ""
	if t.hasID {
		order = " ORDER BY id"
	}
	rows, err := d.query("SELECT * FROM " + t.name + order)
	if err != nil {
		return res, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return res, err
	}
	selfRef := -1
	for i, c := range columns {
		if t.selfRef != "" && c == t.selfRef {
			selfRef = i
		}
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		t.name, strings.Join(columns, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))

	type link struct{ id, ref any }
	var links []link

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return res, err
		}
		res.Read++
		if dryRun {
			continue
		}

		if selfRef >= 0 && values[selfRef] != nil {
			links = append(links, link{id: values[0], ref: values[selfRef]})
			values[selfRef] = nil
		}
		result, err := dst.exec(insert, values...)
		if err != nil {
			return res, err
		}
		if n, err := result.RowsAffected(); err == nil {
			res.Written += n
		}
	}
	if err := rows.Err(); err != nil {
		return res, err
	}

	for _, l := range links {
		update := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ? AND %s IS NULL", t.name, t.selfRef, t.selfRef)
		if _, err := dst.exec(update, l.ref, l.id); err != nil {
			return res, err
		}
	}

	if t.hasID && !dryRun {
		if err := dst.resetSequence(t.name); err != nil {
			return res, err
		}
	}
	return res, nil
}

// resetSequence moves a Postgres id sequence past the copied ids. SQLite
// tracks explicit AUTOINCREMENT ids on its own.
func (d *Database) resetSequence(table string) error {
	if _, ok := d.dialect.(*PostgresDialect); !ok {
		return nil
	}
	_, err := d.exec(fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
		table, table))
	return err
}
