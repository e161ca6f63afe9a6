package clickhouse

import (
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"hermannm.dev/dashboard/db"
	"hermannm.dev/wrap"
)

// scanRowsToRecords reads all rows generically, using the driver's scan types
// to allocate targets, so it works for any SELECT shape (raw queries
// included). Column order is preserved in the returned slice, since records
// lose it.
func scanRowsToRecords(rows driver.Rows) ([]string, []db.Record, error) {
	columnTypes := rows.ColumnTypes()
	columns := make([]string, len(columnTypes))
	for i, columnType := range columnTypes {
		columns[i] = columnType.Name()
	}

	var records []db.Record
	for rows.Next() {
		targets := make([]any, len(columnTypes))
		for i, columnType := range columnTypes {
			targets[i] = reflect.New(columnType.ScanType()).Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, nil, wrap.Error(err, "failed to scan result row")
		}

		record := make(db.Record, len(columns))
		for i, column := range columns {
			record[column] = dereferenceScanned(targets[i])
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, wrap.Error(err, "failed to read result rows")
	}

	return columns, records, nil
}

// dereferenceScanned unwraps the pointer scan target, and the extra pointer
// level Nullable columns add, mapping SQL NULL to nil.
func dereferenceScanned(target any) any {
	value := reflect.ValueOf(target)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	return value.Interface()
}
