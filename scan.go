package relic

import (
	"github.com/syssam/relic/dialect"
)

// Column scan helpers used by generated Decode implementations. Each
// reads one column by index and converts it to the field's Go type;
// Null-prefixed variants return nil for NULL columns.

// ScanInt64 reads an integer column.
func ScanInt64(row dialect.Row, index int) (int64, error) {
	v, err := row.Get(index)
	if err != nil {
		return 0, err
	}
	return v.Int64()
}

// ScanNullInt64 reads a nullable integer column.
func ScanNullInt64(row dialect.Row, index int) (*int64, error) {
	v, err := row.Get(index)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	i, err := v.Int64()
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// ScanFloat64 reads a floating-point column. Integer values convert
// losslessly.
func ScanFloat64(row dialect.Row, index int) (float64, error) {
	v, err := row.Get(index)
	if err != nil {
		return 0, err
	}
	return v.Float64()
}

// ScanNullFloat64 reads a nullable floating-point column.
func ScanNullFloat64(row dialect.Row, index int) (*float64, error) {
	v, err := row.Get(index)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	f, err := v.Float64()
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ScanText reads a text column.
func ScanText(row dialect.Row, index int) (string, error) {
	v, err := row.Get(index)
	if err != nil {
		return "", err
	}
	return v.Text()
}

// ScanNullText reads a nullable text column.
func ScanNullText(row dialect.Row, index int) (*string, error) {
	v, err := row.Get(index)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	s, err := v.Text()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ScanBool reads an integer column as a boolean (0 is false).
func ScanBool(row dialect.Row, index int) (bool, error) {
	v, err := row.Get(index)
	if err != nil {
		return false, err
	}
	return v.Bool()
}

// ScanNullBool reads a nullable integer column as a boolean.
func ScanNullBool(row dialect.Row, index int) (*bool, error) {
	v, err := row.Get(index)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	b, err := v.Bool()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ScanBlob reads a blob column.
func ScanBlob(row dialect.Row, index int) ([]byte, error) {
	v, err := row.Get(index)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	return v.Bytes()
}
