package composite

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeyDelimiter separates encoded values inside a composite key token.
// A value that itself contains the delimiter can collide with another key.
const KeyDelimiter = "+"

// Columns is the descriptor form of a composite key: ordered column names.
type Columns []string

// Cols is shorthand for building a Columns descriptor.
func Cols(names ...string) Columns {
	return Columns(names)
}

// String joins the column names with the key delimiter.
func (c Columns) String() string {
	return strings.Join(c, KeyDelimiter)
}

// Qualify prefixes every column with table. Already-qualified columns are
// left untouched.
func (c Columns) Qualify(table string) []string {
	out := make([]string, len(c))
	for i, col := range c {
		if table == "" || strings.Contains(col, ".") {
			out[i] = col
			continue
		}
		out[i] = table + "." + col
	}
	return out
}

// Plain strips any table qualification ("orders.region" -> "region").
func (c Columns) Plain() Columns {
	out := make(Columns, len(c))
	for i, col := range c {
		out[i] = plainColumn(col)
	}
	return out
}

func plainColumn(col string) string {
	if idx := strings.LastIndexByte(col, '.'); idx >= 0 {
		return col[idx+1:]
	}
	return col
}

// Key is the value form of a composite key.
type Key []any

// KeyOf reads the key values of r at cols, in descriptor order.
func KeyOf(r Record, cols Columns) Key {
	key := make(Key, len(cols))
	for i, col := range cols {
		key[i] = r.GetAttribute(plainColumn(col))
	}
	return key
}

// Encode returns the dictionary token of the key.
func (k Key) Encode() string {
	return Encode(k...)
}

// HasNull reports whether any component of the key is null.
func (k Key) HasNull() bool {
	for _, v := range k {
		if isNull(v) {
			return true
		}
	}
	return false
}

// Encode joins the canonical string form of each value with KeyDelimiter.
// It is order-sensitive: both sides of a join must list columns in the same
// order. A nil value encodes as "", but matching never uses such tokens:
// records and parents whose key has a null component (Key.HasNull) are left
// out of the dictionary and never match, as NULL never equals NULL in SQL.
func Encode(values ...any) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return keyString(values[0])
	}

	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteString(KeyDelimiter)
		}
		sb.WriteString(keyString(v))
	}
	return sb.String()
}

// ValidateSymmetry checks that both descriptors are non-empty and the same
// length.
func ValidateSymmetry(local, foreign Columns) error {
	if len(local) == 0 || len(foreign) == 0 {
		return &ConfigurationError{Local: local, Foreign: foreign, Err: ErrEmptyKey}
	}
	if len(local) != len(foreign) {
		return &ConfigurationError{Local: local, Foreign: foreign, Err: ErrAsymmetricalKey}
	}
	return nil
}

// keyString converts a key value to its canonical string form so that the
// same logical key read through different drivers hashes identically
// (int vs int64, []byte vs string, float 1.0 vs int 1, uuid bytes vs text).
func keyString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case uuid.UUID:
		return val.String()
	case [16]byte:
		return uuid.UUID(val).String()
	case driver.Valuer:
		if isNull(v) {
			return ""
		}
		dv, err := val.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		return keyString(dv)
	case fmt.Stringer:
		return val.String()
	}

	// Pointers and named scalar types
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return ""
		}
		return keyString(rv.Elem().Interface())
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Bool:
		return keyString(rv.Bool())
	}

	return fmt.Sprintf("%v", v)
}

// isNull reports whether v is nil, a nil pointer, or a driver.Valuer
// whose value is NULL.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return true
	}
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		return err == nil && dv == nil
	}
	return false
}
