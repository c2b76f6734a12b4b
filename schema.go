package composite

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/gertd/go-pluralize"
	"github.com/iancoleman/strcase"
)

// ModelInfo holds the reflection data for a model struct.
type ModelInfo struct {
	Type       reflect.Type
	TableName  string
	PrimaryKey Columns
	Fields     map[string]*FieldInfo // StructFieldName -> FieldInfo
	Columns    map[string]*FieldInfo // DBColumnName -> FieldInfo
}

// FieldInfo holds data about a single field in the model.
type FieldInfo struct {
	Name      string // Struct field name
	Column    string // DB column name
	IsPrimary bool
	FieldType reflect.Type
	Index     []int
}

var (
	modelCache = make(map[reflect.Type]*ModelInfo)
	cacheMu    sync.RWMutex

	plural = pluralize.NewClient()
)

// ParseModel inspects the struct T and returns its metadata.
func ParseModel[T any]() (*ModelInfo, error) {
	return ParseModelType(reflect.TypeFor[T]())
}

// ParseModelType inspects typ and returns its metadata. Results are cached
// per type.
//
// Columns default to the snake_case field name and can be overridden with
// `zorm:"column:name"`. Every field tagged `zorm:"primary"` joins the
// primary key, so composite primary keys are declared by tagging each part.
// Without tags a field named ID is the primary key. The table name comes
// from a TableName() string method or the pluralized snake_case type name.
func ParseModelType(typ reflect.Type) (*ModelInfo, error) {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("composite: model type %s must be a struct", typ)
	}

	cacheMu.RLock()
	if info, ok := modelCache[typ]; ok {
		cacheMu.RUnlock()
		return info, nil
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if info, ok := modelCache[typ]; ok {
		return info, nil
	}

	info := &ModelInfo{
		Type:    typ,
		Fields:  make(map[string]*FieldInfo),
		Columns: make(map[string]*FieldInfo),
	}

	ptrVal := reflect.New(typ)
	if namer, ok := ptrVal.Interface().(interface{ TableName() string }); ok {
		info.TableName = namer.TableName()
	} else {
		info.TableName = plural.Plural(ToSnakeCase(typ.Name()))
	}

	var idColumn string
	for _, field := range reflect.VisibleFields(typ) {
		if !field.IsExported() || field.Anonymous || throughPointer(typ, field.Index) {
			continue
		}

		tag := field.Tag.Get("zorm")
		if tag == "-" {
			continue
		}

		dbCol := ToSnakeCase(field.Name)
		isPrimary := false

		if tag != "" {
			for _, part := range strings.Split(tag, ";") {
				key, val, _ := strings.Cut(part, ":")
				switch strings.TrimSpace(key) {
				case "column":
					dbCol = strings.TrimSpace(val)
				case "primary":
					isPrimary = true
				}
			}
		}

		if field.Name == "ID" {
			idColumn = dbCol
		}
		if isPrimary {
			info.PrimaryKey = append(info.PrimaryKey, dbCol)
		}

		fInfo := &FieldInfo{
			Name:      field.Name,
			Column:    dbCol,
			IsPrimary: isPrimary,
			FieldType: field.Type,
			Index:     field.Index,
		}

		info.Fields[field.Name] = fInfo
		info.Columns[dbCol] = fInfo
	}

	if len(info.PrimaryKey) == 0 && idColumn != "" {
		info.PrimaryKey = Cols(idColumn)
		info.Columns[idColumn].IsPrimary = true
	}

	modelCache[typ] = info
	return info, nil
}

// throughPointer reports whether reaching index from typ dereferences an
// embedded pointer.
func throughPointer(typ reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		typ = typ.Field(i).Type
		if typ.Kind() == reflect.Pointer {
			return true
		}
	}
	return false
}

// ToSnakeCase converts a Go identifier to snake_case ("OrderID" -> "order_id").
func ToSnakeCase(s string) string {
	return strcase.ToSnake(s)
}

// setFieldValue assigns v to field, converting between compatible types.
// A nil v stores the zero value. Conversions that would change the value,
// such as int to string or 1.5 to int, are rejected.
func setFieldValue(field reflect.Value, v any) error {
	if isNull(v) {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	val := reflect.ValueOf(v)
	switch {
	case val.Type().AssignableTo(field.Type()):
		field.Set(val)
	case field.Kind() == reflect.Pointer && convertible(val, field.Type().Elem()):
		ptr := reflect.New(field.Type().Elem())
		ptr.Elem().Set(val.Convert(field.Type().Elem()))
		field.Set(ptr)
	case val.Kind() == reflect.Pointer && convertible(val.Elem(), field.Type()):
		field.Set(val.Elem().Convert(field.Type()))
	case convertible(val, field.Type()):
		field.Set(val.Convert(field.Type()))
	default:
		return fmt.Errorf("composite: cannot assign %T to field of type %s", v, field.Type())
	}
	return nil
}

// convertible reports whether val converts to typ without changing its
// meaning. It blocks the int -> string rune conversion reflect allows and
// float -> int conversions that drop a fraction.
func convertible(val reflect.Value, typ reflect.Type) bool {
	if !val.Type().ConvertibleTo(typ) {
		return false
	}

	from, to := val.Kind(), typ.Kind()
	switch {
	case to == reflect.String:
		return from == reflect.String || from == reflect.Slice
	case isFloatKind(from) && (isIntKind(to) || isUintKind(to)):
		f := val.Float()
		if f != math.Trunc(f) {
			return false
		}
		return !isUintKind(to) || f >= 0
	}
	return true
}

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUintKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
