package composite

import (
	"reflect"
	"slices"

	"github.com/iancoleman/strcase"
)

// Entity adapts a struct pointer to Record. Mapped columns read and write
// struct fields. Unmapped columns live in a side map.
//
// Loaded relations are assigned to the exported field named after the
// relation in CamelCase ("order_lines" -> OrderLines) when the value fits
// the field type. Fields of type *U and []*U accept related Entity[U]
// values. The relation is cached either way.
//
// Setting a mapped column to nil stores the field's zero value but the
// column reads as nil while the field still holds that zero value, so
// value-type key fields can still be null.
type Entity[T any] struct {
	value     *T
	info      *ModelInfo
	extra     map[string]any
	nulls     map[string]struct{}
	relations map[string]any
}

var _ RelationReader = (*Entity[struct{}])(nil)

// NewEntity wraps v.
func NewEntity[T any](v *T) (*Entity[T], error) {
	if v == nil {
		return nil, ErrNilRecord
	}
	info, err := ParseModel[T]()
	if err != nil {
		return nil, err
	}
	return &Entity[T]{value: v, info: info}, nil
}

// Entities wraps every value of vs as a Record, in order.
func Entities[T any](vs []*T) ([]Record, error) {
	out := make([]Record, 0, len(vs))
	for _, v := range vs {
		e, err := NewEntity(v)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Value returns the wrapped struct.
func (e *Entity[T]) Value() *T {
	return e.value
}

// Interface returns the wrapped struct as any.
func (e *Entity[T]) Interface() any {
	return e.value
}

// Info returns the struct metadata.
func (e *Entity[T]) Info() *ModelInfo {
	return e.info
}

// Columns returns the mapped columns in struct field order.
func (e *Entity[T]) Columns() []string {
	cols := make([]string, 0, len(e.info.Fields))
	for _, field := range reflect.VisibleFields(e.info.Type) {
		if f, ok := e.info.Fields[field.Name]; ok && slices.Equal(f.Index, field.Index) {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

func (e *Entity[T]) field(column string) (reflect.Value, bool) {
	f, ok := e.info.Columns[column]
	if !ok {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(e.value).Elem().FieldByIndex(f.Index), true
}

// GetAttribute returns the side value of column when one was stored, or the
// field mapped to column.
func (e *Entity[T]) GetAttribute(column string) any {
	if v, ok := e.extra[column]; ok {
		return v
	}
	fv, mapped := e.field(column)
	if _, null := e.nulls[column]; null && (!mapped || fv.IsZero()) {
		return nil
	}
	if mapped {
		return fv.Interface()
	}
	return e.extra[column]
}

// SetAttribute writes value into the field mapped to column. Values that
// cannot be converted to the field type, and unmapped columns, go to the
// side map.
func (e *Entity[T]) SetAttribute(column string, value any) {
	if fv, ok := e.field(column); ok {
		if err := setFieldValue(fv, value); err == nil {
			delete(e.extra, column)
			e.markNull(column, isNull(value))
			return
		}
		e.markNull(column, false)
	}
	if e.extra == nil {
		e.extra = make(map[string]any)
	}
	e.extra[column] = value
}

func (e *Entity[T]) markNull(column string, null bool) {
	if !null {
		delete(e.nulls, column)
		return
	}
	if e.nulls == nil {
		e.nulls = make(map[string]struct{})
	}
	e.nulls[column] = struct{}{}
}

// SetRelation caches value under name and assigns it to the matching field
// when possible.
func (e *Entity[T]) SetRelation(name string, value any) {
	if e.relations == nil {
		e.relations = make(map[string]any)
	}
	e.relations[name] = value

	f, ok := e.info.Fields[strcase.ToCamel(name)]
	if !ok {
		return
	}
	assignRelation(reflect.ValueOf(e.value).Elem().FieldByIndex(f.Index), value)
}

// Relation returns the cached relation value and whether it was loaded.
func (e *Entity[T]) Relation(name string) (any, bool) {
	v, ok := e.relations[name]
	return v, ok
}

// Table returns the model's table name.
func (e *Entity[T]) Table() string {
	return e.info.TableName
}

// assignRelation stores value into field if the types allow.
func assignRelation(field reflect.Value, value any) bool {
	if !field.CanSet() {
		return false
	}
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return true
	}

	if v := reflect.ValueOf(value); v.Type().AssignableTo(field.Type()) {
		field.Set(v)
		return true
	}

	if single := unwrapRecord(value); single != nil {
		v := reflect.ValueOf(single)
		if v.Type().AssignableTo(field.Type()) {
			field.Set(v)
			return true
		}
		return false
	}

	records, ok := value.([]Record)
	if !ok || field.Kind() != reflect.Slice {
		return false
	}

	elem := field.Type().Elem()
	out := reflect.MakeSlice(field.Type(), 0, len(records))
	for _, r := range records {
		var v reflect.Value
		if rv := reflect.ValueOf(r); rv.Type().AssignableTo(elem) {
			v = rv
		} else if inner := unwrapRecord(r); inner != nil && reflect.TypeOf(inner).AssignableTo(elem) {
			v = reflect.ValueOf(inner)
		} else {
			return false
		}
		out = reflect.Append(out, v)
	}
	field.Set(out)
	return true
}

func unwrapRecord(value any) any {
	if w, ok := value.(interface{ Interface() any }); ok {
		return w.Interface()
	}
	return nil
}
