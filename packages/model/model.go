package model

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Mapping is the ordered field name to value result of ToMapping.
type Mapping = orderedmap.OrderedMap[string, any]

// Enum is implemented by enumeration types whose wire form is a value other
// than their Go representation. Named types over basic kinds (type Color
// string) need not implement it; they render as their underlying value.
type Enum interface {
	EnumValue() any
}

// ErrNotStruct is returned when ToMapping is given something other than a
// struct, a pointer to a struct or a map.
var ErrNotStruct = errors.New("model: value is not a struct or map")

// UnsupportedTypeError reports a field whose type has no JSON form.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return "model: unsupported type: " + e.Type.String()
}

var (
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// ToMapping converts v into an ordered mapping of field name to
// JSON-compatible value. Map inputs are emitted in sorted key order.
func ToMapping(v any) (*Mapping, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, ErrNotStruct
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		if rv.Type() == uuidType || rv.Type() == decimalType {
			return nil, ErrNotStruct
		}
		return structMapping(rv)
	case reflect.Map:
		return mapMapping(rv)
	default:
		return nil, ErrNotStruct
	}
}

// Marshal renders v as JSON through ToMapping.
func Marshal(v any) ([]byte, error) {
	m, err := ToMapping(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Unmarshal parses JSON produced by Marshal back into v. UUIDs and decimals
// are read from their string forms.
func Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	return nil
}

func structMapping(rv reflect.Value) (*Mapping, error) {
	m := orderedmap.New[string, any]()
	if err := appendFields(m, rv); err != nil {
		return nil, err
	}
	return m, nil
}

func appendFields(m *Mapping, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name, opts, skip := fieldName(field)
		if skip {
			continue
		}

		fv := rv.Field(i)

		// Untagged embedded structs are flattened, as encoding/json does.
		if field.Anonymous && !opts.named {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != uuidType && ft != decimalType {
				if err := appendFields(m, fv); err != nil {
					return err
				}
				continue
			}
		}

		if !field.IsExported() {
			continue
		}
		if opts.omitEmpty && isEmptyValue(fv) {
			continue
		}

		value, err := toValue(fv)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		m.Set(name, value)
	}
	return nil
}

type tagOptions struct {
	named     bool
	omitEmpty bool
}

func fieldName(field reflect.StructField) (string, tagOptions, bool) {
	tag, ok := field.Tag.Lookup("json")
	if tag == "-" {
		return "", tagOptions{}, true
	}

	var opts tagOptions
	name := field.Name
	if ok {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
			opts.named = true
		}
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				opts.omitEmpty = true
			}
		}
	}
	return name, opts, false
}

func mapMapping(rv reflect.Value) (*Mapping, error) {
	type entry struct {
		key   string
		value reflect.Value
	}

	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key())
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{key: key, value: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	m := orderedmap.New[string, any]()
	for _, e := range entries {
		value, err := toValue(e.value)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", e.key, err)
		}
		m.Set(e.key, value)
	}
	return m, nil
}

func mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.Interface {
		k = k.Elem()
	}
	if k.Type() == uuidType {
		return k.Interface().(uuid.UUID).String(), nil
	}
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		text, err := tm.MarshalText()
		if err != nil {
			return "", err
		}
		return string(text), nil
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", &UnsupportedTypeError{Type: k.Type()}
}

func toValue(rv reflect.Value) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
	case reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return toValue(rv.Elem())
	}

	switch rv.Type() {
	case uuidType:
		return rv.Interface().(uuid.UUID).String(), nil
	case decimalType:
		return DecimalString(rv.Interface().(decimal.Decimal)), nil
	}

	if rv.CanInterface() {
		switch x := rv.Interface().(type) {
		case Enum:
			return toValue(reflect.ValueOf(x.EnumValue()))
		case json.Marshaler:
			if rv.Kind() != reflect.Pointer {
				return marshalerValue(x)
			}
		case encoding.TextMarshaler:
			if rv.Kind() != reflect.Pointer {
				text, err := x.MarshalText()
				if err != nil {
					return nil, err
				}
				return string(text), nil
			}
		}
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return toValue(rv.Elem())
	case reflect.Struct:
		return structMapping(rv)
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		return mapMapping(rv)
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(rv.Bytes()), nil
		}
		return sliceValue(rv)
	case reflect.Array:
		return sliceValue(rv)
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	}

	return nil, &UnsupportedTypeError{Type: rv.Type()}
}

func sliceValue(rv reflect.Value) (any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		v, err := toValue(rv.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// marshalerValue decodes a type's own JSON form into a generic value, keeping
// numbers exact.
func marshalerValue(m json.Marshaler) (any, error) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecimalString renders d keeping its scale, so 1.10 stays "1.10".
func DecimalString(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}
