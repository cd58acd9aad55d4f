/*
Package canon produces the canonical encoding that every hash and signature
in a settlement transaction is computed over.

The settlement service re-encodes what it receives with Go's encoding/json
and checks signatures against those bytes, so this encoding is that one,
with three additions the service relies on:

  - fields can be zeroed by dotted path before encoding (Zero), which is
    how the transaction ID and the envelope signature exclude themselves;
  - maps are only accepted when their path is declared (SortedMaps), and
    are then written with keys in encoding/json order;
  - decimal amounts are written as the float64 text encoding/json would
    produce for them, and *big.Int as a bare decimal numeral.

Struct fields keep their declaration order. Slice elements share the path
of their slice, so Zero("TXInputsNormal.InputSignature") zeroes the
signature of every input.
*/
package canon

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type options struct {
	zero   map[string]bool
	sorted map[string]bool
}

type Option func(*options)

// Zero replaces the fields at the given paths with their zero value.
// Zeroed maps are written as {}.
func Zero(paths ...string) Option {
	return func(o *options) {
		for _, p := range paths {
			o.zero[p] = true
		}
	}
}

// SortedMaps declares the map-valued fields that may appear in the output.
func SortedMaps(paths ...string) Option {
	return func(o *options) {
		for _, p := range paths {
			o.sorted[p] = true
		}
	}
}

var (
	bigIntType  = reflect.TypeOf((*big.Int)(nil))
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

type encoder struct {
	buf  bytes.Buffer
	opts options
}

// Marshal returns the canonical encoding of v.
func Marshal(v any, opts ...Option) ([]byte, error) {
	e := &encoder{opts: options{zero: map[string]bool{}, sorted: map[string]bool{}}}
	for _, fn := range opts {
		fn(&e.opts)
	}
	if err := e.encode(reflect.ValueOf(v), ""); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

func (e *encoder) encode(v reflect.Value, path string) error {
	if !v.IsValid() {
		e.buf.WriteString("null")
		return nil
	}
	switch v.Type() {
	case bigIntType:
		if v.IsNil() {
			e.buf.WriteString("null")
		} else {
			e.buf.WriteString(v.Interface().(*big.Int).String())
		}
		return nil
	case decimalType:
		d := v.Interface().(decimal.Decimal)
		return e.writeJSON(d.InexactFloat64())
	}
	switch v.Kind() {
	case reflect.Bool:
		e.buf.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.buf.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		e.buf.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		return e.writeJSON(v.Interface())
	case reflect.String:
		return e.writeJSON(v.String())
	case reflect.Slice:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			e.buf.WriteByte('"')
			e.buf.WriteString(base64.StdEncoding.EncodeToString(v.Bytes()))
			e.buf.WriteByte('"')
			return nil
		}
		return e.encodeArray(v, path)
	case reflect.Array:
		return e.encodeArray(v, path)
	case reflect.Map:
		return e.encodeMap(v, path)
	case reflect.Struct:
		return e.encodeStruct(v, path)
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		return e.encode(v.Elem(), path)
	default:
		return fmt.Errorf("canon: unsupported type %s at %q", v.Type(), path)
	}
	return nil
}

func (e *encoder) encodeZero(v reflect.Value, path string) error {
	if v.Kind() == reflect.Map {
		e.buf.WriteString("{}")
		return nil
	}
	return e.encode(reflect.Zero(v.Type()), path)
}

func (e *encoder) encodeArray(v reflect.Value, path string) error {
	e.buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(v.Index(i), path); err != nil {
			return err
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) encodeStruct(v reflect.Value, path string) error {
	t := v.Type()
	e.buf.WriteByte('{')
	first := true
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		if err := e.writeJSON(name); err != nil {
			return err
		}
		e.buf.WriteByte(':')
		fieldPath := joinPath(path, f.Name)
		var err error
		if e.opts.zero[fieldPath] {
			err = e.encodeZero(v.Field(i), fieldPath)
		} else {
			err = e.encode(v.Field(i), fieldPath)
		}
		if err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

type mapEntry struct {
	key string
	val reflect.Value
}

func (e *encoder) encodeMap(v reflect.Value, path string) error {
	if v.IsNil() {
		e.buf.WriteString("null")
		return nil
	}
	if v.Len() > 1 && !e.opts.sorted[path] {
		return fmt.Errorf("canon: map at %q has no declared key order", path)
	}
	entries := make([]mapEntry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key())
		if err != nil {
			return fmt.Errorf("canon: %v at %q", err, path)
		}
		entries = append(entries, mapEntry{key, iter.Value()})
	}
	// encoding/json orders by the rendered key text, so 10 sorts before 2.
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	e.buf.WriteByte('{')
	for i, ent := range entries {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.writeJSON(ent.key); err != nil {
			return err
		}
		e.buf.WriteByte(':')
		if err := e.encode(ent.val, path); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func mapKey(k reflect.Value) (string, error) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("unsupported map key type %s", k.Type())
}

func (e *encoder) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("canon: %v", err)
	}
	e.buf.Write(b)
	return nil
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
