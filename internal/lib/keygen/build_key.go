// Package keygen provides utilities for generating deterministic cache keys
// from call arguments.
//
// A key is composed from the ordered positional arguments and the named
// arguments sorted by name, so two calls that differ only in the order their
// named arguments were supplied share a key. Every value is tagged with its
// dynamic type, and values that are not comparable are rejected instead of
// being approximated.
package keygen

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/osmike/lfucache/internal/lib/errs"
)

// Maximum length for keys before hashing
const maxLen = 100

// BuildKey returns a deterministic string key for caching based on the provided value.
//
//   - value: The call argument. An Args value is composed from its positional and
//     named parts; any other value is treated as a single positional argument.
//
// If the encoded key exceeds maxLen, it is replaced by "#" and the hex of its
// 128-bit xxh3 digest, and the full encoding is not kept. Two distinct long
// keys therefore share a slot only on a digest collision, which at 128 bits is
// not expected within the lifetime of an in-process cache; callers that cannot
// accept that risk should keep their arguments short.
// Returns an error wrapping errs.ErrUnhashableArgument if any value is not comparable.
func BuildKey(value any) (string, error) {
	switch v := value.(type) {
	case Args:
		return Compose(v.Positional, v.Named)
	case *Args:
		if v != nil {
			return Compose(v.Positional, v.Named)
		}
	}
	return Compose([]any{value}, nil)
}

// Compose builds a key from positional values (order-sensitive) and named values
// (order-insensitive).
func Compose(positional []any, named []Named) (string, error) {
	var b strings.Builder

	b.WriteByte('(')
	for i, v := range positional {
		enc, err := encodeValue(v)
		if err != nil {
			return "", errs.NewError(errs.ErrUnhashableArgument, map[string]interface{}{
				"position": i,
				"type":     fmt.Sprintf("%T", v),
				"error":    err,
			})
		}
		writePart(&b, enc)
	}

	if len(named) > 0 {
		sorted := make([]Named, len(named))
		copy(sorted, named)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

		b.WriteByte(';')
		for i, n := range sorted {
			if i > 0 && sorted[i-1].Name == n.Name {
				return "", errs.NewError(errs.ErrDuplicateArgument, map[string]interface{}{
					"name": n.Name,
				})
			}
			enc, err := encodeValue(n.Value)
			if err != nil {
				return "", errs.NewError(errs.ErrUnhashableArgument, map[string]interface{}{
					"name":  n.Name,
					"type":  fmt.Sprintf("%T", n.Value),
					"error": err,
				})
			}
			writePart(&b, strconv.Quote(n.Name)+"="+enc)
		}
	}
	b.WriteByte(')')

	key := b.String()
	if len(key) > maxLen {
		return hashString(key), nil
	}
	return key, nil
}

// writePart appends a length-prefixed part so that no two argument lists
// concatenate to the same key.
func writePart(b *strings.Builder, part string) {
	b.WriteString(strconv.Itoa(len(part)))
	b.WriteByte(':')
	b.WriteString(part)
	b.WriteByte('|')
}

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// encodeValue encodes a single value into a string suitable for use as part of a cache key.
//
// Equal values (by Go ==) of the same dynamic type produce equal encodings.
// For context.Context, returns a placeholder string.
// Returns an error if the value is not comparable.
func encodeValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "nil", nil

	case context.Context:
		// contexts carry deadlines and values, not call identity
		return "context", nil

	case string:
		return "string:" + strconv.Quote(val), nil

	case bool:
		return "bool:" + strconv.FormatBool(val), nil

	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr:
		return fmt.Sprintf("%T:%d", val, val), nil

	case float32:
		return "float32:" + formatFloat(float64(val), 32), nil

	case float64:
		return "float64:" + formatFloat(val, 64), nil

	default:
		return encodeReflect(reflect.ValueOf(val))
	}
}

// encodeReflect encodes named types, structs, arrays, pointers and channels.
//
// Struct fields and array elements are encoded recursively, so a value held in
// an interface field keeps its dynamic type and nested floats are normalized.
// Pointers and channels are keyed by identity, matching Go equality.
// GoString and String methods are never consulted.
func encodeReflect(rv reflect.Value) (string, error) {
	if !rv.IsValid() {
		return "nil", nil
	}
	t := rv.Type()
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "nil", nil
		}
		return encodeReflect(rv.Elem())
	}
	if t.Implements(contextType) {
		return "context", nil
	}

	tag := typeName(t) + ":"
	switch rv.Kind() {
	case reflect.String:
		return tag + strconv.Quote(rv.String()), nil

	case reflect.Bool:
		return tag + strconv.FormatBool(rv.Bool()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return tag + strconv.FormatInt(rv.Int(), 10), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return tag + strconv.FormatUint(rv.Uint(), 10), nil

	case reflect.Float32, reflect.Float64:
		return tag + formatFloat(rv.Float(), t.Bits()), nil

	case reflect.Complex64, reflect.Complex128:
		c := rv.Complex()
		bits := t.Bits() / 2
		return tag + "(" + formatFloat(real(c), bits) + "," + formatFloat(imag(c), bits) + ")", nil

	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("%s@%#x", typeName(t), rv.Pointer()), nil

	case reflect.Struct:
		var b strings.Builder
		b.WriteString(tag + "{")
		for i := 0; i < rv.NumField(); i++ {
			if t.Field(i).Name == "_" {
				// blank fields take no part in ==
				continue
			}
			enc, err := encodeReflect(rv.Field(i))
			if err != nil {
				return "", fmt.Errorf("field %s: %w", t.Field(i).Name, err)
			}
			writePart(&b, enc)
		}
		b.WriteByte('}')
		return b.String(), nil

	case reflect.Array:
		var b strings.Builder
		b.WriteString(tag + "[")
		for i := 0; i < rv.Len(); i++ {
			enc, err := encodeReflect(rv.Index(i))
			if err != nil {
				return "", fmt.Errorf("element %d: %w", i, err)
			}
			writePart(&b, enc)
		}
		b.WriteByte(']')
		return b.String(), nil
	}
	return "", fmt.Errorf("value of type %s is not comparable", t)
}

// typeName qualifies named types with their package path so that equally
// named types from different packages do not share a tag.
func typeName(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// formatFloat renders a float so that 0 and -0, which compare equal, share an encoding.
func formatFloat(f float64, bitSize int) string {
	if f == 0 {
		return "0"
	}
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

// hashString hashes the key using xxh3-128 and returns the hex string.
func hashString(s string) string {
	sum := xxh3.HashString128(s).Bytes()
	return "#" + hex.EncodeToString(sum[:])
}
