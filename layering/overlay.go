// Package layering deep-copies character records and overlays them onto
// presets. Only exported fields are visited; a struct with unexported
// fields, such as time.Time, is copied as a single value.
package layering

import "reflect"

// Clone returns a deep copy of value that shares no maps, slices or
// pointers with it.
func Clone[T any](value T) T {
	var out T
	reflect.ValueOf(&out).Elem().Set(deepCopy(reflect.ValueOf(&value).Elem()))
	return out
}

// Overlay places strong over weak. Zero scalars and nil slices or pointers
// in strong take the weak value, maps merge key by key and present slices
// replace the weak slice whole.
func Overlay[T any](strong, weak T) T {
	var out T
	merged := overlay(reflect.ValueOf(&strong).Elem(), reflect.ValueOf(&weak).Elem())
	reflect.ValueOf(&out).Elem().Set(merged)
	return out
}

// Stack overlays layers ordered from strongest to weakest.
func Stack[T any](layers ...T) T {
	var out T
	if len(layers) == 0 {
		return out
	}
	out = Clone(layers[len(layers)-1])
	for i := len(layers) - 2; i >= 0; i-- {
		out = Overlay(layers[i], out)
	}
	return out
}

func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		return boxed(v.Type(), deepCopy(v.Elem()))
	case reflect.Struct:
		if opaque(v.Type()) {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		for i := range v.NumField() {
			out.Field(i).Set(deepCopy(v.Field(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		for iter := v.MapRange(); iter.Next(); {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := range v.Len() {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	default:
		return v
	}
}

func overlay(strong, weak reflect.Value) reflect.Value {
	switch strong.Kind() {
	case reflect.Pointer:
		if strong.IsNil() {
			return deepCopy(weak)
		}
		if weak.IsNil() {
			return deepCopy(strong)
		}
		out := reflect.New(strong.Type().Elem())
		out.Elem().Set(overlay(strong.Elem(), weak.Elem()))
		return out
	case reflect.Interface:
		if strong.IsNil() {
			return deepCopy(weak)
		}
		if weak.IsNil() || weak.Elem().Type() != strong.Elem().Type() {
			return deepCopy(strong)
		}
		return boxed(strong.Type(), overlay(strong.Elem(), weak.Elem()))
	case reflect.Struct:
		if opaque(strong.Type()) {
			if strong.IsZero() {
				return weak
			}
			return strong
		}
		out := reflect.New(strong.Type()).Elem()
		for i := range strong.NumField() {
			out.Field(i).Set(overlay(strong.Field(i), weak.Field(i)))
		}
		return out
	case reflect.Map:
		if strong.IsNil() {
			return deepCopy(weak)
		}
		out := deepCopy(weak)
		if out.IsNil() {
			out = reflect.MakeMapWithSize(strong.Type(), strong.Len())
		}
		for iter := strong.MapRange(); iter.Next(); {
			if existing := out.MapIndex(iter.Key()); existing.IsValid() {
				out.SetMapIndex(iter.Key(), overlay(iter.Value(), existing))
				continue
			}
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Slice:
		if strong.IsNil() {
			return deepCopy(weak)
		}
		return deepCopy(strong)
	case reflect.Array:
		out := reflect.New(strong.Type()).Elem()
		for i := range strong.Len() {
			out.Index(i).Set(overlay(strong.Index(i), weak.Index(i)))
		}
		return out
	default:
		if strong.IsZero() {
			return weak
		}
		return strong
	}
}

// boxed wraps a concrete value back into an interface typed slot.
func boxed(typ reflect.Type, value reflect.Value) reflect.Value {
	out := reflect.New(typ).Elem()
	out.Set(value)
	return out
}

func opaque(typ reflect.Type) bool {
	for i := range typ.NumField() {
		if !typ.Field(i).IsExported() {
			return true
		}
	}
	return false
}
