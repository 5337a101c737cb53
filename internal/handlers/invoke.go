package handlers

import (
	"errors"
	"fmt"
	"reflect"
)

// Invoker calls a bound handler method with raw event arguments.
type Invoker func(args ...any) error

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Bind resolves md.Method on instance and returns an Invoker that calls it
// with instance as receiver.
//
// Event arguments map onto parameters by position. An argument that is
// assignable is passed as is, numeric arguments are converted between
// numeric kinds, missing arguments become zero values and extra arguments
// are dropped. A variadic method receives every remaining argument. If the
// method's last result is an error, the Invoker returns it.
func Bind(instance any, md Metadata) (Invoker, error) {
	v := reflect.ValueOf(instance)
	if !v.IsValid() {
		return nil, errors.New("component instance is nil")
	}
	if v.Kind() == reflect.Struct {
		return nil, fmt.Errorf("component %s is registered by value; register a pointer so handler state is shared", v.Type())
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, fmt.Errorf("component %s is a nil pointer", v.Type())
	}

	method := v.MethodByName(md.Method)
	if !method.IsValid() {
		return nil, fmt.Errorf("method not found on %s (it must exist and be exported)", v.Type())
	}
	mt := method.Type()
	returnsErr := mt.NumOut() > 0 && mt.Out(mt.NumOut()-1) == errorType

	return func(args ...any) error {
		in, err := buildArgs(mt, args)
		if err != nil {
			return err
		}
		out := method.Call(in)
		if returnsErr {
			if errVal := out[len(out)-1]; !errVal.IsNil() {
				return errVal.Interface().(error)
			}
		}
		return nil
	}, nil
}

func buildArgs(mt reflect.Type, args []any) ([]reflect.Value, error) {
	numIn := mt.NumIn()
	fixed := numIn
	if mt.IsVariadic() {
		fixed = numIn - 1
	}

	in := make([]reflect.Value, 0, max(numIn, len(args)))
	for i := 0; i < fixed; i++ {
		pt := mt.In(i)
		if i >= len(args) {
			in = append(in, reflect.Zero(pt))
			continue
		}
		arg, err := adapt(args[i], pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in = append(in, arg)
	}
	if mt.IsVariadic() {
		elem := mt.In(numIn - 1).Elem()
		for i := fixed; i < len(args); i++ {
			arg, err := adapt(args[i], elem)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			in = append(in, arg)
		}
	}
	return in, nil
}

func adapt(arg any, to reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(to), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(to) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(to.Kind()) {
		return v.Convert(to), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, to)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
