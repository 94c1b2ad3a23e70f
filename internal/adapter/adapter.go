// Package adapter bridges compiled competitors onto the canonical capability
// contract. Each submission is interpreted in its own namespace, so two bots
// implementing the same logical contract still carry distinct, incompatible
// types. The adapter detects natively compatible instances and passes them
// through; everything else is bound via dynamic dispatch, translating state
// field-by-field at the call boundary.
package adapter

import (
	"fmt"
	"reflect"

	"botarena/internal/game"
)

// Method names of the capability contract, in declaration order.
const (
	MethodMakeMove          = "MakeMove"
	MethodAllocateSoldiers  = "AllocateSoldiers"
	MethodDecideCooperation = "DecideCooperation"
	MethodDecideSplit       = "DecideSplit"
)

// MethodNames lists every operation a competitor must provide.
var MethodNames = []string{
	MethodMakeMove,
	MethodAllocateSoldiers,
	MethodDecideCooperation,
	MethodDecideSplit,
}

// Adapt binds an already-constructed instance onto the canonical contract.
// Instances that implement game.Strategy are used unchanged.
func Adapt(instance interface{}) (game.Strategy, error) {
	if s, ok := instance.(game.Strategy); ok {
		return s, nil
	}
	return nil, fmt.Errorf("instance of type %T does not satisfy the capability contract", instance)
}

// AdaptFuncs binds a set of bound-method values, one per contract operation,
// coming from a foreign type system. Each value must be a func taking one
// state argument and returning one value. Any number of distinct foreign
// type systems can be adapted side by side; nothing here is shared.
func AdaptFuncs(methods map[string]reflect.Value) (game.Strategy, error) {
	fs := &foreignStrategy{methods: make(map[string]reflect.Value, len(MethodNames))}
	for _, name := range MethodNames {
		fn, ok := methods[name]
		if !ok || !fn.IsValid() {
			return nil, fmt.Errorf("capability method %s missing", name)
		}
		if err := checkShape(name, fn.Type()); err != nil {
			return nil, err
		}
		fs.methods[name] = fn
	}
	return fs, nil
}

// checkShape validates the structural signature of one foreign method.
func checkShape(name string, t reflect.Type) error {
	if t.Kind() != reflect.Func {
		return fmt.Errorf("capability method %s is %s, not a func", name, t.Kind())
	}
	if t.NumIn() != 1 || t.NumOut() != 1 {
		return fmt.Errorf("capability method %s must take one state argument and return one value", name)
	}
	arg := t.In(0)
	if arg.Kind() == reflect.Ptr {
		arg = arg.Elem()
	}
	if arg.Kind() != reflect.Struct {
		return fmt.Errorf("capability method %s must accept a state struct, got %s", name, arg.Kind())
	}
	out := t.Out(0)
	switch name {
	case MethodAllocateSoldiers:
		if out.Kind() != reflect.Slice || !isIntKind(out.Elem().Kind()) {
			return fmt.Errorf("capability method %s must return an integer slice, got %s", name, out)
		}
	default:
		if out.Kind() != reflect.String {
			return fmt.Errorf("capability method %s must return a string-kind value, got %s", name, out)
		}
	}
	return nil
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

// foreignStrategy satisfies the canonical contract by invoking bound method
// values from an independently compiled type system.
type foreignStrategy struct {
	methods map[string]reflect.Value
}

func (f *foreignStrategy) MakeMove(state game.GameState) game.Move {
	return game.Move(f.callString(MethodMakeMove, state))
}

func (f *foreignStrategy) AllocateSoldiers(state game.GameState) []int {
	out := f.call(MethodAllocateSoldiers, state)
	n := out.Len()
	alloc := make([]int, n)
	for i := 0; i < n; i++ {
		alloc[i] = int(out.Index(i).Int())
	}
	return alloc
}

func (f *foreignStrategy) DecideCooperation(state game.GameState) game.CoopChoice {
	return game.CoopChoice(f.callString(MethodDecideCooperation, state))
}

func (f *foreignStrategy) DecideSplit(state game.GameState) game.SplitChoice {
	return game.SplitChoice(f.callString(MethodDecideSplit, state))
}

func (f *foreignStrategy) callString(name string, state game.GameState) string {
	return f.call(name, state).String()
}

func (f *foreignStrategy) call(name string, state game.GameState) reflect.Value {
	fn := f.methods[name]
	arg := buildForeignState(fn.Type().In(0), state)
	return fn.Call([]reflect.Value{arg})[0]
}

// buildForeignState constructs an equivalent argument in the foreign state
// type, copying the canonical snapshot field-by-field.
func buildForeignState(t reflect.Type, state game.GameState) reflect.Value {
	src := reflect.ValueOf(state)
	if t.Kind() == reflect.Ptr {
		dst := reflect.New(t.Elem())
		copyValue(dst.Elem(), src)
		return dst
	}
	dst := reflect.New(t).Elem()
	copyValue(dst, src)
	return dst
}

// copyValue translates src into dst across type systems. Structs map by
// field name, slices and maps element-wise, scalars by conversion. Fields
// with no counterpart are left at their zero value.
func copyValue(dst, src reflect.Value) {
	switch dst.Kind() {
	case reflect.Struct:
		if src.Kind() != reflect.Struct {
			return
		}
		for i := 0; i < dst.NumField(); i++ {
			field := dst.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			from := src.FieldByName(field.Name)
			if from.IsValid() {
				copyValue(dst.Field(i), from)
			}
		}
	case reflect.Slice:
		if src.Kind() != reflect.Slice || src.IsNil() {
			return
		}
		out := reflect.MakeSlice(dst.Type(), src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			copyValue(out.Index(i), src.Index(i))
		}
		dst.Set(out)
	case reflect.Map:
		if src.Kind() != reflect.Map || src.IsNil() {
			return
		}
		out := reflect.MakeMapWithSize(dst.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			k := reflect.New(dst.Type().Key()).Elem()
			v := reflect.New(dst.Type().Elem()).Elem()
			copyValue(k, iter.Key())
			copyValue(v, iter.Value())
			out.SetMapIndex(k, v)
		}
		dst.Set(out)
	default:
		if src.Type().ConvertibleTo(dst.Type()) {
			dst.Set(src.Convert(dst.Type()))
		}
	}
}
