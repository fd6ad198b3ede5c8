package util

import (
	"fmt"
	"reflect"
	"strings"
)

// IsStructInitialized returns an error naming every exported pointer, interface,
// map, slice or func field of s that is still nil. Fields tagged `wire:"-"` are checked too,
// fields tagged `ready:"optional"` are skipped.
func IsStructInitialized(s any) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("struct is nil")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return fmt.Errorf("expected struct, got %s", v.Kind())
	}

	var missing []string
	t := v.Type()
	for i := range v.NumField() {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("ready") == "optional" {
			continue
		}

		//nolint:exhaustive // only nillable kinds matter
		switch v.Field(i).Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			if v.Field(i).IsNil() {
				missing = append(missing, field.Name)
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("uninitialized fields: %s", strings.Join(missing, ", "))
	}

	return nil
}
