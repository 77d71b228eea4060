package utils

import (
	"fmt"
	"reflect"
)

var ColumnTag = "db"

// StructTagValues lists the column names of a row struct. Untagged embedded
// structs contribute their own columns in place, the way pgxscan flattens them.
func StructTagValues(input any) []string {
	targetValue := structValue(input)

	result := make([]string, 0, targetValue.NumField())
	walkColumns(targetValue, func(column string, _ reflect.Value) {
		result = append(result, column)
	})

	return result
}

// StructToMap maps column names to field values for squirrel's SetMap.
func StructToMap(input any) map[string]any {
	result := make(map[string]any)

	walkColumns(structValue(input), func(column string, field reflect.Value) {
		result[column] = field.Interface()
	})

	return result
}

func structValue(input any) reflect.Value {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	return v
}

func walkColumns(v reflect.Value, fn func(column string, field reflect.Value)) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		tagValue := field.Tag.Get(ColumnTag)

		if field.Anonymous && tagValue == "" && field.Type.Kind() == reflect.Struct {
			walkColumns(v.Field(i), fn)
			continue
		}

		if field.PkgPath != "" {
			continue
		}

		if tagValue == "" || tagValue == "-" {
			continue
		}

		fn(tagValue, v.Field(i))
	}
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}
