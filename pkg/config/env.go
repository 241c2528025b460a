package config

import "reflect"

// envName returns the environment variable behind a struct field so error
// messages name what the user has to set.
func envName(v interface{}, field string) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if f, ok := t.FieldByName(field); ok {
		if name := f.Tag.Get("envconfig"); name != "" {
			return name
		}
	}
	return field
}
