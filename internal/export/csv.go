// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package export

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ContentType is the media type of CSV output.
const ContentType = "text/csv; charset=utf-8"

// Field is one flattened leaf value. Value is nil for null leaves.
type Field struct {
	Key   string
	Value any
}

// Options controls which columns are written.
type Options struct {
	// Exclude names flattened columns to drop in addition to "id".
	Exclude []string
}

// CSV renders items as CSV text.
//
// Nested structs, maps and slices are flattened with dotted keys
// ("contract.title", "statuses.0"). The header is the first-seen order of
// keys across all rows. String cells are quoted with internal quotes doubled,
// other values are written raw and null or missing cells are empty. Lines are
// joined with "\n" and there is no trailing newline.
func CSV[T any](items []T, opts Options) string {
	excluded := map[string]bool{"id": true}
	for _, col := range opts.Exclude {
		excluded[col] = true
	}

	var headers []string
	seen := make(map[string]bool)
	rows := make([]map[string]any, len(items))

	for i, item := range items {
		fields := Flatten(item)
		row := make(map[string]any, len(fields))
		for _, f := range fields {
			row[f.Key] = f.Value
			if !seen[f.Key] {
				seen[f.Key] = true
				if !excluded[f.Key] {
					headers = append(headers, f.Key)
				}
			}
		}
		rows[i] = row
	}

	var b strings.Builder
	b.WriteString(strings.Join(headers, ","))
	for _, row := range rows {
		b.WriteByte('\n')
		for j, h := range headers {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(formatCell(row[h]))
		}
	}
	return b.String()
}

// Filename returns a Content-Disposition value for name.csv.
func Filename(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name+".csv")
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return `"` + strings.ReplaceAll(val, `"`, `""`) + `"`
	default:
		return fmt.Sprint(val)
	}
}

// Flatten returns the leaves of v in JSON field order using json tag names.
func Flatten(v any) []Field {
	var out []Field
	flattenValue(reflect.ValueOf(v), "", &out)
	return out
}

var timeType = reflect.TypeOf(time.Time{})

func flattenValue(v reflect.Value, prefix string, out *[]Field) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			emit(prefix, nil, out)
			return
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		emit(prefix, nil, out)
		return
	}

	if v.Type() == timeType {
		emit(prefix, v.Interface().(time.Time).Format(time.RFC3339Nano), out)
		return
	}

	switch v.Kind() {
	case reflect.Struct:
		flattenStruct(v, prefix, out)
	case reflect.Map:
		if v.IsNil() {
			emit(prefix, nil, out)
			return
		}
		keys := v.MapKeys()
		names := make([]string, len(keys))
		byName := make(map[string]reflect.Value, len(keys))
		for i, k := range keys {
			names[i] = fmt.Sprint(k.Interface())
			byName[names[i]] = v.MapIndex(k)
		}
		sort.Strings(names)
		for _, name := range names {
			flattenValue(byName[name], join(prefix, name), out)
		}
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			emit(prefix, nil, out)
			return
		}
		for i := 0; i < v.Len(); i++ {
			flattenValue(v.Index(i), join(prefix, strconv.Itoa(i)), out)
		}
	case reflect.String:
		emit(prefix, v.String(), out)
	case reflect.Bool:
		emit(prefix, v.Bool(), out)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		emit(prefix, v.Int(), out)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		emit(prefix, v.Uint(), out)
	case reflect.Float32, reflect.Float64:
		emit(prefix, v.Float(), out)
	default:
		emit(prefix, fmt.Sprint(v.Interface()), out)
	}
}

func flattenStruct(v reflect.Value, prefix string, out *[]Field) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, skip := jsonName(sf)
		if skip {
			continue
		}
		fv := v.Field(i)
		// Untagged embedded structs are inlined the way encoding/json does.
		if sf.Anonymous && name == "" {
			flattenValue(fv, prefix, out)
			continue
		}
		if name == "" {
			name = sf.Name
		}
		flattenValue(fv, join(prefix, name), out)
	}
}

func jsonName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	return name, false
}

func emit(key string, value any, out *[]Field) {
	if key == "" {
		return
	}
	*out = append(*out, Field{Key: key, Value: value})
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
