// SPDX-License-Identifier: Apache-2.0

// Package codec reads and writes suffixmerge documents as JSON, YAML or TOML,
// keeping object key order wherever the format allows it.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	"github.com/sam-fredrickson/suffixmerge"
)

// ErrUnknownFormat indicates a format name or file extension that is not supported.
var ErrUnknownFormat = errors.New("unknown format")

// Format is a document serialization format.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// Formats lists the supported formats.
var Formats = []Format{JSON, YAML, TOML}

func (f Format) String() string {
	return string(f)
}

// ParseFormat returns the format named by s, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "toml":
		return TOML, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
	}
}

// FormatOf returns the format implied by a file name's extension.
func FormatOf(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	default:
		return "", fmt.Errorf("%w: file extension %q", ErrUnknownFormat, ext)
	}
}

// Decode parses data in format f.
func Decode(f Format, data []byte) (suffixmerge.Value, error) {
	switch f {
	case JSON:
		return decodeJSON(data)
	case YAML:
		return decodeYAML(data)
	case TOML:
		return decodeTOML(data)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, string(f))
	}
}

// Encode serializes v in format f.
//
// TOML requires an object at the root and has no null: null object members are
// left out, and a null inside an array is an error.
func Encode(f Format, v suffixmerge.Value) ([]byte, error) {
	switch f {
	case JSON:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case YAML:
		return yaml.Marshal(v)
	case TOML:
		return encodeTOML(v)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, string(f))
	}
}

func decodeJSON(data []byte) (suffixmerge.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := readJSON(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, errors.New("invalid JSON: data after top-level value")
	}
	return v, nil
}

func readJSON(dec *json.Decoder) (suffixmerge.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := suffixmerge.NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("invalid JSON: object key %v", keyTok)
				}
				val, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := suffixmerge.Array{}
			for dec.More() {
				val, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("invalid JSON: unexpected %v", t)
		}
	case string:
		return suffixmerge.String(t), nil
	case json.Number:
		return suffixmerge.Number(t), nil
	case bool:
		return suffixmerge.Bool(t), nil
	case nil:
		return suffixmerge.Null{}, nil
	default:
		return nil, fmt.Errorf("invalid JSON: unexpected token %v", t)
	}
}

func decodeYAML(data []byte) (suffixmerge.Value, error) {
	var doc any
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.UseOrderedMap()); err != nil {
		return nil, err
	}
	return suffixmerge.FromAny(doc)
}

// decodeTOML decodes into a Go map and then restores key order from the
// decoder's metadata, which lists keys as they appear in the document.
func decodeTOML(data []byte) (suffixmerge.Value, error) {
	var doc map[string]any
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, err
	}

	d := tomlDecoder{md: md, order: make(map[string][]string)}
	seen := make(map[string]struct{})
	for _, key := range md.Keys() {
		if len(key) == 0 {
			continue
		}
		full := strings.Join(key, "\x00")
		if _, ok := seen[full]; ok {
			continue
		}
		seen[full] = struct{}{}
		parent := strings.Join(key[:len(key)-1], "\x00")
		d.order[parent] = append(d.order[parent], key[len(key)-1])
	}

	return d.value(doc, nil)
}

type tomlDecoder struct {
	md    toml.MetaData
	order map[string][]string
}

func (d *tomlDecoder) value(v any, path []string) (suffixmerge.Value, error) {
	switch v := v.(type) {
	case map[string]any:
		obj := suffixmerge.NewObject()
		for _, k := range tomlKeys(v, d.order[strings.Join(path, "\x00")]) {
			child, err := d.value(v[k], append(slices.Clip(path), k))
			if err != nil {
				return nil, err
			}
			obj.Set(k, child)
		}
		return obj, nil
	case []map[string]any:
		arr := make(suffixmerge.Array, len(v))
		for i, item := range v {
			child, err := d.value(item, path)
			if err != nil {
				return nil, err
			}
			arr[i] = child
		}
		return arr, nil
	case []any:
		arr := make(suffixmerge.Array, len(v))
		for i, item := range v {
			child, err := d.value(item, path)
			if err != nil {
				return nil, err
			}
			arr[i] = child
		}
		return arr, nil
	case time.Time:
		return suffixmerge.String(d.datetime(v, path)), nil
	default:
		return suffixmerge.FromAny(v)
	}
}

// Layouts of the TOML date and time types that carry no offset.
const (
	layoutDatetimeLocal = "2006-01-02T15:04:05.999999999"
	layoutDateLocal     = "2006-01-02"
	layoutTimeLocal     = "15:04:05.999999999"
)

// datetime formats t the way it was written. The decoder returns every TOML
// date or time as a time.Time; the metadata tells which of them had no offset.
// Array elements have no metadata of their own, so the location the decoder
// assigned to local values identifies them instead.
func (d *tomlDecoder) datetime(t time.Time, path []string) string {
	typ := d.md.Type(path...)
	if typ == "Array" || typ == "" {
		switch t.Location().String() {
		case "datetime-local":
			typ = "DatetimeLocal"
		case "date-local":
			typ = "DateLocal"
		case "time-local":
			typ = "TimeLocal"
		}
	}
	switch typ {
	case "DatetimeLocal":
		return t.Format(layoutDatetimeLocal)
	case "DateLocal":
		return t.Format(layoutDateLocal)
	case "TimeLocal":
		return t.Format(layoutTimeLocal)
	default:
		return t.Format(time.RFC3339Nano)
	}
}

// tomlKeys returns the keys of m in document order, followed by any keys
// the metadata did not mention in sorted order.
func tomlKeys(m map[string]any, ordered []string) []string {
	keys := make([]string, 0, len(m))
	used := make(map[string]struct{}, len(m))
	for _, k := range ordered {
		if _, ok := m[k]; !ok {
			continue
		}
		if _, dup := used[k]; dup {
			continue
		}
		used[k] = struct{}{}
		keys = append(keys, k)
	}
	var rest []string
	for k := range m {
		if _, ok := used[k]; !ok {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

// encodeTOML writes v table by table in member order. Within a table, plain
// values come first, then sub-tables and arrays of tables, as TOML requires.
// Single values are rendered by the TOML encoder.
func encodeTOML(v suffixmerge.Value) ([]byte, error) {
	obj, ok := v.(*suffixmerge.Object)
	if !ok {
		return nil, fmt.Errorf("toml: document root must be an object, got %s", suffixmerge.KindOf(v))
	}
	var w tomlWriter
	if err := w.table(nil, obj, ""); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

type tomlWriter struct {
	buf bytes.Buffer
}

func (w *tomlWriter) table(path []string, obj *suffixmerge.Object, header string) error {
	if header != "" {
		if w.buf.Len() > 0 {
			w.buf.WriteByte('\n')
		}
		w.buf.WriteString(header)
		w.buf.WriteByte('\n')
	}

	var nested []string
	for k, v := range obj.All() {
		switch {
		case suffixmerge.KindOf(v) == suffixmerge.KindNull:
			continue
		case suffixmerge.KindOf(v) == suffixmerge.KindObject, isTableArray(v):
			nested = append(nested, k)
			continue
		}
		key, err := tomlKey(k)
		if err != nil {
			return err
		}
		val, err := tomlInline(v)
		if err != nil {
			return fmt.Errorf("toml: key %q: %w", strings.Join(append(slices.Clip(path), k), "."), err)
		}
		fmt.Fprintf(&w.buf, "%s = %s\n", key, val)
	}

	for _, k := range nested {
		child := append(slices.Clip(path), k)
		name, err := tomlPath(child)
		if err != nil {
			return err
		}
		v, _ := obj.Get(k)
		switch v := v.(type) {
		case *suffixmerge.Object:
			if err := w.table(child, v, "["+name+"]"); err != nil {
				return err
			}
		case suffixmerge.Array:
			for _, item := range v {
				if err := w.table(child, item.(*suffixmerge.Object), "[["+name+"]]"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// isTableArray reports whether v is a non-empty array holding only objects.
func isTableArray(v suffixmerge.Value) bool {
	arr, ok := v.(suffixmerge.Array)
	if !ok || len(arr) == 0 {
		return false
	}
	for _, item := range arr {
		if suffixmerge.KindOf(item) != suffixmerge.KindObject {
			return false
		}
	}
	return true
}

// tomlInline renders a single value as it appears after "key = ".
func tomlInline(v suffixmerge.Value) (string, error) {
	doc, err := dropNulls(suffixmerge.ToAny(v))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]any{"v": doc}); err != nil {
		return "", err
	}
	out, ok := strings.CutPrefix(strings.TrimSpace(buf.String()), "v = ")
	if !ok {
		return "", fmt.Errorf("toml: cannot encode %s inline", suffixmerge.KindOf(v))
	}
	return out, nil
}

func tomlKey(k string) (string, error) {
	if k != "" && strings.Trim(k, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-") == "" {
		return k, nil
	}
	return tomlInline(suffixmerge.String(k))
}

func tomlPath(path []string) (string, error) {
	parts := make([]string, len(path))
	for i, k := range path {
		key, err := tomlKey(k)
		if err != nil {
			return "", err
		}
		parts[i] = key
	}
	return strings.Join(parts, "."), nil
}

func dropNulls(v any) (any, error) {
	switch v := v.(type) {
	case map[string]any:
		for k, item := range v {
			if item == nil {
				delete(v, k)
				continue
			}
			cleaned, err := dropNulls(item)
			if err != nil {
				return nil, err
			}
			v[k] = cleaned
		}
		return v, nil
	case []any:
		for i, item := range v {
			if item == nil {
				return nil, fmt.Errorf("toml: cannot encode null at array index %d", i)
			}
			cleaned, err := dropNulls(item)
			if err != nil {
				return nil, err
			}
			v[i] = cleaned
		}
		return v, nil
	default:
		return v, nil
	}
}
