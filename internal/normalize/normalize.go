// Package normalize implements the Format Normalizer: it
// turns CSV/TSV/PSV, JSON, and XML sources into a common lazy stream of
// (row_index, field[]) rows, without ever aborting the stream on a single
// malformed row.
package normalize

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// MalformedRowField is the sentinel value emitted in place of a row whose
// column count disagrees with the header.
const MalformedRowField = "__malformed_row__"

// Row is one emitted record. Err is set instead of Fields when a row could
// not be parsed at all. Delimited keeps streaming after a data-row error;
// a header error, or an XML decode error, ends the stream.
type Row struct {
	Index  int
	Fields []string
	Err    error
}

// Delimited streams rows from a CSV/TSV/PSV reader using delim as the
// field separator. The first row is treated as a header: subsequent rows
// whose field count differs from the header's are replaced with a single
// MalformedRowField row rather than aborting the stream. Header is
// returned empty if src has no rows at all.
func Delimited(src io.Reader, delim rune) (header []string, rows <-chan Row) {
	out := make(chan Row)
	r := csv.NewReader(src)
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	first, err := r.Read()
	if err == io.EOF {
		close(out)
		return nil, out
	}
	if err != nil {
		go func() {
			defer close(out)
			out <- Row{Index: 0, Err: fmt.Errorf("reading header: %w", err)}
		}()
		return nil, out
	}
	header = first

	go func() {
		defer close(out)
		idx := 0
		for {
			record, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				out <- Row{Index: idx, Err: err}
				idx++
				continue
			}
			if len(record) != len(header) {
				out <- Row{Index: idx, Fields: []string{MalformedRowField}}
				idx++
				continue
			}
			out <- Row{Index: idx, Fields: record}
			idx++
		}
	}()
	return header, out
}

// JSON streams rows from a JSON document: array-of-objects flattens to
// the sorted union of dot-paths as the header; array-of-arrays
// stringifies each inner array; array-of-primitives emits one row per
// value; a bare object emits a single flattened row.
func JSON(data []byte) (header []string, rows <-chan Row, err error) {
	var root interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("parsing json: %w", err)
	}

	out := make(chan Row)

	switch v := root.(type) {
	case []interface{}:
		if len(v) == 0 {
			close(out)
			return nil, out, nil
		}
		switch v[0].(type) {
		case map[string]interface{}:
			keys := unionKeys(v)
			go func() {
				defer close(out)
				for i, elem := range v {
					obj, ok := elem.(map[string]interface{})
					if !ok {
						out <- Row{Index: i, Fields: []string{MalformedRowField}}
						continue
					}
					flat := flatten("", obj)
					fields := make([]string, len(keys))
					for j, k := range keys {
						fields[j] = flat[k]
					}
					out <- Row{Index: i, Fields: fields}
				}
			}()
			return keys, out, nil
		case []interface{}:
			go func() {
				defer close(out)
				for i, elem := range v {
					inner, _ := elem.([]interface{})
					fields := make([]string, len(inner))
					for j, x := range inner {
						fields[j] = stringify(x)
					}
					out <- Row{Index: i, Fields: fields}
				}
			}()
			return nil, out, nil
		default:
			go func() {
				defer close(out)
				for i, elem := range v {
					out <- Row{Index: i, Fields: []string{stringify(elem)}}
				}
			}()
			return nil, out, nil
		}
	case map[string]interface{}:
		flat := flatten("", v)
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]string, len(keys))
		for i, k := range keys {
			fields[i] = flat[k]
		}
		go func() {
			defer close(out)
			out <- Row{Index: 0, Fields: fields}
		}()
		return keys, out, nil
	default:
		close(out)
		return nil, out, fmt.Errorf("unsupported json root type %T", root)
	}
}

func unionKeys(arr []interface{}) []string {
	seen := map[string]bool{}
	for _, elem := range arr {
		obj, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		flat := flatten("", obj)
		for k := range flat {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// flatten dot-path flattens obj. Nested arrays are rendered inline as
// "[v1, v2, …]" rather than recursed into further.
func flatten(prefix string, obj map[string]interface{}) map[string]string {
	out := map[string]string{}
	for k, v := range obj {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			for kk, vv := range flatten(path, val) {
				out[kk] = vv
			}
		case []interface{}:
			out[path] = stringifyArray(val)
		default:
			out[path] = stringify(val)
		}
	}
	return out
}

func stringifyArray(arr []interface{}) string {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, v := range arr {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(stringify(v))
	}
	b.WriteByte(']')
	return b.String()
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []interface{}:
		return stringifyArray(x)
	case map[string]interface{}:
		flat := flatten("", x)
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b bytes.Buffer
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(flat[k])
		}
		b.WriteByte('}')
		return b.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// XML performs a non-validating event scan emitting (tag, text) pairs in
// document order, skipping processing instructions, declarations, and
// empty text nodes. Each emitted row has two fields: the
// innermost enclosing tag name and its text content.
func XML(src io.Reader) <-chan Row {
	out := make(chan Row)
	dec := xml.NewDecoder(src)

	go func() {
		defer close(out)
		idx := 0
		var stack []string
		for {
			tok, err := dec.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				out <- Row{Index: idx, Err: err}
				idx++
				return
			}
			switch t := tok.(type) {
			case xml.StartElement:
				stack = append(stack, t.Name.Local)
			case xml.EndElement:
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			case xml.CharData:
				text := bytes.TrimSpace(t)
				if len(text) == 0 || len(stack) == 0 {
					continue
				}
				out <- Row{Index: idx, Fields: []string{stack[len(stack)-1], string(text)}}
				idx++
			}
		}
	}()
	return out
}
