// Package output renders API results and request statistics for the
// zohobooks CLI.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Formats accepted by Printer.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

const maxCellWidth = 48

// Printer writes values as JSON, YAML or an aligned table, optionally
// narrowed by a gjson query first.
type Printer struct {
	Out    io.Writer
	Format string
	Query  string
	// Columns lists the table columns for records. Empty means every scalar
	// field of the first record.
	Columns []string
}

// Print marshals v to JSON, applies the query and writes it in the
// configured format.
func (p Printer) Print(v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return p.PrintJSON(doc)
}

// PrintJSON is Print for an already encoded document.
func (p Printer) PrintJSON(doc []byte) error {
	if q := strings.TrimSpace(p.Query); q != "" {
		selected, err := Select(doc, q)
		if err != nil {
			return err
		}
		doc = selected
	}

	switch strings.ToLower(strings.TrimSpace(p.Format)) {
	case "", FormatJSON:
		return writeJSON(p.Out, doc)
	case FormatYAML:
		return writeYAML(p.Out, doc)
	case FormatTable:
		columns := p.Columns
		if p.Query != "" {
			// A query changes the shape; derive columns from the result.
			columns = nil
		}
		return writeTable(p.Out, doc, columns)
	default:
		return fmt.Errorf("unsupported output format %q", p.Format)
	}
}

func writeJSON(w io.Writer, doc []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return fmt.Errorf("format json: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// writeYAML parses the JSON as YAML so key order is kept, then re-encodes
// it in block style.
func writeYAML(w io.Writer, doc []byte) error {
	var node yaml.Node
	if err := yaml.Unmarshal(doc, &node); err != nil {
		return fmt.Errorf("format yaml: %w", err)
	}
	clearStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("format yaml: %w", err)
	}
	return enc.Close()
}

func clearStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		clearStyle(child)
	}
}

func writeTable(w io.Writer, doc []byte, columns []string) error {
	root := gjson.ParseBytes(doc)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	switch {
	case root.IsArray():
		rows := root.Array()
		if len(rows) == 0 {
			fmt.Fprintln(tw, "(no records)")
			break
		}
		if !rows[0].IsObject() {
			fmt.Fprintln(tw, "VALUE")
			for _, row := range rows {
				fmt.Fprintln(tw, cell(row))
			}
			break
		}
		if len(columns) == 0 {
			columns = scalarKeys(rows)
		}
		fmt.Fprintln(tw, header(columns))
		for _, row := range rows {
			values := make([]string, len(columns))
			for i, col := range columns {
				values[i] = cell(row.Get(escapePath(col)))
			}
			fmt.Fprintln(tw, strings.Join(values, "\t"))
		}
	case root.IsObject():
		fmt.Fprintln(tw, "FIELD\tVALUE")
		root.ForEach(func(key, value gjson.Result) bool {
			fmt.Fprintf(tw, "%s\t%s\n", key.String(), cell(value))
			return true
		})
	default:
		fmt.Fprintln(tw, root.String())
	}
	return tw.Flush()
}

// scalarKeys collects the keys with scalar values across rows, in first-seen
// order.
func scalarKeys(rows []gjson.Result) []string {
	var keys []string
	seen := map[string]bool{}
	for _, row := range rows {
		row.ForEach(func(key, value gjson.Result) bool {
			k := key.String()
			if !seen[k] && !value.IsObject() && !value.IsArray() {
				seen[k] = true
				keys = append(keys, k)
			}
			return true
		})
	}
	return keys
}

func header(columns []string) string {
	upper := make([]string, len(columns))
	for i, c := range columns {
		upper[i] = strings.ToUpper(c)
	}
	return strings.Join(upper, "\t")
}

func cell(value gjson.Result) string {
	var s string
	switch {
	case !value.Exists() || value.Type == gjson.Null:
		return "-"
	case value.IsObject() || value.IsArray():
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(value.Raw)); err != nil {
			s = value.Raw
		} else {
			s = buf.String()
		}
	default:
		s = value.String()
	}
	s = strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
	if r := []rune(s); len(r) > maxCellWidth {
		s = string(r[:maxCellWidth-3]) + "..."
	}
	return s
}

func escapePath(key string) string {
	return strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`).Replace(key)
}
