package environment

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/interpolation"
	"github.com/mlld-lang/mlld-core/pkg/variable"
)

// transformerDef describes one built-in transformer family: a parent
// callable plus its dotted variants (spec.md §9 "Built-in transformers
// with dotted variants" — json/json.indent register as distinct
// callables sharing a common parent).
type transformerDef struct {
	name     string
	call     variable.TransformerFunc
	variants map[string]variable.TransformerFunc
}

func transformerDefs() []transformerDef {
	return []transformerDef{
		{name: "json", call: transformJSON, variants: map[string]variable.TransformerFunc{
			"indent": transformJSONIndent,
		}},
		{name: "xml", call: transformXML},
		{name: "csv", call: transformCSV, variants: map[string]variable.TransformerFunc{
			"header": transformCSVHeader,
		}},
		{name: "md", call: transformMarkdown},
		{name: "keep", call: transformKeep},
		{name: "keepStructured", call: transformKeepStructured},
	}
}

// upperAliases are the spec's uppercase transformer spellings (spec.md
// §4.H "JSON/json/XML/xml/CSV/csv/MD/md"), each sharing the lowercase
// family's implementation.
var upperAliases = map[string]string{
	"JSON": "json",
	"XML":  "xml",
	"CSV":  "csv",
	"MD":   "md",
}

// bindTransformerVariables registers the built-in data transformers and
// their dotted variants directly into the root environment's variable
// table (spec.md §4.H, §9). A parent's Metadata.TransformerVariants
// holds its variant Variables so field access on the parent can return
// the variant directly (see evalExpression's FieldAccess handling)
// instead of the parent's general implementation.
func bindTransformerVariables(e *Environment) {
	for _, def := range transformerDefs() {
		variants := make(map[string]*variable.Variable, len(def.variants))
		for variantName, fn := range def.variants {
			full := def.name + "." + variantName
			v := variable.CreateTransformerVariable(full, fn, nil, variable.Source{}, astnode.Location{})
			variants[variantName] = v
			e.vars[full] = v
		}
		parent := variable.CreateTransformerVariable(def.name, def.call, variants, variable.Source{}, astnode.Location{})
		e.vars[def.name] = parent
	}
	for alias, target := range upperAliases {
		if v, ok := e.vars[target]; ok {
			e.vars[alias] = v
		}
	}
}

// normalizeForMarshal lets a transformer accept either an already
// structured value (from a prior stage's output) or a JSON-encoded
// string, re-serialising either shape consistently.
func normalizeForMarshal(input interface{}) interface{} {
	s, ok := input.(string)
	if !ok {
		return input
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(s), &decoded); err == nil {
		return decoded
	}
	return s
}

func transformJSON(input interface{}, _ []interface{}) (interface{}, error) {
	data, err := json.Marshal(normalizeForMarshal(input))
	if err != nil {
		return nil, fmt.Errorf("json transformer: %w", err)
	}
	return string(data), nil
}

func transformJSONIndent(input interface{}, _ []interface{}) (interface{}, error) {
	data, err := json.MarshalIndent(normalizeForMarshal(input), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json.indent transformer: %w", err)
	}
	return string(data), nil
}

func transformXML(input interface{}, _ []interface{}) (interface{}, error) {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	writeXMLValue(&b, "root", normalizeForMarshal(input), 0)
	return b.String(), nil
}

func writeXMLValue(b *strings.Builder, tag string, value interface{}, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(b, "%s<%s>\n", indent, tag)
		for _, k := range keys {
			writeXMLValue(b, k, v[k], depth+1)
		}
		fmt.Fprintf(b, "%s</%s>\n", indent, tag)
	case []interface{}:
		fmt.Fprintf(b, "%s<%s>\n", indent, tag)
		for _, el := range v {
			writeXMLValue(b, "item", el, depth+1)
		}
		fmt.Fprintf(b, "%s</%s>\n", indent, tag)
	case nil:
		fmt.Fprintf(b, "%s<%s/>\n", indent, tag)
	default:
		fmt.Fprintf(b, "%s<%s>%s</%s>\n", indent, tag, xmlEscape(fmt.Sprint(v)), tag)
	}
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func transformCSV(input interface{}, _ []interface{}) (interface{}, error) {
	return csvTransform(input, false)
}

func transformCSVHeader(input interface{}, _ []interface{}) (interface{}, error) {
	return csvTransform(input, true)
}

func csvTransform(input interface{}, withHeader bool) (interface{}, error) {
	rows, err := csvRows(normalizeForMarshal(input))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return "", nil
	}

	cols := csvColumns(rows)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if withHeader {
		if err := w.Write(cols); err != nil {
			return nil, err
		}
	}
	for _, row := range rows {
		record := make([]string, len(cols))
		for i, c := range cols {
			record[i] = fmt.Sprint(row[c])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.String(), nil
}

// csvRows coerces input into a row set: an array of objects becomes its
// rows directly; a single object becomes a one-row set.
func csvRows(input interface{}) ([]map[string]interface{}, error) {
	switch v := input.(type) {
	case []interface{}:
		rows := make([]map[string]interface{}, 0, len(v))
		for _, el := range v {
			obj, ok := el.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("csv transformer: expected an array of objects, element is %T", el)
			}
			rows = append(rows, obj)
		}
		return rows, nil
	case map[string]interface{}:
		return []map[string]interface{}{v}, nil
	default:
		return nil, fmt.Errorf("csv transformer: expected an object or array of objects, got %T", input)
	}
}

func csvColumns(rows []map[string]interface{}) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func transformMarkdown(input interface{}, _ []interface{}) (interface{}, error) {
	switch v := normalizeForMarshal(input).(type) {
	case []interface{}:
		rows, err := csvRows(v)
		if err != nil {
			var b strings.Builder
			for _, el := range v {
				fmt.Fprintf(&b, "- %v\n", el)
			}
			return b.String(), nil
		}
		return markdownTable(rows), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "- **%s**: %v\n", k, v[k])
		}
		return b.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func markdownTable(rows []map[string]interface{}) string {
	cols := csvColumns(rows)
	dividers := make([]string, len(cols))
	for i := range dividers {
		dividers[i] = "---"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "| %s |\n", strings.Join(cols, " | "))
	fmt.Fprintf(&b, "| %s |\n", strings.Join(dividers, " | "))
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = fmt.Sprint(row[c])
		}
		fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
	}
	return b.String()
}

// transformKeep forces the pipeline input's text projection, the
// explicit counterpart to resolveVariableValue's implicit "pipeline
// inputs default to their .text view" rule (spec.md §4.A).
func transformKeep(input interface{}, _ []interface{}) (interface{}, error) {
	return interpolation.ToString(input, interpolation.Default)
}

// transformKeepStructured forces the structured projection: a JSON
// string is decoded back into its structured shape, and an
// already-structured value passes through unchanged.
func transformKeepStructured(input interface{}, _ []interface{}) (interface{}, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return input, nil
	}
	return decoded, nil
}
