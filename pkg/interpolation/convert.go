package interpolation

import (
	"encoding/json"
	"strings"
)

// contentful is satisfied by LoadContentResult-shaped values (duck
// typed, so this package never imports pkg/importresolver) — spec.md
// §4.J: "LoadContentResult arrays concatenate .content with blank-line
// separators".
type contentful interface {
	InterpolationContent() string
}

// namespaceObject is satisfied by a namespace-shaped value (a module's
// exported bindings). Detected by duck typing for the same reason.
type namespaceObject interface {
	IsNamespace() bool
	NamespaceRender() (string, error)
}

// ToString implements spec.md §4.J's value-to-string conversion rules
// for a resolved variable value under ctx:
//   - nil            -> "null"
//   - []interface{}  -> ShellCommand: space-separated, per-element shell-escaped tokens;
//                       otherwise: compact JSON, unless every element is
//                       content-ful, in which case blank-line-joined content.
//   - map[string]any -> namespace objects render via their cleaner;
//                       otherwise compact JSON.
//   - everything else -> fmt-style string conversion via JSON for
//                        structured values, direct string for scalars.
func ToString(value interface{}, ctx Context) (string, error) {
	if value == nil {
		return "null", nil
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case []interface{}:
		return arrayToString(v, ctx)
	case map[string]interface{}:
		return objectToString(v)
	case namespaceObject:
		return v.NamespaceRender()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

func arrayToString(arr []interface{}, ctx Context) (string, error) {
	if allContentful(arr) {
		parts := make([]string, 0, len(arr))
		for _, el := range arr {
			parts = append(parts, el.(contentful).InterpolationContent())
		}
		return strings.Join(parts, "\n\n"), nil
	}

	if ctx == ShellCommand {
		tokens := make([]string, 0, len(arr))
		for _, el := range arr {
			s, err := ToString(el, ctx)
			if err != nil {
				return "", err
			}
			tokens = append(tokens, ShellEscape(s))
		}
		return strings.Join(tokens, " "), nil
	}

	data, err := json.Marshal(arr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func objectToString(obj map[string]interface{}) (string, error) {
	if ns, ok := interface{}(obj).(namespaceObject); ok {
		return ns.NamespaceRender()
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func allContentful(arr []interface{}) bool {
	if len(arr) == 0 {
		return false
	}
	for _, el := range arr {
		if _, ok := el.(contentful); !ok {
			return false
		}
	}
	return true
}
