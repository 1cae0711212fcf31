package drift

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// DefaultVolatileKeys are metadata fields that may differ between copies
// without constituting drift. They are removed from records at any depth but
// never from maps keyed by user-chosen names.
var DefaultVolatileKeys = []string{
	"updated_at",
	"last_sync",
	"last_push",
	"last_pull",
	"last_full_sync",
}

// NameMaps are the fields whose values are maps keyed by user-chosen names
// (environments, runtimes, versions, variables). An environment named
// "last_sync" is an entity, not metadata.
var NameMaps = []string{
	"environments",
	"agent_runtimes",
	"versions",
	"endpoints",
	"ecr_repositories",
	"iam_roles",
	"environment_variables",
	"tags",
	"extra",
}

// Normalizer canonicalizes a generic document tree so that two logically equal
// documents compare equal: volatile keys and excluded paths are stripped,
// numbers become float64, empty containers are treated as absent and
// sequences are ordered by content.
type Normalizer struct {
	keys     map[string]struct{}
	nameMaps map[string]struct{}
	paths    [][]string
}

// NewNormalizer builds a normalizer. Paths are dotted patterns where "*"
// matches exactly one segment, e.g. "environments.*.environment_variables".
func NewNormalizer(keys, paths []string) *Normalizer {
	n := &Normalizer{
		keys:     make(map[string]struct{}, len(keys)),
		nameMaps: make(map[string]struct{}, len(NameMaps)),
	}
	for _, k := range keys {
		n.keys[k] = struct{}{}
	}
	for _, k := range NameMaps {
		n.nameMaps[k] = struct{}{}
	}
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			n.paths = append(n.paths, strings.Split(p, "."))
		}
	}
	return n
}

// Normalize returns a normalized copy of tree. The input is not modified.
func (n *Normalizer) Normalize(tree interface{}) interface{} {
	return n.normalize(nil, tree, false)
}

// normalize walks v. named is true when v is a map keyed by user-chosen names;
// its keys are never treated as volatile fields, and its values are records.
func (n *Normalizer) normalize(path []string, v interface{}, named bool) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			childPath := appendPath(path, k)
			if n.excluded(k, childPath, named) {
				continue
			}
			_, childNamed := n.nameMaps[k]
			if norm := n.normalize(childPath, child, !named && childNamed); norm != nil {
				out[k] = norm
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(val))
		for _, child := range val {
			// Elements share the sequence's path; exclusions never target an index.
			out = append(out, n.normalize(path, child, false))
		}
		if len(out) == 0 {
			return nil
		}
		sortByContent(out)
		return out
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return normalizeScalar(val)
	}
}

func (n *Normalizer) excluded(key string, path []string, named bool) bool {
	if _, ok := n.keys[key]; ok && !named {
		return true
	}
	for _, pattern := range n.paths {
		if matchPath(pattern, path) {
			return true
		}
	}
	return false
}

func matchPath(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, seg := range pattern {
		if seg != "*" && seg != path[i] {
			return false
		}
	}
	return true
}

// normalizeScalar converts every numeric kind to float64 so 1 and 1.0 compare equal.
func normalizeScalar(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		return v
	}
}

// sortByContent orders elements by their canonical JSON encoding, turning
// sequence comparison into multiset comparison.
func sortByContent(items []interface{}) {
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = canonical(item)
	}
	sort.Sort(&byKey{items: items, keys: keys})
}

type byKey struct {
	items []interface{}
	keys  []string
}

func (b *byKey) Len() int           { return len(b.items) }
func (b *byKey) Less(i, j int) bool { return b.keys[i] < b.keys[j] }
func (b *byKey) Swap(i, j int) {
	b.items[i], b.items[j] = b.items[j], b.items[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

// canonical encodes v as JSON; encoding/json writes map keys in sorted order.
func canonical(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = seg
	return out
}
