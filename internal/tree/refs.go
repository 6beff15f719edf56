package tree

import (
	"sort"
	"strconv"

	"github.com/go-openapi/jsonpointer"
)

// RefInfo describes a `$ref` node found while walking a document.
type RefInfo struct {
	// Ref is the raw reference string.
	Ref string `json:"ref"`
	// Location is the JSON Pointer of the node holding the reference.
	Location string `json:"location"`
}

// RefTarget extracts the raw reference of node when it is a reference object.
func RefTarget(node any) (string, bool) {
	obj, ok := node.(map[string]any)
	if !ok {
		return "", false
	}
	raw, ok := obj[RefKey].(string)
	return raw, ok
}

// Refs lists every reference in doc in document order; object keys are
// visited alphabetically.
func Refs(doc any) []RefInfo {
	var out []RefInfo
	walkRefs(doc, "", &out)
	return out
}

func walkRefs(node any, location string, out *[]RefInfo) {
	if raw, ok := RefTarget(node); ok {
		if location == "" {
			location = "/"
		}
		*out = append(*out, RefInfo{Ref: raw, Location: location})
		return
	}
	switch typed := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			walkRefs(typed[key], location+"/"+jsonpointer.Escape(key), out)
		}
	case []any:
		for i, child := range typed {
			walkRefs(child, location+"/"+strconv.Itoa(i), out)
		}
	}
}
