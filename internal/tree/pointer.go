package tree

import (
	"fmt"
	"strconv"

	"github.com/go-openapi/jsonpointer"
)

// IsWhole reports whether pointer designates the entire document.
func IsWhole(pointer string) bool {
	return pointer == "" || pointer == "/"
}

// Lookup returns the node designated by pointer inside doc.
func Lookup(doc any, pointer string) (any, error) {
	if IsWhole(pointer) {
		return doc, nil
	}
	ptr, err := jsonpointer.New(pointer)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPointer, pointer, err)
	}
	value, _, err := ptr.Get(doc)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrNotFound, pointer, err)
	}
	return value, nil
}

// Set writes value at pointer and returns the (possibly new) document root.
// Every intermediate node must exist. The final object key may be new; the
// final array token must be an existing index or "-" to append.
func Set(doc any, pointer string, value any) (any, error) {
	if IsWhole(pointer) {
		return value, nil
	}
	ptr, err := jsonpointer.New(pointer)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPointer, pointer, err)
	}
	out, err := setAt(doc, ptr.DecodedTokens(), value)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrNotFound, pointer, err)
	}
	return out, nil
}

func setAt(node any, tokens []string, value any) (any, error) {
	if len(tokens) == 0 {
		return value, nil
	}
	token, rest := tokens[0], tokens[1:]
	switch typed := node.(type) {
	case map[string]any:
		child, ok := typed[token]
		if !ok && len(rest) > 0 {
			return nil, fmt.Errorf("object has no key %q", token)
		}
		updated, err := setAt(child, rest, value)
		if err != nil {
			return nil, err
		}
		typed[token] = updated
		return typed, nil
	case []any:
		if token == "-" && len(rest) == 0 {
			return append(typed, value), nil
		}
		index, err := strconv.Atoi(token)
		if err != nil || index < 0 || index >= len(typed) {
			return nil, fmt.Errorf("index %q out of range", token)
		}
		updated, err := setAt(typed[index], rest, value)
		if err != nil {
			return nil, err
		}
		typed[index] = updated
		return typed, nil
	default:
		return nil, fmt.Errorf("cannot descend into %T with token %q", node, token)
	}
}
