package tools

import (
	"encoding/json"
	"fmt"
)

const noResults = "No results found."

// Result is what an executor hands back to the router. Build it with List,
// Item or Text so serialization never has to inspect the value.
type Result struct {
	kind  resultKind
	items []any
	item  any
	text  string
}

type resultKind int

const (
	kindNone resultKind = iota
	kindList
	kindItem
	kindText
)

// None is an empty result.
func None() Result {
	return Result{kind: kindNone}
}

// List wraps a slice of records.
func List[T any](items []T) Result {
	out := make([]any, len(items))
	for i := range items {
		out[i] = items[i]
	}
	return Result{kind: kindList, items: out}
}

// Item wraps a single record. A nil pointer becomes None.
func Item[T any](v *T) Result {
	if v == nil {
		return None()
	}
	return Result{kind: kindItem, item: v}
}

// Text wraps a scalar answer.
func Text(s string) Result {
	return Result{kind: kindText, text: s}
}

// Count is the number of records carried, 0 for None.
func (r Result) Count() int {
	switch r.kind {
	case kindList:
		return len(r.items)
	case kindItem, kindText:
		return 1
	default:
		return 0
	}
}

// Serialize renders r in the shape the model is prompted to expect:
//
//	none        {"result": "No results found."}
//	empty list  {"result": "No results found.", "count": 0}
//	list        {"results": [...], "count": N}
//	record      the record's fields, nulls omitted
//	text        {"result": "..."}
func (r Result) Serialize() (string, error) {
	var v any
	switch r.kind {
	case kindNone:
		v = map[string]any{"result": noResults}
	case kindList:
		if len(r.items) == 0 {
			v = map[string]any{"result": noResults, "count": 0}
		} else {
			v = map[string]any{"results": r.items, "count": len(r.items)}
		}
	case kindItem:
		v = r.item
	case kindText:
		v = map[string]any{"result": r.text}
	default:
		return "", fmt.Errorf("unknown result kind %d", r.kind)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize result: %w", err)
	}
	return string(b), nil
}
