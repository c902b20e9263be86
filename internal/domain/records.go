package domain

import (
	"math"
	"strconv"
	"strings"

	m "srclens.dev/pkg/srclens/internal/model"
)

// Record is an opaque framework-internal component record.
type Record any

// RecordAdapter reads framework-internal records reachable from an element.
// Implementations may panic on malformed foreign state; the resolver recovers.
type RecordAdapter interface {
	// Locate finds the record attached to a DOM element.
	Locate(el m.Element) (Record, bool)
	// TryExtractDebugSource looks for a debug source on a single record.
	TryExtractDebugSource(rec Record) (m.SourceLocation, bool)
	// Next returns the record the chain walk moves to.
	Next(rec Record) (Record, bool)
}

// Record key prefixes React uses to attach fibers to DOM nodes.
var fiberKeyPrefixes = []string{"__reactFiber", "__reactInternalInstance"}

// ReactFiberAdapter reads React fibers decoded into generic maps.
type ReactFiberAdapter struct{}

// NewReactFiberAdapter creates a new ReactFiberAdapter.
func NewReactFiberAdapter() *ReactFiberAdapter {
	return &ReactFiberAdapter{}
}

// Locate returns the value of the first prefixed fiber key, otherwise the
// first property that looks like a fiber.
func (a *ReactFiberAdapter) Locate(el m.Element) (Record, bool) {
	props := el.Props()

	for _, prop := range props {
		if hasFiberPrefix(prop.Key) && prop.Value != nil {
			return prop.Value, true
		}
	}

	for _, prop := range props {
		if looksLikeFiber(prop.Value) {
			return prop.Value, true
		}
	}

	return nil, false
}

// TryExtractDebugSource checks _debugSource, the owner's _debugSource and the
// __source prop, in that order.
func (a *ReactFiberAdapter) TryExtractDebugSource(rec Record) (m.SourceLocation, bool) {
	fiber, ok := asMap(rec)
	if !ok {
		return m.SourceLocation{}, false
	}

	if loc, ok := parseDebugSource(fiber["_debugSource"]); ok {
		return loc, true
	}

	if owner, ok := asMap(fiber["_owner"]); ok {
		if loc, ok := parseDebugSource(owner["_debugSource"]); ok {
			return loc, true
		}
	}

	props, ok := asMap(fiber["memoizedProps"])
	if !ok {
		props, ok = asMap(fiber["pendingProps"])
	}

	if ok {
		if loc, ok := parseDebugSource(props["__source"]); ok {
			return loc, true
		}
	}

	return m.SourceLocation{}, false
}

// Next follows return, falling back to _owner.
func (a *ReactFiberAdapter) Next(rec Record) (Record, bool) {
	fiber, ok := asMap(rec)
	if !ok {
		return nil, false
	}

	for _, key := range []string{"return", "_owner"} {
		if next, ok := asMap(fiber[key]); ok {
			return next, true
		}
	}

	return nil, false
}

func hasFiberPrefix(key string) bool {
	for _, prefix := range fiberKeyPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}

	return false
}

// looksLikeFiber is the shape test for unprefixed records.
func looksLikeFiber(value any) bool {
	fiber, ok := asMap(value)
	if !ok {
		return false
	}

	_, hasProps := fiber["memoizedProps"]
	_, hasReturn := fiber["return"]
	_, hasType := fiber["type"]
	_, hasElementType := fiber["elementType"]

	return hasProps && hasReturn && (hasType || hasElementType)
}

func parseDebugSource(value any) (m.SourceLocation, bool) {
	source, ok := asMap(value)
	if !ok {
		return m.SourceLocation{}, false
	}

	file, _ := source["fileName"].(string)

	line, ok := positiveInt(source["lineNumber"])
	if !ok || file == "" {
		return m.SourceLocation{}, false
	}

	return m.SourceLocation{File: file, Line: line}, true
}

func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, v != nil
	case map[any]any:
		if v == nil {
			return nil, false
		}

		out := make(map[string]any, len(v))
		for key, val := range v {
			if s, ok := key.(string); ok {
				out[s] = val
			}
		}

		return out, true
	default:
		return nil, false
	}
}

func positiveInt(value any) (int, bool) {
	var n int

	switch v := value.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case uint64:
		if v > math.MaxInt32 {
			return 0, false
		}

		n = int(v)
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 {
			return 0, false
		}

		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}

		n = parsed
	default:
		return 0, false
	}

	return n, n > 0
}
