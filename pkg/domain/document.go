package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// maxArrayIndex bounds how far a write may grow an array in a single step.
const maxArrayIndex = 1 << 16

// Document is the state tree of a single session.
//
// Paths are dotted ("a.b.0.c"): numeric segments address array elements and the
// segment "length" reads an array's length. On objects "length" is an ordinary
// key. Every top-level key touched by a successful write is recorded once in the
// dirty set, which is what a StateStore persists at the end of the turn.
//
// A Document is owned by the turn processing it and is not safe for concurrent use.
type Document struct {
	data  map[string]any
	dirty []string
	seen  map[string]struct{}
}

// NewDocument wraps data (which may be nil) in a Document with an empty dirty set.
// Values are normalized to their JSON shaped representation.
func NewDocument(data map[string]any) *Document {
	d := &Document{
		data: make(map[string]any, len(data)),
		seen: make(map[string]struct{}),
	}
	for k, v := range data {
		if !validSegment(k) {
			continue
		}
		if n := Normalize(v); n != nil {
			d.data[k] = n
		}
	}
	return d
}

// Get resolves path. The boolean is false when any segment is missing or the
// value is absent.
func (d *Document) Get(path string) (any, bool) {
	segs, ok := splitPath(path)
	if !ok {
		return nil, false
	}
	var cur any = d.data
	for _, seg := range segs {
		switch c := cur.(type) {
		case map[string]any:
			cur = c[seg]
		case []any:
			if seg == "length" {
				cur = float64(len(c))
				continue
			}
			idx, ok := parseIndex(seg)
			if !ok || idx >= len(c) {
				return nil, false
			}
			cur = c[idx]
		default:
			return nil, false
		}
		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// GetString resolves path and renders it with ToString. Missing paths yield "".
func (d *Document) GetString(path string) string {
	v, _ := d.Get(path)
	return ToString(v)
}

// GetNumber resolves path as a number, accepting numeric looking strings.
func (d *Document) GetNumber(path string) (float64, bool) {
	v, ok := d.Get(path)
	if !ok {
		return 0, false
	}
	return ToNumber(v)
}

// Has reports whether path resolves to a present value.
func (d *Document) Has(path string) bool {
	_, ok := d.Get(path)
	return ok
}

// Set writes value at path and reports whether the document changed.
//
// The write is a no-op when the path is empty or contains an empty, "null" or
// "undefined" segment, when an intermediate segment holds a scalar, when an array
// segment is negative or "length", and when value is nil and nothing exists at path.
// Writing nil to an existing path deletes it.
func (d *Document) Set(path string, value any) bool {
	segs, ok := splitPath(path)
	if !ok {
		return false
	}
	value = Normalize(value)
	if value == nil {
		return d.deleteSegs(segs)
	}

	top := segs[0]
	updated, ok := setIn(d.data[top], segs[1:], value)
	if !ok {
		return false
	}
	d.data[top] = updated
	d.MarkDirty(top)
	return true
}

// Delete removes the value at path and reports whether anything was removed.
// Array elements are cleared to an absent slot rather than shifted.
func (d *Document) Delete(path string) bool {
	segs, ok := splitPath(path)
	if !ok {
		return false
	}
	return d.deleteSegs(segs)
}

func (d *Document) deleteSegs(segs []string) bool {
	top := segs[0]
	cur, exists := d.data[top]
	if !exists {
		return false
	}
	if len(segs) == 1 {
		delete(d.data, top)
		d.MarkDirty(top)
		return true
	}
	if !deleteIn(cur, segs[1:]) {
		return false
	}
	d.MarkDirty(top)
	return true
}

// DeletePrefix removes every top-level key starting with prefix and returns the
// removed keys in sorted order.
func (d *Document) DeletePrefix(prefix string) []string {
	var removed []string
	for k := range d.data {
		if strings.HasPrefix(k, prefix) {
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	for _, k := range removed {
		delete(d.data, k)
		d.MarkDirty(k)
	}
	return removed
}

// Keys returns the top-level keys in sorted order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.data))
	for k := range d.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of top-level keys.
func (d *Document) Len() int {
	return len(d.data)
}

// MarkDirty records a top-level key for persistence. Keys are recorded once, in
// first-touch order.
func (d *Document) MarkDirty(key string) {
	if _, ok := d.seen[key]; ok {
		return
	}
	d.seen[key] = struct{}{}
	d.dirty = append(d.dirty, key)
}

// Dirty returns the top-level keys written since the last ClearDirty.
func (d *Document) Dirty() []string {
	out := make([]string, len(d.dirty))
	copy(out, d.dirty)
	return out
}

// IsDirty reports whether key was written since the last ClearDirty.
func (d *Document) IsDirty(key string) bool {
	_, ok := d.seen[key]
	return ok
}

// ClearDirty resets the dirty set, typically after a successful persist.
func (d *Document) ClearDirty() {
	d.dirty = nil
	d.seen = make(map[string]struct{})
}

// Raw returns the top-level value stored under key without path parsing.
func (d *Document) Raw(key string) (any, bool) {
	v, ok := d.data[key]
	return v, ok
}

// Snapshot returns a deep copy of the document contents.
func (d *Document) Snapshot() map[string]any {
	out, _ := deepCopy(d.data).(map[string]any)
	return out
}

// Clone returns an independent copy including the dirty set.
func (d *Document) Clone() *Document {
	c := &Document{
		data: d.Snapshot(),
		seen: make(map[string]struct{}, len(d.seen)),
	}
	for _, k := range d.dirty {
		c.MarkDirty(k)
	}
	return c
}

// Replace swaps the document contents for data, keeping the dirty set.
func (d *Document) Replace(data map[string]any) {
	fresh := NewDocument(data)
	d.data = fresh.data
}

// MarshalJSON encodes the document contents.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.data)
}

// UnmarshalJSON replaces the document contents and clears the dirty set.
func (d *Document) UnmarshalJSON(b []byte) error {
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}
	fresh := NewDocument(data)
	*d = *fresh
	return nil
}

func setIn(cur any, segs []string, value any) (any, bool) {
	if len(segs) == 0 {
		return value, true
	}
	seg := segs[0]
	switch c := cur.(type) {
	case nil:
		if _, ok := parseIndex(seg); ok {
			return setIn([]any{}, segs, value)
		}
		return setIn(map[string]any{}, segs, value)
	case map[string]any:
		child, ok := setIn(c[seg], segs[1:], value)
		if !ok {
			return nil, false
		}
		c[seg] = child
		return c, true
	case []any:
		idx, ok := parseIndex(seg)
		if !ok || idx > maxArrayIndex {
			return nil, false
		}
		var existing any
		if idx < len(c) {
			existing = c[idx]
		}
		child, ok := setIn(existing, segs[1:], value)
		if !ok {
			return nil, false
		}
		if idx >= len(c) {
			c = append(c, make([]any, idx-len(c)+1)...)
		}
		c[idx] = child
		return c, true
	}
	return nil, false
}

func deleteIn(cur any, segs []string) bool {
	seg := segs[0]
	last := len(segs) == 1
	switch c := cur.(type) {
	case map[string]any:
		child, ok := c[seg]
		if !ok {
			return false
		}
		if last {
			delete(c, seg)
			return true
		}
		return deleteIn(child, segs[1:])
	case []any:
		idx, ok := parseIndex(seg)
		if !ok || idx >= len(c) || c[idx] == nil {
			return false
		}
		if last {
			c[idx] = nil
			return true
		}
		return deleteIn(c[idx], segs[1:])
	}
	return false
}

func splitPath(path string) ([]string, bool) {
	if path == "" {
		return nil, false
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if !validSegment(s) {
			return nil, false
		}
	}
	return segs, true
}

func validSegment(s string) bool {
	return s != "" && s != "null" && s != "undefined"
}

// parseIndex accepts non-negative decimal integers only.
func parseIndex(seg string) (int, bool) {
	if seg == "" || seg[0] == '-' || seg[0] == '+' {
		return 0, false
	}
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
