package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is a tagged representation of an arbitrary JSON document node.
// A nil *Value compares as an empty object.
type Value struct {
	Kind Kind
	Bool bool
	Num  float64
	Str  string
	Arr  []*Value
	Obj  map[string]*Value
}

func Null() *Value          { return &Value{Kind: KindNull} }
func Boolean(b bool) *Value { return &Value{Kind: KindBool, Bool: b} }
func Number(n float64) *Value {
	return &Value{Kind: KindNumber, Num: n}
}
func String(s string) *Value { return &Value{Kind: KindString, Str: s} }
func Array(items ...*Value) *Value {
	return &Value{Kind: KindArray, Arr: items}
}
func Object() *Value {
	return &Value{Kind: KindObject, Obj: make(map[string]*Value)}
}

// ParseDocument decodes raw JSON into a Value tree. Numbers are kept as
// float64, matching encoding/json defaults.
func ParseDocument(raw []byte) (*Value, error) {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return fromInterface(decoded), nil
}

func fromInterface(v interface{}) *Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Boolean(t)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []interface{}:
		arr := make([]*Value, len(t))
		for i, item := range t {
			arr[i] = fromInterface(item)
		}
		return &Value{Kind: KindArray, Arr: arr}
	case map[string]interface{}:
		obj := make(map[string]*Value, len(t))
		for k, item := range t {
			obj[k] = fromInterface(item)
		}
		return &Value{Kind: KindObject, Obj: obj}
	}
	return Null()
}

// Normalize maps nil to an empty object so absent documents diff cleanly.
func (v *Value) Normalize() *Value {
	if v == nil {
		return Object()
	}
	return v
}

func (v *Value) ToInterface() interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindArray:
		arr := make([]interface{}, len(v.Arr))
		for i, item := range v.Arr {
			arr[i] = item.ToInterface()
		}
		return arr
	case KindObject:
		obj := make(map[string]interface{}, len(v.Obj))
		for k, item := range v.Obj {
			obj[k] = item.ToInterface()
		}
		return obj
	}
	return nil
}

func (v *Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToInterface())
}

func (v *Value) UnmarshalJSON(raw []byte) error {
	parsed, err := ParseDocument(raw)
	if err != nil {
		return err
	}
	*v = *parsed
	return nil
}

// Serialize renders the value as compact JSON.
func (v *Value) Serialize() string {
	raw, err := json.Marshal(v.ToInterface())
	if err != nil {
		return "null"
	}
	return string(raw)
}

// Equal reports deep structural equality. Object key order is irrelevant,
// array order is not.
func (v *Value) Equal(other *Value) bool {
	a, b := v.Normalize(), other.Normalize()
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindNumber:
		return a.Num == b.Num
	case KindString:
		return a.Str == b.Str
	case KindArray:
		if len(a.Arr) != len(b.Arr) {
			return false
		}
		for i := range a.Arr {
			if !a.Arr[i].Equal(b.Arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.Obj) != len(b.Obj) {
			return false
		}
		for k, av := range a.Obj {
			bv, ok := b.Obj[k]
			if !ok || !av.Equal(bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns an independent deep copy.
func (v *Value) Clone() *Value {
	if v == nil {
		return Object()
	}
	out := &Value{Kind: v.Kind, Bool: v.Bool, Num: v.Num, Str: v.Str}
	switch v.Kind {
	case KindArray:
		out.Arr = make([]*Value, len(v.Arr))
		for i, item := range v.Arr {
			out.Arr[i] = item.Clone()
		}
	case KindObject:
		out.Obj = make(map[string]*Value, len(v.Obj))
		for k, item := range v.Obj {
			out.Obj[k] = item.Clone()
		}
	}
	return out
}

// SortedKeys returns object keys in canonical order so diff output is
// stable across runs regardless of map iteration order.
func (v *Value) SortedKeys() []string {
	if v == nil || v.Kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.Obj))
	for k := range v.Obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup walks a path from this value, returning nil when any segment is
// missing.
func (v *Value) Lookup(path Path) *Value {
	cur := v.Normalize()
	for _, seg := range path {
		if cur == nil {
			return nil
		}
		if seg.IsIndex {
			if cur.Kind != KindArray || seg.Index < 0 || seg.Index >= len(cur.Arr) {
				return nil
			}
			cur = cur.Arr[seg.Index]
		} else {
			if cur.Kind != KindObject {
				return nil
			}
			cur = cur.Obj[seg.Key]
		}
	}
	return cur
}

// PathSegment is one step of a document path: an object key or an array
// index. It JSON-encodes as a bare string or number so paths stay readable
// in persisted patch lists.
type PathSegment struct {
	Key     string
	Index   int
	IsIndex bool
}

func KeySegment(key string) PathSegment  { return PathSegment{Key: key} }
func IndexSegment(i int) PathSegment     { return PathSegment{Index: i, IsIndex: true} }
func (s PathSegment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

func (s PathSegment) MarshalJSON() ([]byte, error) {
	if s.IsIndex {
		return json.Marshal(s.Index)
	}
	return json.Marshal(s.Key)
}

func (s *PathSegment) UnmarshalJSON(raw []byte) error {
	var key string
	if err := json.Unmarshal(raw, &key); err == nil {
		*s = PathSegment{Key: key}
		return nil
	}
	var idx int
	if err := json.Unmarshal(raw, &idx); err != nil {
		return fmt.Errorf("path segment must be a string or integer: %w", err)
	}
	*s = PathSegment{Index: idx, IsIndex: true}
	return nil
}

// Path addresses a node in a document from the root.
type Path []PathSegment

func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.String()
	}
	return "/" + strings.Join(parts, "/")
}

func (p Path) Child(seg PathSegment) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, seg)
}

func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasIndex reports whether any segment addresses an array element.
func (p Path) HasIndex() bool {
	for _, seg := range p {
		if seg.IsIndex {
			return true
		}
	}
	return false
}

// Parent returns the path without its last segment, and the last segment.
func (p Path) Parent() (Path, PathSegment, bool) {
	if len(p) == 0 {
		return nil, PathSegment{}, false
	}
	return p[:len(p)-1], p[len(p)-1], true
}
