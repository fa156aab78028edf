package executor

import (
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	language "github.com/hanpama/gqlengine/internal/language"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Path []PathElement

// PathElement is a response key (string) or a list index (int).
type PathElement any

func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteString("[" + strconv.Itoa(v) + "]")
		}
	}
	return b.String()
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string              `json:"message"`
	Locations  []language.Location `json:"locations,omitempty"`
	Path       Path                `json:"path,omitempty"`
	Extensions map[string]any      `json:"extensions,omitempty"`
}

func (e *GraphQLError) Error() string {
	return e.Message
}

// Result is the outcome of one request. Data is written only when execution
// started; it is nil when null propagation reached the root.
type Result struct {
	Data    *ResultMap
	Errors  []*GraphQLError
	HasData bool
}

// MarshalJSON omits data when the request failed before execution and omits
// errors when there are none.
func (r *Result) MarshalJSON() ([]byte, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)

	stream.WriteObjectStart()
	more := false
	if r.HasData {
		stream.WriteObjectField("data")
		if r.Data == nil {
			stream.WriteNil()
		} else {
			r.Data.encode(stream)
		}
		more = true
	}
	if len(r.Errors) > 0 {
		if more {
			stream.WriteMore()
		}
		stream.WriteObjectField("errors")
		stream.WriteVal(r.Errors)
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// ResultMap is a response object that keeps its keys in selection order.
type ResultMap struct {
	keys   []string
	values map[string]any
}

func NewResultMap(size int) *ResultMap {
	return &ResultMap{keys: make([]string, 0, size), values: make(map[string]any, size)}
}

func (m *ResultMap) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *ResultMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *ResultMap) Keys() []string { return m.keys }

func (m *ResultMap) Len() int { return len(m.keys) }

// ToMap converts the response tree into plain maps and slices.
func (m *ResultMap) ToMap() map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = plain(m.values[k])
	}
	return out
}

func plain(v any) any {
	switch vv := v.(type) {
	case *ResultMap:
		if vv == nil {
			return nil
		}
		return vv.ToMap()
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = plain(item)
		}
		return out
	}
	return v
}

func (m *ResultMap) MarshalJSON() ([]byte, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)
	m.encode(stream)
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

func (m *ResultMap) encode(stream *jsoniter.Stream) {
	stream.WriteObjectStart()
	for i, k := range m.keys {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(k)
		encodeValue(stream, m.values[k])
	}
	stream.WriteObjectEnd()
}

func encodeValue(stream *jsoniter.Stream, v any) {
	switch vv := v.(type) {
	case nil:
		stream.WriteNil()
	case *ResultMap:
		if vv == nil {
			stream.WriteNil()
			return
		}
		vv.encode(stream)
	case []any:
		stream.WriteArrayStart()
		for i, item := range vv {
			if i > 0 {
				stream.WriteMore()
			}
			encodeValue(stream, item)
		}
		stream.WriteArrayEnd()
	default:
		stream.WriteVal(v)
	}
}
