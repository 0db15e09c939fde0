package decoder

import (
	"bytes"
	"fmt"
	"io"

	"github.com/valyala/fastjson"
)

// JSONLinesDecoder decodes newline-delimited JSON records of the form
//
//	{"type": "jdk.ExecutionSample", "attrs": {"startTime": 1200, ...}}
//
// Blank lines are skipped. Offsets in errors are 1-based line numbers.
type JSONLinesDecoder struct {
	intern *StringIntern
}

// NewJSONLinesDecoder creates a new JSON lines decoder.
func NewJSONLinesDecoder() *JSONLinesDecoder {
	return &JSONLinesDecoder{intern: NewStringIntern()}
}

func (d *JSONLinesDecoder) Name() string {
	return "json_lines"
}

func (d *JSONLinesDecoder) CanDecode(header []byte) bool {
	trimmed := bytes.TrimLeft(header, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func (d *JSONLinesDecoder) Decode(data []byte) (Iterator, error) {
	return &jsonLinesIterator{
		name:   d.Name(),
		data:   data,
		intern: d.intern,
	}, nil
}

type jsonLinesIterator struct {
	name   string
	data   []byte
	pos    int
	line   int64
	parser fastjson.Parser
	intern *StringIntern
	failed error
}

func (it *jsonLinesIterator) Next() (Record, error) {
	if it.failed != nil {
		return Record{}, it.failed
	}

	for it.pos < len(it.data) {
		end := bytes.IndexByte(it.data[it.pos:], '\n')
		var raw []byte
		if end < 0 {
			raw = it.data[it.pos:]
			it.pos = len(it.data)
		} else {
			raw = it.data[it.pos : it.pos+end]
			it.pos += end + 1
		}
		it.line++

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}

		rec, err := it.parseLine(line)
		if err != nil {
			it.failed = newDecodeError(it.name, it.line, err)
			return Record{}, it.failed
		}
		return rec, nil
	}

	return Record{}, io.EOF
}

func (it *jsonLinesIterator) parseLine(line []byte) (Record, error) {
	v, err := it.parser.ParseBytes(line)
	if err != nil {
		return Record{}, err
	}
	if v.Type() != fastjson.TypeObject {
		return Record{}, fmt.Errorf("expected object, got %s", v.Type())
	}

	typ := v.GetStringBytes("type")
	if len(typ) == 0 {
		return Record{}, fmt.Errorf("record without type")
	}

	attrs := make(map[string]any)
	if a := v.Get("attrs"); a != nil {
		obj, err := a.Object()
		if err != nil {
			return Record{}, fmt.Errorf("attrs: %w", err)
		}
		obj.Visit(func(key []byte, val *fastjson.Value) {
			attrs[it.intern.InternBytes(key)] = it.jsonValue(val)
		})
	}

	return Record{Type: it.intern.InternBytes(typ), Attributes: attrs}, nil
}

// jsonValue copies a fastjson value out of the parser's memory.
func (it *jsonLinesIterator) jsonValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	case fastjson.TypeArray:
		arr, _ := v.Array()
		out := make([]any, len(arr))
		for i, e := range arr {
			out[i] = it.jsonValue(e)
		}
		return out
	case fastjson.TypeObject:
		obj, _ := v.Object()
		out := make(map[string]any, obj.Len())
		obj.Visit(func(key []byte, val *fastjson.Value) {
			out[it.intern.InternBytes(key)] = it.jsonValue(val)
		})
		return out
	}
	return nil
}
