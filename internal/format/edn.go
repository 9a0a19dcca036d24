package format

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// WriteEDN writes v as EDN: maps with keyword keys, vectors, strings,
// numbers, booleans and nil. Values pass through their JSON encoding first,
// so json tags and custom marshalers decide the shape.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return err
	}
	var x any
	if err := sonic.ConfigStd.Unmarshal(b, &x); err != nil {
		return err
	}
	e := ednWriter{pretty: pretty}
	e.value(x, 0)
	e.buf.WriteByte('\n')
	_, err = w.Write(e.buf.Bytes())
	return err
}

type ednWriter struct {
	buf    bytes.Buffer
	pretty bool
}

func (e *ednWriter) value(v any, depth int) {
	switch t := v.(type) {
	case nil:
		e.buf.WriteString("nil")
	case bool:
		e.buf.WriteString(strconv.FormatBool(t))
	case string:
		e.buf.WriteString(strconv.Quote(t))
	case float64:
		e.number(t)
	case []any:
		e.seq(len(t), depth, func(i int) { e.value(t[i], depth+1) }, '[', ']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.seq(len(keys), depth, func(i int) {
			e.buf.WriteString(keyword(keys[i]))
			e.buf.WriteByte(' ')
			e.value(t[keys[i]], depth+1)
		}, '{', '}')
	default:
		e.buf.WriteString(strconv.Quote(fmt.Sprint(v)))
	}
}

// number prints integral values without a fraction; board positions are
// usually whole numbers.
func (e *ednWriter) number(f float64) {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		e.buf.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	e.buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
}

func (e *ednWriter) seq(n, depth int, item func(int), open, close byte) {
	e.buf.WriteByte(open)
	if n == 0 {
		e.buf.WriteByte(close)
		return
	}
	for i := 0; i < n; i++ {
		switch {
		case e.pretty:
			e.buf.WriteByte('\n')
			e.buf.WriteString(strings.Repeat("  ", depth+1))
		case i > 0:
			e.buf.WriteByte(' ')
		}
		item(i)
	}
	if e.pretty {
		e.buf.WriteByte('\n')
		e.buf.WriteString(strings.Repeat("  ", depth))
	}
	e.buf.WriteByte(close)
}

func keyword(k string) string {
	k = strings.TrimSpace(k)
	k = strings.ReplaceAll(k, " ", "-")
	return ":" + k
}
