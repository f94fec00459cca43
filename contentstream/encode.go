package contentstream

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Encode serializes operations, one per line.
func Encode(ops []Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		for i, operand := range op.Operands {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeOperand(&buf, operand)
		}
		if len(op.Operands) > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// FormatNumber writes v with at most four decimals and never in exponent
// form, which content streams do not accept.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	v = math.Round(v*1e4) / 1e4
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeOperand(buf *bytes.Buffer, op Operand) {
	switch v := op.(type) {
	case NumberOperand:
		buf.WriteString(FormatNumber(v.Value))
	case NameOperand:
		buf.WriteByte('/')
		buf.WriteString(escapeName(v.Value))
	case StringOperand:
		if v.Hex {
			fmt.Fprintf(buf, "<%X>", v.Value)
			return
		}
		writeLiteral(buf, v.Value)
	case ArrayOperand:
		buf.WriteByte('[')
		for i, it := range v.Values {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeOperand(buf, it)
		}
		buf.WriteByte(']')
	case DictOperand:
		buf.WriteString("<<")
		keys := make([]string, 0, len(v.Values))
		for k := range v.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf.WriteString("/" + escapeName(k) + " ")
			writeOperand(buf, v.Values[k])
		}
		buf.WriteString(">>")
	default:
		buf.WriteString("null")
	}
}

func escapeName(n string) string {
	var b bytes.Buffer
	for i := 0; i < len(n); i++ {
		ch := n[i]
		if ch < '!' || ch > '~' || isDelimiter(ch) || ch == '#' {
			fmt.Fprintf(&b, "#%02X", ch)
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func writeLiteral(b *bytes.Buffer, raw []byte) {
	b.WriteByte('(')
	for _, ch := range raw {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
}
