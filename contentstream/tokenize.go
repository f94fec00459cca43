package contentstream

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
)

func isWhite(ch byte) bool {
	switch ch {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(ch byte) bool {
	switch ch {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

type lexer struct {
	src []byte
	pos int
}

func (l *lexer) skip() {
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		if isWhite(ch) {
			l.pos++
			continue
		}
		if ch == '%' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// next returns either an operand or an operator keyword.
func (l *lexer) next() (Operand, string, error) {
	l.skip()
	if l.pos >= len(l.src) {
		return nil, "", nil
	}
	ch := l.src[l.pos]
	switch {
	case ch == '/':
		l.pos++
		return NameOperand{Value: l.name()}, "", nil
	case ch == '(':
		s, err := l.literal()
		return StringOperand{Value: s}, "", err
	case ch == '<' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '<':
		l.pos += 2
		d, err := l.dict()
		return d, "", err
	case ch == '<':
		s, err := l.hexString()
		return StringOperand{Value: s, Hex: true}, "", err
	case ch == '[':
		l.pos++
		a, err := l.array()
		return a, "", err
	case ch == '+' || ch == '-' || ch == '.' || (ch >= '0' && ch <= '9'):
		start := l.pos
		l.pos++
		for l.pos < len(l.src) && !isWhite(l.src[l.pos]) && !isDelimiter(l.src[l.pos]) {
			l.pos++
		}
		v, err := strconv.ParseFloat(string(l.src[start:l.pos]), 64)
		if err != nil {
			return nil, "", fmt.Errorf("contentstream: bad number %q at %d", l.src[start:l.pos], start)
		}
		return NumberOperand{Value: v}, "", nil
	case isDelimiter(ch):
		return nil, "", fmt.Errorf("contentstream: unexpected %q at %d", ch, l.pos)
	}
	start := l.pos
	for l.pos < len(l.src) && !isWhite(l.src[l.pos]) && !isDelimiter(l.src[l.pos]) {
		l.pos++
	}
	return nil, string(l.src[start:l.pos]), nil
}

func (l *lexer) name() string {
	var b bytes.Buffer
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		if isWhite(ch) || isDelimiter(ch) {
			break
		}
		if ch == '#' && l.pos+2 < len(l.src) {
			if v, err := hex.DecodeString(string(l.src[l.pos+1 : l.pos+3])); err == nil {
				b.Write(v)
				l.pos += 3
				continue
			}
		}
		b.WriteByte(ch)
		l.pos++
	}
	return b.String()
}

func (l *lexer) literal() ([]byte, error) {
	start := l.pos
	l.pos++
	depth := 1
	var b bytes.Buffer
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		l.pos++
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return b.Bytes(), nil
			}
		case '\\':
			if l.pos >= len(l.src) {
				continue
			}
			esc := l.src[l.pos]
			l.pos++
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '\r':
				if l.pos < len(l.src) && l.src[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if esc >= '0' && esc <= '7' {
					v := int(esc - '0')
					for i := 0; i < 2 && l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '7'; i++ {
						v = v*8 + int(l.src[l.pos]-'0')
						l.pos++
					}
					b.WriteByte(byte(v))
					continue
				}
				b.WriteByte(esc)
			}
			continue
		}
		b.WriteByte(ch)
	}
	return nil, fmt.Errorf("contentstream: unterminated string at %d", start)
}

func (l *lexer) hexString() ([]byte, error) {
	start := l.pos
	l.pos++
	var digits []byte
	for l.pos < len(l.src) && l.src[l.pos] != '>' {
		if !isWhite(l.src[l.pos]) {
			digits = append(digits, l.src[l.pos])
		}
		l.pos++
	}
	if l.pos >= len(l.src) {
		return nil, fmt.Errorf("contentstream: unterminated hex string at %d", start)
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out, err := hex.DecodeString(string(digits))
	if err != nil {
		return nil, fmt.Errorf("contentstream: bad hex string at %d: %w", start, err)
	}
	return out, nil
}

func (l *lexer) array() (Operand, error) {
	var vals []Operand
	for {
		l.skip()
		if l.pos >= len(l.src) {
			return nil, fmt.Errorf("contentstream: unterminated array")
		}
		if l.src[l.pos] == ']' {
			l.pos++
			return ArrayOperand{Values: vals}, nil
		}
		v, kw, err := l.next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("contentstream: keyword %q inside array", kw)
		}
		vals = append(vals, v)
	}
}

func (l *lexer) dict() (Operand, error) {
	vals := make(map[string]Operand)
	for {
		l.skip()
		if l.pos+1 < len(l.src) && l.src[l.pos] == '>' && l.src[l.pos+1] == '>' {
			l.pos += 2
			return DictOperand{Values: vals}, nil
		}
		k, _, err := l.next()
		if err != nil {
			return nil, err
		}
		key, ok := k.(NameOperand)
		if !ok {
			return nil, fmt.Errorf("contentstream: dictionary key is not a name")
		}
		v, kw, err := l.next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			v = NameOperand{Value: kw}
		}
		vals[key.Value] = v
	}
}

// Parse splits a content stream into operations. Inline image data is
// skipped; the BI operation is kept without operands.
func Parse(src []byte) ([]Operation, error) {
	l := &lexer{src: src}
	var ops []Operation
	var stack []Operand
	for {
		v, kw, err := l.next()
		if err != nil {
			return nil, err
		}
		if v != nil {
			stack = append(stack, v)
			continue
		}
		if kw == "" {
			break
		}
		if kw == "BI" {
			idx := bytes.Index(src[l.pos:], []byte("EI"))
			if idx < 0 {
				return nil, fmt.Errorf("contentstream: unterminated inline image")
			}
			l.pos += idx + 2
			ops = append(ops, Operation{Operator: "BI"})
			stack = stack[:0]
			continue
		}
		ops = append(ops, Operation{Operator: kw, Operands: append([]Operand(nil), stack...)})
		stack = stack[:0]
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("dangling operands: %d", len(stack))
	}
	return ops, nil
}
