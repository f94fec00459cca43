package contentstream

// Operation is one content stream operator with its operands.
type Operation struct {
	Operator string
	Operands []Operand
}

// Op builds an operation.
func Op(operator string, operands ...Operand) Operation {
	return Operation{Operator: operator, Operands: operands}
}

// Operand is a type-safe operand value.
type Operand interface {
	operand()
	Type() string
}

type NumberOperand struct{ Value float64 }

func (NumberOperand) operand()     {}
func (NumberOperand) Type() string { return "number" }

type NameOperand struct{ Value string }

func (NameOperand) operand()     {}
func (NameOperand) Type() string { return "name" }

// StringOperand holds raw string bytes. Hex selects <..> encoding, which
// keeps two-byte glyph codes readable.
type StringOperand struct {
	Value []byte
	Hex   bool
}

func (StringOperand) operand()     {}
func (StringOperand) Type() string { return "string" }

type ArrayOperand struct{ Values []Operand }

func (ArrayOperand) operand()     {}
func (ArrayOperand) Type() string { return "array" }

type DictOperand struct{ Values map[string]Operand }

func (DictOperand) operand()     {}
func (DictOperand) Type() string { return "dict" }

func Num(v float64) Operand { return NumberOperand{Value: v} }

func Name(v string) Operand { return NameOperand{Value: v} }

func Nums(vs ...float64) []Operand {
	out := make([]Operand, len(vs))
	for i, v := range vs {
		out[i] = NumberOperand{Value: v}
	}
	return out
}

// Float returns the numeric value of op, or 0.
func Float(op Operand) float64 {
	if n, ok := op.(NumberOperand); ok {
		return n.Value
	}
	return 0
}
