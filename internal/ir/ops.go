package ir

// ============================================================================
// 运算符
// ============================================================================

// BinaryOp 二元运算符
type BinaryOp int

const (
	// 算术运算
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod

	// 位运算
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr

	// 比较运算
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// 逻辑运算（降低为条件分支，不出现在最终 IR 中）
	OpAnd
	OpOr
)

var binaryOpText = map[BinaryOp]string{
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
	OpBitAnd: "&",
	OpBitOr:  "|",
	OpBitXor: "^",
	OpShl:    "<<",
	OpShr:    ">>",
	OpEq:     "==",
	OpNe:     "!=",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpAnd:    "&&",
	OpOr:     "||",
}

var binaryOpByText = func() map[string]BinaryOp {
	m := make(map[string]BinaryOp, len(binaryOpText))
	for op, text := range binaryOpText {
		m[text] = op
	}
	return m
}()

// ParseBinaryOp 按源码文本查找二元运算符
func ParseBinaryOp(text string) (BinaryOp, bool) {
	op, ok := binaryOpByText[text]
	return op, ok
}

// String 返回运算符文本
func (op BinaryOp) String() string {
	if s, ok := binaryOpText[op]; ok {
		return s
	}
	return "?"
}

// MarshalText 以运算符文本序列化
func (op BinaryOp) MarshalText() ([]byte, error) { return []byte(op.String()), nil }

// IsArith 是否算术运算
func (op BinaryOp) IsArith() bool { return op >= OpAdd && op <= OpMod }

// IsBitwise 是否位运算
func (op BinaryOp) IsBitwise() bool { return op >= OpBitAnd && op <= OpShr }

// IsCompare 是否比较运算
func (op BinaryOp) IsCompare() bool { return op >= OpEq && op <= OpGe }

// IsLogic 是否短路逻辑运算
func (op BinaryOp) IsLogic() bool { return op == OpAnd || op == OpOr }

// UnaryOp 一元运算符
type UnaryOp int

const (
	OpNeg UnaryOp = iota // 取负
	OpNot                // 逻辑非 / 按位取反
)

// ParseUnaryOp 按源码文本查找一元运算符
func ParseUnaryOp(text string) (UnaryOp, bool) {
	switch text {
	case "-":
		return OpNeg, true
	case "!":
		return OpNot, true
	}
	return 0, false
}

// String 返回运算符文本
func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpNot:
		return "!"
	default:
		return "?"
	}
}

// MarshalText 以运算符文本序列化
func (op UnaryOp) MarshalText() ([]byte, error) { return []byte(op.String()), nil }
