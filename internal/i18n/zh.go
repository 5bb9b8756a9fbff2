package i18n

var messagesZH = map[string]string{
	// ========== 类型 ==========
	ErrTypeMismatch:       "类型不匹配：期望 %s，实际为 %s",
	ErrCannotInferTypeArg: "无法推断 '%[2]s' 的类型参数 t%[1]d",
	ErrUnknownType:        "未定义的类型 '%s'",
	ErrTypeArity:          "类型 '%s' 需要 %d 个类型参数，实际为 %d 个",
	ErrInvalidOperand:     "运算符 '%s' 不能用于 %s",

	// ========== 名字 ==========
	ErrUnknownVariable: "未定义的变量 '%s'",
	ErrUnknownFunction: "未定义的函数 '%s'",
	ErrUnknownField:    "类型 %s 没有字段 '%s'",
	ErrMissingField:    "%s 缺少字段 '%s'",
	ErrUnknownVariant:  "联合类型 %s 没有变体 '%s'",
	ErrUnknownTrait:    "未定义的 trait '%s'",
	ErrUnknownTraitOp:  "trait '%s' 没有操作 '%s'",
	ErrDuplicateDef:    "'%s' 重复定义",

	// ========== 调用与控制流 ==========
	ErrNotCallable:         "类型为 %s 的值不可调用",
	ErrArgCount:            "'%s' 需要 %d 个参数，实际为 %d 个",
	ErrBreakOutsideLoop:    "'break' 在循环外",
	ErrContinueOutsideLoop: "'continue' 在循环外",
	ErrInvalidCase:         "对 %s 的 switch 中有无效的 case 值",
	ErrNotConstant:         "全局变量 '%s' 的初始值必须是常量",

	// ========== 闭包 ==========
	ErrClosureRegion: "闭包需要 %s 内存，但上下文要求 %s",

	// ========== 约束与特化 ==========
	ErrNoImpl:              "类型 %[2]s 没有 trait '%[1]s' 的实现",
	ErrAmbiguousImpl:       "类型 %[2]s 的 trait '%[1]s' 实现有歧义：%[3]s",
	ErrMissingImplOp:       "'%s' 对 %s 的实现缺少操作 '%s'",
	ErrSpecializationDepth: "'%s' 的特化无法终止（超过深度上限 %d）",
	ErrTypeTooLarge:        "'%s' 的特化无法终止（类型超过 %d 个节点）",
	ErrInternal:            "编译器内部错误：%s",

	// ========== 建议 ==========
	HintAddImpl:          "添加 'impl %s for %s'",
	HintAddConstraint:    "添加要求该 trait 的 'where' 约束",
	HintAnnotateRegion:   "为闭包或其上下文标注 '%s' 内存区域",
	HintExplicitTypeArgs: "显式传入类型参数",
	HintBaseCase:         "确保递归特化能到达基础情形，而不是不断增大类型",
	HintRemoveDuplicate:  "重命名或删除其中一个定义",
	HintLoopOnly:         "'break' 和 'continue' 只能出现在 'loop' 内",

	// ========== 备注 ==========
	NoteRequiredBy: "由 %s 引起",
}
