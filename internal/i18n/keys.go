package i18n

// 消息 ID
const (
	// ========== 类型 ==========
	ErrTypeMismatch       = "type.mismatch"
	ErrCannotInferTypeArg = "type.cannot_infer"
	ErrUnknownType        = "type.unknown"
	ErrTypeArity          = "type.arity"
	ErrInvalidOperand     = "type.invalid_operand"

	// ========== 名字 ==========
	ErrUnknownVariable = "name.unknown_variable"
	ErrUnknownFunction = "name.unknown_function"
	ErrUnknownField    = "name.unknown_field"
	ErrMissingField    = "name.missing_field"
	ErrUnknownVariant  = "name.unknown_variant"
	ErrUnknownTrait    = "name.unknown_trait"
	ErrUnknownTraitOp  = "name.unknown_trait_op"
	ErrDuplicateDef    = "name.duplicate"

	// ========== 调用与控制流 ==========
	ErrNotCallable         = "call.not_callable"
	ErrArgCount            = "call.arg_count"
	ErrBreakOutsideLoop    = "flow.break_outside_loop"
	ErrContinueOutsideLoop = "flow.continue_outside_loop"
	ErrInvalidCase         = "flow.invalid_case"
	ErrNotConstant         = "global.not_constant"

	// ========== 闭包 ==========
	ErrClosureRegion = "closure.region_mismatch"

	// ========== 约束与特化 ==========
	ErrNoImpl              = "impl.none"
	ErrAmbiguousImpl       = "impl.ambiguous"
	ErrMissingImplOp       = "impl.missing_op"
	ErrSpecializationDepth = "spec.depth"
	ErrTypeTooLarge        = "spec.size"
	ErrInternal            = "internal"

	// ========== 建议 ==========
	HintAddImpl          = "hint.add_impl"
	HintAddConstraint    = "hint.add_constraint"
	HintAnnotateRegion   = "hint.annotate_region"
	HintExplicitTypeArgs = "hint.explicit_type_args"
	HintBaseCase         = "hint.base_case"
	HintRemoveDuplicate  = "hint.remove_duplicate"
	HintLoopOnly         = "hint.loop_only"

	// ========== 备注 ==========
	NoteRequiredBy = "note.required_by"
)
