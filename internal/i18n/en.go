package i18n

var messagesEN = map[string]string{
	// ========== Types ==========
	ErrTypeMismatch:       "type mismatch: expected %s, found %s",
	ErrCannotInferTypeArg: "cannot infer type argument t%d of '%s'",
	ErrUnknownType:        "unknown type '%s'",
	ErrTypeArity:          "type '%s' expects %d type arguments, found %d",
	ErrInvalidOperand:     "operator '%s' cannot be applied to %s",

	// ========== Names ==========
	ErrUnknownVariable: "undefined variable '%s'",
	ErrUnknownFunction: "undefined function '%s'",
	ErrUnknownField:    "type %s has no field '%s'",
	ErrMissingField:    "missing field '%[2]s' in %[1]s",
	ErrUnknownVariant:  "union %s has no variant '%s'",
	ErrUnknownTrait:    "undefined trait '%s'",
	ErrUnknownTraitOp:  "trait '%s' has no operation '%s'",
	ErrDuplicateDef:    "'%s' is already defined",

	// ========== Calls and control flow ==========
	ErrNotCallable:         "value of type %s is not callable",
	ErrArgCount:            "'%s' expects %d arguments, found %d",
	ErrBreakOutsideLoop:    "'break' outside of loop",
	ErrContinueOutsideLoop: "'continue' outside of loop",
	ErrInvalidCase:         "invalid case value for a switch over %s",
	ErrNotConstant:         "initializer of global '%s' must be a constant",

	// ========== Closures ==========
	ErrClosureRegion: "closure needs %s memory but its context expects %s",

	// ========== Constraints and specialization ==========
	ErrNoImpl:              "no implementation of trait '%s' for type %s",
	ErrAmbiguousImpl:       "ambiguous implementations of trait '%s' for type %s: %s",
	ErrMissingImplOp:       "implementation of '%s' for %s is missing operation '%s'",
	ErrSpecializationDepth: "specialization of '%s' did not terminate (depth limit %d exceeded)",
	ErrTypeTooLarge:        "specialization of '%s' did not terminate (type grew past %d nodes)",
	ErrInternal:            "internal compiler error: %s",

	// ========== Hints ==========
	HintAddImpl:          "add 'impl %s for %s'",
	HintAddConstraint:    "add a 'where' constraint requiring the trait",
	HintAnnotateRegion:   "annotate the closure or its context with the '%s' region",
	HintExplicitTypeArgs: "pass the type arguments explicitly",
	HintBaseCase:         "make sure recursive specialization reaches a base case instead of growing the type",
	HintRemoveDuplicate:  "rename or remove one of the definitions",
	HintLoopOnly:         "'break' and 'continue' may only appear inside 'loop'",

	// ========== Notes ==========
	NoteRequiredBy: "required by %s",
}
