package ir

// ============================================================================
// 遍历
// ============================================================================

// WalkInstrs 先序遍历指令（包括嵌套块中的指令）
func WalkInstrs(body Body, fn func(Instr)) {
	for _, in := range body {
		fn(in)
		switch v := in.(type) {
		case *Block:
			WalkInstrs(v.Body, fn)
		case *If:
			WalkInstrs(v.Then, fn)
			WalkInstrs(v.Else, fn)
		case *Switch:
			for _, c := range v.Cases {
				WalkInstrs(c.Body, fn)
			}
			WalkInstrs(v.Default, fn)
		case *Loop:
			WalkInstrs(v.Body, fn)
		}
	}
}

// WalkOps 按出现顺序遍历所有运算
func WalkOps(body Body, fn func(Op)) {
	WalkInstrs(body, func(in Instr) {
		switch v := in.(type) {
		case *Assign:
			fn(v.Op)
		case *Do:
			fn(v.Op)
		}
	})
}

// WalkRefs 按出现顺序遍历所有变量引用（不进入 VarRef.Outer）
func WalkRefs(body Body, fn func(*VarRef)) {
	visit := func(v Value) {
		if ref, ok := v.(*VarRef); ok && ref != nil {
			fn(ref)
		}
	}
	visitAll := func(vs []Value) {
		for _, v := range vs {
			visit(v)
		}
	}
	visitOp := func(op Op) {
		switch o := op.(type) {
		case *Load:
			visit(o.Src)
		case *Unary:
			visit(o.X)
		case *Binary:
			visit(o.L)
			visit(o.R)
		case *BuiltinCall:
			visitAll(o.Args)
		case *Call:
			visitAll(o.Args)
		case *CallClosure:
			visit(o.Closure)
			visitAll(o.Args)
		case *LoadField:
			visit(o.X)
		case *MakeAggregate:
			visitAll(o.Fields)
		case *Alloc:
			visitAll(o.Elems)
		case *MakeClosure:
			visitAll(o.Captures)
		}
	}
	WalkInstrs(body, func(in Instr) {
		switch v := in.(type) {
		case *Assign:
			visitOp(v.Op)
			fn(v.Dest)
		case *Do:
			visitOp(v.Op)
		case *Return:
			if v.Value != nil {
				visit(v.Value)
			}
		case *If:
			visit(v.Cond)
		case *Switch:
			visit(v.Subject)
		}
	})
}
