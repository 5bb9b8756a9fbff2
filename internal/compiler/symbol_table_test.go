package compiler

import (
	"testing"

	"go.uber.org/multierr"

	"github.com/tangzhangming/polyc/internal/ast"
	"github.com/tangzhangming/polyc/internal/errors"
	"github.com/tangzhangming/polyc/internal/token"
	"github.com/tangzhangming/polyc/internal/types"
)

func declare(t *testing.T, decls ...ast.Decl) (*SymbolTable, error) {
	t.Helper()
	st := NewSymbolTable()
	return st, st.Declare(&ast.Program{Decls: decls})
}

func TestDeclareOrderIndependent(t *testing.T) {
	// List 先引用后声明的 Node
	list := &ast.StructDecl{At: at(1), Name: "List", TypeParams: []string{"t"}, Fields: []*ast.FieldDecl{
		ast.NewField(at(1), "head", named("Node", named("t"))),
	}}
	node := &ast.StructDecl{At: at(2), Name: "Node", TypeParams: []string{"t"}, Fields: []*ast.FieldDecl{
		ast.NewField(at(2), "value", named("t")),
		ast.NewField(at(2), "next", ast.NewArrayType(token.Position{}, named("Node", named("t")), -1)),
	}}
	st, err := declare(t, list, node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := st.Structs["List"].Fields[0].String(); got != "Node<t1>" {
		t.Errorf("List.head: got %s", got)
	}
	if got := st.Structs["Node"].Fields[1].String(); got != "[Node<t1>; _]" {
		t.Errorf("Node.next: got %s", got)
	}
}

func TestDeclareErrors(t *testing.T) {
	eq := ast.NewTrait(at(1), "Eq", "t",
		ast.NewTraitOp(at(1), "eq", []ast.TypeExpr{named("t"), named("t")}, named("Bool")))
	unit := func(line int, name string, result ast.TypeExpr) *ast.FuncDecl {
		return ast.NewFunc(at(line), name, nil, nil, result, ast.NewBlock(token.Position{}, nil))
	}

	tests := []struct {
		name  string
		decls []ast.Decl
		codes []string
	}{
		{
			name:  "duplicate function",
			decls: []ast.Decl{unit(1, "f", nil), unit(2, "f", nil)},
			codes: []string{errors.E0215},
		},
		{
			name: "duplicate type",
			decls: []ast.Decl{
				&ast.StructDecl{At: at(1), Name: "P"},
				&ast.UnionDecl{At: at(2), Name: "P"},
			},
			codes: []string{errors.E0215},
		},
		{
			name:  "unknown type",
			decls: []ast.Decl{unit(1, "f", named("Nope"))},
			codes: []string{errors.E0202},
		},
		{
			name:  "prim with arguments",
			decls: []ast.Decl{unit(1, "f", named("Int", named("Int")))},
			codes: []string{errors.E0203},
		},
		{
			name: "unknown trait in where",
			decls: []ast.Decl{&ast.FuncDecl{
				At: at(1), Name: "f", TypeParams: []string{"a"},
				Where: []*ast.Constraint{ast.NewConstraint(at(1), "a", "Show")},
				Body:  ast.NewBlock(token.Position{}, nil),
			}},
			codes: []string{errors.E0212},
		},
		{
			name:  "impl of unknown trait",
			decls: []ast.Decl{ast.NewBuiltinImpl(at(1), "Show", named("Int"))},
			codes: []string{errors.E0212},
		},
		{
			name: "impl op not in trait",
			decls: []ast.Decl{eq, ast.NewImpl(at(2), "Eq", nil, named("Int"),
				ast.NewFunc(at(3), "ne", nil, nil, named("Bool"), ast.NewBool(at(3), true)))},
			codes: []string{errors.E0213},
		},
		{
			name: "independent errors are all kept",
			decls: []ast.Decl{
				unit(1, "f", named("Nope")),
				unit(2, "g", nil),
				unit(3, "g", nil),
			},
			codes: []string{errors.E0202, errors.E0215},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := declare(t, tt.decls...)
			errs := multierr.Errors(err)
			if len(errs) != len(tt.codes) {
				t.Fatalf("expected %d errors, got %v", len(tt.codes), err)
			}
			for i, code := range tt.codes {
				if !errors.HasCode(errs[i], code) {
					t.Errorf("error %d: expected %s, got %v", i, code, errs[i])
				}
			}
		})
	}
}

func TestImplOpNames(t *testing.T) {
	eq := ast.NewTrait(at(1), "Eq", "t",
		ast.NewTraitOp(at(1), "eq", []ast.TypeExpr{named("t"), named("t")}, named("Bool")))
	op := ast.NewFunc(at(3), "eq", nil,
		[]*ast.Param{param("x", named("Opt", named("a"))), param("y", named("Opt", named("a")))},
		named("Bool"), ast.NewBool(at(3), true))
	impl := ast.NewImpl(at(2), "Eq", []string{"a"}, named("Opt", named("a")), op)
	impl.Where = []*ast.Constraint{ast.NewConstraint(at(2), "a", "Eq")}
	opt := &ast.UnionDecl{At: at(4), Name: "Opt", TypeParams: []string{"t"}, Variants: []*ast.FieldDecl{
		ast.NewField(at(4), "None", nil),
		ast.NewField(at(4), "Some", named("t")),
	}}

	st, err := declare(t, eq, impl, opt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def, ok := st.ImplFunc(op)
	if !ok {
		t.Fatalf("impl op not registered")
	}
	if def.Name != "Eq.eq@Opt<t1>" || def.Impl == nil || !def.Generic() {
		t.Errorf("unexpected impl op %+v", def)
	}
	if len(st.Impls) != 1 || len(st.Impls[0].Where) != 1 || st.Impls[0].Where[0].Param != types.LocalType(0) {
		t.Errorf("impl bounds not elaborated: %+v", st.Impls)
	}
	if _, ok := st.TraitOps["eq"]; !ok {
		t.Errorf("trait op should be in the value namespace")
	}
	if len(st.FuncOrder) != 0 {
		t.Errorf("impl ops are not top level functions")
	}
}
