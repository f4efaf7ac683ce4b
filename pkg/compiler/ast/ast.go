package ast

import (
	"bytes"
	"strings"

	"github.com/zurustar/necroturtle/pkg/compiler/token"
)

type Node interface {
	TokenLiteral() string
	String() string
	Pos() token.Token
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

// Program is the root node
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) Pos() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return token.Token{}
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
	}
	return out.String()
}

// Statements

// ExpressionStatement
type ExpressionStatement struct {
	Token      token.Token // The first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) Pos() token.Token     { return es.Token }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String() + ";"
	}
	return ""
}

// Declarator is one `name = value` pair of a declaration.
type Declarator struct {
	Name  *Identifier
	Value Expression // nil when no initializer
}

// VarStatement: let/const/var declarations
type VarStatement struct {
	Token        token.Token // let, const or var
	Kind         string
	Declarations []*Declarator
}

func (vs *VarStatement) statementNode()       {}
func (vs *VarStatement) TokenLiteral() string { return vs.Token.Literal }
func (vs *VarStatement) Pos() token.Token     { return vs.Token }
func (vs *VarStatement) String() string {
	parts := make([]string, len(vs.Declarations))
	for i, d := range vs.Declarations {
		parts[i] = d.Name.String()
		if d.Value != nil {
			parts[i] += " = " + d.Value.String()
		}
	}
	return vs.Kind + " " + strings.Join(parts, ", ") + ";"
}

// FunctionDeclaration: function name(params) { body }
type FunctionDeclaration struct {
	Token    token.Token
	Name     *Identifier
	Function *FunctionLiteral
}

func (fd *FunctionDeclaration) statementNode()       {}
func (fd *FunctionDeclaration) TokenLiteral() string { return fd.Token.Literal }
func (fd *FunctionDeclaration) Pos() token.Token     { return fd.Token }
func (fd *FunctionDeclaration) String() string       { return fd.Function.String() }

// BlockStatement
type BlockStatement struct {
	Token      token.Token // {
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) Pos() token.Token     { return bs.Token }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

// EmptyStatement: a lone ;
type EmptyStatement struct {
	Token token.Token
}

func (es *EmptyStatement) statementNode()       {}
func (es *EmptyStatement) TokenLiteral() string { return es.Token.Literal }
func (es *EmptyStatement) Pos() token.Token     { return es.Token }
func (es *EmptyStatement) String() string       { return ";" }

// ReturnStatement
type ReturnStatement struct {
	Token       token.Token
	ReturnValue Expression // nil for a bare return
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) Pos() token.Token     { return rs.Token }
func (rs *ReturnStatement) String() string {
	if rs.ReturnValue == nil {
		return "return;"
	}
	return "return " + rs.ReturnValue.String() + ";"
}

// IfStatement
type IfStatement struct {
	Token       token.Token
	Condition   Expression
	Consequence Statement
	Alternative Statement // nil without else
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) Pos() token.Token     { return is.Token }
func (is *IfStatement) String() string {
	s := "if (" + is.Condition.String() + ") " + is.Consequence.String()
	if is.Alternative != nil {
		s += " else " + is.Alternative.String()
	}
	return s
}

// ForStatement: for (init; condition; update) body
type ForStatement struct {
	Token     token.Token
	Init      Statement  // may be nil
	Condition Expression // may be nil
	Update    Expression // may be nil
	Body      Statement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) Pos() token.Token     { return fs.Token }
func (fs *ForStatement) String() string {
	var init, cond, update string
	if fs.Init != nil {
		init = strings.TrimSuffix(fs.Init.String(), ";")
	}
	if fs.Condition != nil {
		cond = fs.Condition.String()
	}
	if fs.Update != nil {
		update = fs.Update.String()
	}
	return "for (" + init + "; " + cond + "; " + update + ") " + fs.Body.String()
}

// ForOfStatement: for (const x of xs) body
type ForOfStatement struct {
	Token    token.Token
	Kind     string
	Name     *Identifier
	Iterable Expression
	Body     Statement
}

func (fs *ForOfStatement) statementNode()       {}
func (fs *ForOfStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForOfStatement) Pos() token.Token     { return fs.Token }
func (fs *ForOfStatement) String() string {
	return "for (" + fs.Kind + " " + fs.Name.String() + " of " + fs.Iterable.String() + ") " + fs.Body.String()
}

// WhileStatement
type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      Statement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) Pos() token.Token     { return ws.Token }
func (ws *WhileStatement) String() string {
	return "while (" + ws.Condition.String() + ") " + ws.Body.String()
}

// DoWhileStatement
type DoWhileStatement struct {
	Token     token.Token
	Body      Statement
	Condition Expression
}

func (ds *DoWhileStatement) statementNode()       {}
func (ds *DoWhileStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DoWhileStatement) Pos() token.Token     { return ds.Token }
func (ds *DoWhileStatement) String() string {
	return "do " + ds.Body.String() + " while (" + ds.Condition.String() + ");"
}

// BreakStatement
type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BreakStatement) Pos() token.Token     { return bs.Token }
func (bs *BreakStatement) String() string       { return "break;" }

// ContinueStatement
type ContinueStatement struct {
	Token token.Token
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *ContinueStatement) Pos() token.Token     { return cs.Token }
func (cs *ContinueStatement) String() string       { return "continue;" }

// SwitchStatement
type SwitchStatement struct {
	Token        token.Token
	Discriminant Expression
	Cases        []*CaseClause
}

func (ss *SwitchStatement) statementNode()       {}
func (ss *SwitchStatement) TokenLiteral() string { return ss.Token.Literal }
func (ss *SwitchStatement) Pos() token.Token     { return ss.Token }
func (ss *SwitchStatement) String() string {
	var out bytes.Buffer
	out.WriteString("switch (" + ss.Discriminant.String() + ") { ")
	for _, c := range ss.Cases {
		if c.Test == nil {
			out.WriteString("default: ")
		} else {
			out.WriteString("case " + c.Test.String() + ": ")
		}
		for _, s := range c.Body {
			out.WriteString(s.String() + " ")
		}
	}
	out.WriteString("}")
	return out.String()
}

// CaseClause is one case (Test != nil) or the default clause.
type CaseClause struct {
	Token token.Token
	Test  Expression
	Body  []Statement
}

// Expressions

// Identifier
type Identifier struct {
	Token token.Token // token.IDENT
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) Pos() token.Token     { return i.Token }
func (i *Identifier) String() string       { return i.Value }

// NumberLiteral
type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (nl *NumberLiteral) expressionNode()      {}
func (nl *NumberLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NumberLiteral) Pos() token.Token     { return nl.Token }
func (nl *NumberLiteral) String() string       { return nl.Token.Literal }

// StringLiteral
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) Pos() token.Token     { return sl.Token }
func (sl *StringLiteral) String() string       { return "'" + sl.Value + "'" }

// BooleanLiteral
type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) Pos() token.Token     { return bl.Token }
func (bl *BooleanLiteral) String() string       { return bl.Token.Literal }

// NullLiteral covers both null and undefined.
type NullLiteral struct {
	Token token.Token
}

func (nl *NullLiteral) expressionNode()      {}
func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) Pos() token.Token     { return nl.Token }
func (nl *NullLiteral) String() string       { return nl.Token.Literal }

// ArrayLiteral
type ArrayLiteral struct {
	Token    token.Token // [
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) Pos() token.Token     { return al.Token }
func (al *ArrayLiteral) String() string       { return "[" + joinExpressions(al.Elements) + "]" }

// ObjectLiteral
type ObjectLiteral struct {
	Token  token.Token // {
	Keys   []string
	Values []Expression
}

func (ol *ObjectLiteral) expressionNode()      {}
func (ol *ObjectLiteral) TokenLiteral() string { return ol.Token.Literal }
func (ol *ObjectLiteral) Pos() token.Token     { return ol.Token }
func (ol *ObjectLiteral) String() string {
	parts := make([]string, len(ol.Keys))
	for i, k := range ol.Keys {
		parts[i] = k + ": " + ol.Values[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FunctionLiteral covers function expressions, declarations and arrows.
// An arrow with an expression body has Body == nil and ExprBody set.
type FunctionLiteral struct {
	Token      token.Token
	Name       string
	Parameters []*Identifier
	Body       *BlockStatement
	ExprBody   Expression
	Arrow      bool
}

func (fl *FunctionLiteral) expressionNode()      {}
func (fl *FunctionLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FunctionLiteral) Pos() token.Token     { return fl.Token }
func (fl *FunctionLiteral) String() string {
	params := make([]string, len(fl.Parameters))
	for i, p := range fl.Parameters {
		params[i] = p.String()
	}
	var body string
	if fl.ExprBody != nil {
		body = fl.ExprBody.String()
	} else if fl.Body != nil {
		body = fl.Body.String()
	}
	if fl.Arrow {
		return "(" + strings.Join(params, ", ") + ") => " + body
	}
	return "function " + fl.Name + "(" + strings.Join(params, ", ") + ") " + body
}

// PrefixExpression: -x, !x, typeof x
type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) Pos() token.Token     { return pe.Token }
func (pe *PrefixExpression) String() string {
	if pe.Operator == "typeof" {
		return "(typeof " + pe.Right.String() + ")"
	}
	return "(" + pe.Operator + pe.Right.String() + ")"
}

// InfixExpression: binary operators, including && and ||
type InfixExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) Pos() token.Token     { return ie.Token }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// ConditionalExpression: test ? consequent : alternate
type ConditionalExpression struct {
	Token       token.Token
	Test        Expression
	Consequence Expression
	Alternative Expression
}

func (ce *ConditionalExpression) expressionNode()      {}
func (ce *ConditionalExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *ConditionalExpression) Pos() token.Token     { return ce.Token }
func (ce *ConditionalExpression) String() string {
	return "(" + ce.Test.String() + " ? " + ce.Consequence.String() + " : " + ce.Alternative.String() + ")"
}

// AssignExpression: target op= value
type AssignExpression struct {
	Token    token.Token
	Target   Expression // Identifier, MemberExpression or IndexExpression
	Operator string     // =, +=, -=, *=, /=, %=
	Value    Expression
}

func (ae *AssignExpression) expressionNode()      {}
func (ae *AssignExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AssignExpression) Pos() token.Token     { return ae.Token }
func (ae *AssignExpression) String() string {
	return ae.Target.String() + " " + ae.Operator + " " + ae.Value.String()
}

// UpdateExpression: ++x, x++, --x, x--
type UpdateExpression struct {
	Token    token.Token
	Operator string
	Prefix   bool
	Target   Expression
}

func (ue *UpdateExpression) expressionNode()      {}
func (ue *UpdateExpression) TokenLiteral() string { return ue.Token.Literal }
func (ue *UpdateExpression) Pos() token.Token     { return ue.Token }
func (ue *UpdateExpression) String() string {
	if ue.Prefix {
		return ue.Operator + ue.Target.String()
	}
	return ue.Target.String() + ue.Operator
}

// CallExpression
type CallExpression struct {
	Token     token.Token // (
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) Pos() token.Token     { return ce.Token }
func (ce *CallExpression) String() string {
	return ce.Function.String() + "(" + joinExpressions(ce.Arguments) + ")"
}

// MemberExpression: object.property
type MemberExpression struct {
	Token    token.Token // .
	Object   Expression
	Property string
}

func (me *MemberExpression) expressionNode()      {}
func (me *MemberExpression) TokenLiteral() string { return me.Token.Literal }
func (me *MemberExpression) Pos() token.Token     { return me.Token }
func (me *MemberExpression) String() string       { return me.Object.String() + "." + me.Property }

// IndexExpression: left[index]
type IndexExpression struct {
	Token token.Token // [
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) Pos() token.Token     { return ie.Token }
func (ie *IndexExpression) String() string {
	return "(" + ie.Left.String() + "[" + ie.Index.String() + "])"
}

func joinExpressions(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
