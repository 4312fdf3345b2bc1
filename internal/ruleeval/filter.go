package ruleeval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// The row-filter language used by count_where/none_match:
//
//	expr    := or
//	or      := and (("or" | "||") and)*
//	and     := not (("and" | "&&") not)*
//	not     := "not" not | cmp
//	cmp     := operand (("==" | "!=" | ">" | ">=" | "<" | "<=") operand)?
//	operand := NUMBER | STRING | "True" | "False" | "None" | IDENT | "(" expr ")"
//
// Identifiers may be dotted (Details.General.LastSignInDays) and are the
// only names the evaluator can touch: they resolve against the row via
// rowGet. There is no function-call syntax and no access to anything but
// the row, which is what makes the language safe to run on untrusted
// rule packs.
//
// EvalFilter is fail-closed: any lex, parse or evaluation error makes
// the row not match.
func EvalFilter(row map[string]any, expr string) bool {
	if strings.TrimSpace(expr) == "" {
		return false
	}
	toks, err := lexFilter(expr)
	if err != nil {
		return false
	}
	p := &filterParser{toks: toks}
	node, err := p.parseExpr()
	if err != nil || !p.atEnd() {
		return false
	}
	v, err := node.eval(row)
	if err != nil {
		return false
	}
	return truthy(v)
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokTrue
	tokFalse
	tokNone
	tokAnd
	tokOr
	tokNot
	tokEQ
	tokNE
	tokLT
	tokLE
	tokGT
	tokGE
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func lexFilter(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case r == '&':
			if i+1 >= len(rs) || rs[i+1] != '&' {
				return nil, fmt.Errorf("lone '&' at %d", i)
			}
			toks = append(toks, token{kind: tokAnd})
			i += 2
		case r == '|':
			if i+1 >= len(rs) || rs[i+1] != '|' {
				return nil, fmt.Errorf("lone '|' at %d", i)
			}
			toks = append(toks, token{kind: tokOr})
			i += 2
		case r == '=':
			if i+1 >= len(rs) || rs[i+1] != '=' {
				return nil, fmt.Errorf("lone '=' at %d", i)
			}
			toks = append(toks, token{kind: tokEQ})
			i += 2
		case r == '!':
			if i+1 >= len(rs) || rs[i+1] != '=' {
				return nil, fmt.Errorf("lone '!' at %d", i)
			}
			toks = append(toks, token{kind: tokNE})
			i += 2
		case r == '<':
			if i+1 < len(rs) && rs[i+1] == '=' {
				toks = append(toks, token{kind: tokLE})
				i += 2
			} else {
				toks = append(toks, token{kind: tokLT})
				i++
			}
		case r == '>':
			if i+1 < len(rs) && rs[i+1] == '=' {
				toks = append(toks, token{kind: tokGE})
				i += 2
			} else {
				toks = append(toks, token{kind: tokGT})
				i++
			}
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(rs) && rs[j] != quote {
				j++
			}
			if j >= len(rs) {
				return nil, errors.New("unterminated string literal")
			}
			toks = append(toks, token{kind: tokString, text: string(rs[i+1 : j])})
			i = j + 1
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			// There is no arithmetic in this grammar, so '-' can only
			// introduce a negative literal.
			j := i + 1
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			f, err := strconv.ParseFloat(string(rs[i:j]), 64)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokNumber, num: f})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_' || rs[j] == '.') {
				j++
			}
			word := string(rs[i:j])
			switch word {
			case "and":
				toks = append(toks, token{kind: tokAnd})
			case "or":
				toks = append(toks, token{kind: tokOr})
			case "not":
				toks = append(toks, token{kind: tokNot})
			case "True":
				toks = append(toks, token{kind: tokTrue})
			case "False":
				toks = append(toks, token{kind: tokFalse})
			case "None":
				toks = append(toks, token{kind: tokNone})
			default:
				toks = append(toks, token{kind: tokIdent, text: word})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at %d", r, i)
		}
	}
	return toks, nil
}

type filterNode interface {
	eval(row map[string]any) (any, error)
}

type literalNode struct{ v any }

func (n literalNode) eval(map[string]any) (any, error) { return n.v, nil }

type identNode struct{ path string }

func (n identNode) eval(row map[string]any) (any, error) { return rowGet(row, n.path), nil }

type notNode struct{ inner filterNode }

func (n notNode) eval(row map[string]any) (any, error) {
	v, err := n.inner.eval(row)
	if err != nil {
		return nil, err
	}
	return !truthy(v), nil
}

type logicNode struct {
	and      bool
	lhs, rhs filterNode
}

func (n logicNode) eval(row map[string]any) (any, error) {
	l, err := n.lhs.eval(row)
	if err != nil {
		return nil, err
	}
	// Short-circuit like any sensible host language.
	if n.and && !truthy(l) {
		return false, nil
	}
	if !n.and && truthy(l) {
		return true, nil
	}
	r, err := n.rhs.eval(row)
	if err != nil {
		return nil, err
	}
	return truthy(r), nil
}

type compareNode struct {
	op       tokenKind
	lhs, rhs filterNode
}

func (n compareNode) eval(row map[string]any) (any, error) {
	l, err := n.lhs.eval(row)
	if err != nil {
		return nil, err
	}
	r, err := n.rhs.eval(row)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case tokEQ:
		return equalValues(l, r), nil
	case tokNE:
		return !equalValues(l, r), nil
	}

	// Ordering: strings compare lexicographically, everything else
	// must coerce to numbers on both sides.
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			return orderResult(n.op, strings.Compare(ls, rs)), nil
		}
	}
	lf, okL := AsNumber(l)
	rf, okR := AsNumber(r)
	if !okL || !okR {
		return nil, fmt.Errorf("unorderable operands %T and %T", l, r)
	}
	switch {
	case lf < rf:
		return orderResult(n.op, -1), nil
	case lf > rf:
		return orderResult(n.op, 1), nil
	default:
		return orderResult(n.op, 0), nil
	}
}

func orderResult(op tokenKind, cmp int) bool {
	switch op {
	case tokLT:
		return cmp < 0
	case tokLE:
		return cmp <= 0
	case tokGT:
		return cmp > 0
	case tokGE:
		return cmp >= 0
	default:
		return false
	}
}

type filterParser struct {
	toks []token
	pos  int
}

func (p *filterParser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *filterParser) peek() (token, bool) {
	if p.atEnd() {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *filterParser) accept(kind tokenKind) bool {
	if t, ok := p.peek(); ok && t.kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *filterParser) parseExpr() (filterNode, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = logicNode{and: false, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

func (p *filterParser) parseAnd() (filterNode, error) {
	lhs, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		rhs, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		lhs = logicNode{and: true, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

func (p *filterParser) parseNot() (filterNode, error) {
	if p.accept(tokNot) {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.parseCompare()
}

func (p *filterParser) parseCompare() (filterNode, error) {
	lhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	t, ok := p.peek()
	if !ok {
		return lhs, nil
	}
	switch t.kind {
	case tokEQ, tokNE, tokLT, tokLE, tokGT, tokGE:
		p.pos++
		rhs, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return compareNode{op: t.kind, lhs: lhs, rhs: rhs}, nil
	}
	return lhs, nil
}

func (p *filterParser) parseOperand() (filterNode, error) {
	t, ok := p.peek()
	if !ok {
		return nil, errors.New("unexpected end of expression")
	}
	p.pos++
	switch t.kind {
	case tokNumber:
		return literalNode{v: t.num}, nil
	case tokString:
		return literalNode{v: t.text}, nil
	case tokTrue:
		return literalNode{v: true}, nil
	case tokFalse:
		return literalNode{v: false}, nil
	case tokNone:
		return literalNode{v: nil}, nil
	case tokIdent:
		return identNode{path: t.text}, nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokRParen) {
			return nil, errors.New("missing closing parenthesis")
		}
		return inner, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", t.kind)
	}
}
