package dynamotest

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

type tokKind int

const (
	tokIdent tokKind = iota
	tokName
	tokValue
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokKind
	text string
}

func tokenize(s string) ([]token, error) {
	var out []token
	isIdent := func(r byte) bool {
		return r == '_' || r == '.' || unicode.IsLetter(rune(r)) || unicode.IsDigit(rune(r))
	}
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			out = append(out, token{tokLParen, "("})
			i++
		case c == ')':
			out = append(out, token{tokRParen, ")"})
			i++
		case c == ',':
			out = append(out, token{tokComma, ","})
			i++
		case c == '=' || c == '+':
			out = append(out, token{tokOp, string(c)})
			i++
		case c == '<' || c == '>':
			op := string(c)
			if i+1 < len(s) && (s[i+1] == '=' || (c == '<' && s[i+1] == '>')) {
				op += string(s[i+1])
			}
			out = append(out, token{tokOp, op})
			i += len(op)
		case c == '#' || c == ':':
			j := i + 1
			for j < len(s) && isIdent(s[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("dynamotest: empty placeholder at %d in %q", i, s)
			}
			kind := tokName
			if c == ':' {
				kind = tokValue
			}
			out = append(out, token{kind, s[i:j]})
			i = j
		case c == '-':
			out = append(out, token{tokOp, "-"})
			i++
		case isIdent(c):
			j := i
			for j < len(s) && isIdent(s[j]) {
				j++
			}
			out = append(out, token{tokIdent, s[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("dynamotest: unexpected %q in %q", c, s)
		}
	}
	return append(out, token{tokEOF, ""}), nil
}

type env struct {
	names  map[string]string
	values map[string]types.AttributeValue
}

// operand is either an attribute path or an expression value.
type operand struct {
	path  string
	value types.AttributeValue
}

func (o operand) resolve(it item) (types.AttributeValue, bool) {
	if o.value != nil {
		return o.value, true
	}
	v, ok := it[o.path]
	return v, ok
}

type parser struct {
	toks []token
	pos  int
	env  env
}

func newParser(expr string, e env) (*parser, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks, env: e}, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, fmt.Errorf("dynamotest: unexpected token %q", t.text)
	}
	return t, nil
}

func (p *parser) keyword(word string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) path() (string, error) {
	t := p.next()
	switch t.kind {
	case tokIdent:
		return t.text, nil
	case tokName:
		name, ok := p.env.names[t.text]
		if !ok {
			return "", fmt.Errorf("dynamotest: undefined name %s", t.text)
		}
		return name, nil
	}
	return "", fmt.Errorf("dynamotest: expected attribute path, got %q", t.text)
}

func (p *parser) operand() (operand, error) {
	if t := p.peek(); t.kind == tokValue {
		p.next()
		v, ok := p.env.values[t.text]
		if !ok {
			return operand{}, fmt.Errorf("dynamotest: undefined value %s", t.text)
		}
		return operand{value: v}, nil
	}
	path, err := p.path()
	if err != nil {
		return operand{}, err
	}
	return operand{path: path}, nil
}

// condition

type cond func(it item) bool

func parseCondition(expr string, e env) (cond, error) {
	if strings.TrimSpace(expr) == "" {
		return func(item) bool { return true }, nil
	}
	p, err := newParser(expr, e)
	if err != nil {
		return nil, err
	}
	c, err := p.or()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("dynamotest: trailing %q in %q", t.text, expr)
	}
	return c, nil
}

func (p *parser) or() (cond, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		l := left
		left = func(it item) bool { return l(it) || right(it) }
	}
	return left, nil
}

func (p *parser) and() (cond, error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		right, err := p.not()
		if err != nil {
			return nil, err
		}
		l := left
		left = func(it item) bool { return l(it) && right(it) }
	}
	return left, nil
}

func (p *parser) not() (cond, error) {
	if p.keyword("NOT") {
		c, err := p.not()
		if err != nil {
			return nil, err
		}
		return func(it item) bool { return !c(it) }, nil
	}
	return p.primary()
}

func (p *parser) primary() (cond, error) {
	if p.peek().kind == tokLParen {
		p.next()
		c, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return c, nil
	}

	if t := p.peek(); t.kind == tokIdent && p.toks[p.pos+1].kind == tokLParen {
		switch strings.ToLower(t.text) {
		case "attribute_exists", "attribute_not_exists":
			p.pos += 2
			path, err := p.path()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen); err != nil {
				return nil, err
			}
			want := strings.EqualFold(t.text, "attribute_exists")
			return func(it item) bool {
				_, ok := it[path]
				return ok == want
			}, nil
		case "begins_with":
			p.pos += 2
			a, b, err := p.pair()
			if err != nil {
				return nil, err
			}
			return func(it item) bool {
				av, ok1 := a.resolve(it)
				bv, ok2 := b.resolve(it)
				as, ok3 := av.(*types.AttributeValueMemberS)
				bs, ok4 := bv.(*types.AttributeValueMemberS)
				return ok1 && ok2 && ok3 && ok4 && strings.HasPrefix(as.Value, bs.Value)
			}, nil
		}
		return nil, fmt.Errorf("dynamotest: unsupported function %s", t.text)
	}

	left, err := p.operand()
	if err != nil {
		return nil, err
	}

	if p.keyword("IN") {
		if _, err := p.expect(tokLParen); err != nil {
			return nil, err
		}
		var list []operand
		for {
			o, err := p.operand()
			if err != nil {
				return nil, err
			}
			list = append(list, o)
			if p.peek().kind == tokComma {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return func(it item) bool {
			lv, ok := left.resolve(it)
			if !ok {
				return false
			}
			for _, o := range list {
				if rv, ok := o.resolve(it); ok && equal(lv, rv) {
					return true
				}
			}
			return false
		}, nil
	}

	if p.keyword("BETWEEN") {
		lo, err := p.operand()
		if err != nil {
			return nil, err
		}
		if !p.keyword("AND") {
			return nil, fmt.Errorf("dynamotest: BETWEEN without AND")
		}
		hi, err := p.operand()
		if err != nil {
			return nil, err
		}
		return func(it item) bool {
			v, ok1 := left.resolve(it)
			l, ok2 := lo.resolve(it)
			h, ok3 := hi.resolve(it)
			if !ok1 || !ok2 || !ok3 {
				return false
			}
			c1, ok4 := compare(v, l)
			c2, ok5 := compare(v, h)
			return ok4 && ok5 && c1 >= 0 && c2 <= 0
		}, nil
	}

	opTok, err := p.expect(tokOp)
	if err != nil {
		return nil, err
	}
	op := opTok.text
	right, err := p.operand()
	if err != nil {
		return nil, err
	}
	return func(it item) bool {
		lv, ok1 := left.resolve(it)
		rv, ok2 := right.resolve(it)
		if !ok1 || !ok2 {
			// Only inequality holds against a missing attribute.
			return op == "<>"
		}
		switch op {
		case "=":
			return equal(lv, rv)
		case "<>":
			return !equal(lv, rv)
		}
		c, ok := compare(lv, rv)
		if !ok {
			return false
		}
		switch op {
		case "<":
			return c < 0
		case "<=":
			return c <= 0
		case ">":
			return c > 0
		case ">=":
			return c >= 0
		}
		return false
	}, nil
}

func (p *parser) pair() (operand, operand, error) {
	a, err := p.operand()
	if err != nil {
		return a, a, err
	}
	if _, err := p.expect(tokComma); err != nil {
		return a, a, err
	}
	b, err := p.operand()
	if err != nil {
		return a, b, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return a, b, err
	}
	return a, b, nil
}

// update

type action func(old, cur item) error

func parseUpdate(expr string, e env) ([]action, error) {
	p, err := newParser(expr, e)
	if err != nil {
		return nil, err
	}
	var actions []action
	section := ""
	for p.peek().kind != tokEOF {
		if t := p.peek(); t.kind == tokIdent {
			switch strings.ToUpper(t.text) {
			case "SET", "ADD", "REMOVE", "DELETE":
				section = strings.ToUpper(t.text)
				p.next()
				continue
			}
		}
		if p.peek().kind == tokComma {
			p.next()
			continue
		}
		var a action
		switch section {
		case "SET":
			a, err = p.setAction()
		case "ADD":
			a, err = p.addAction()
		case "REMOVE":
			var path string
			path, err = p.path()
			a = func(_, cur item) error { delete(cur, path); return nil }
		case "DELETE":
			err = fmt.Errorf("dynamotest: DELETE updates are not supported")
		default:
			err = fmt.Errorf("dynamotest: update expression %q has no action keyword", expr)
		}
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func (p *parser) setAction() (action, error) {
	path, err := p.path()
	if err != nil {
		return nil, err
	}
	if t, err := p.expect(tokOp); err != nil || t.text != "=" {
		return nil, fmt.Errorf("dynamotest: expected = in SET %s", path)
	}
	left, err := p.setTerm()
	if err != nil {
		return nil, err
	}
	value := left
	if t := p.peek(); t.kind == tokOp && (t.text == "+" || t.text == "-") {
		p.next()
		right, err := p.setTerm()
		if err != nil {
			return nil, err
		}
		sign := 1.0
		if t.text == "-" {
			sign = -1
		}
		value = func(old item) (types.AttributeValue, error) {
			a, err := left(old)
			if err != nil {
				return nil, err
			}
			b, err := right(old)
			if err != nil {
				return nil, err
			}
			return addNumbers(a, b, sign)
		}
	}
	return func(old, cur item) error {
		v, err := value(old)
		if err != nil {
			return err
		}
		cur[path] = v
		return nil
	}, nil
}

type term func(old item) (types.AttributeValue, error)

func (p *parser) setTerm() (term, error) {
	if t := p.peek(); t.kind == tokIdent && strings.EqualFold(t.text, "if_not_exists") && p.toks[p.pos+1].kind == tokLParen {
		p.pos += 2
		a, b, err := p.pair()
		if err != nil {
			return nil, err
		}
		return func(old item) (types.AttributeValue, error) {
			if v, ok := a.resolve(old); ok {
				return v, nil
			}
			v, _ := b.resolve(old)
			return v, nil
		}, nil
	}
	o, err := p.operand()
	if err != nil {
		return nil, err
	}
	return func(old item) (types.AttributeValue, error) {
		v, ok := o.resolve(old)
		if !ok {
			return nil, fmt.Errorf("dynamotest: attribute %s does not exist", o.path)
		}
		return v, nil
	}, nil
}

func (p *parser) addAction() (action, error) {
	path, err := p.path()
	if err != nil {
		return nil, err
	}
	o, err := p.operand()
	if err != nil {
		return nil, err
	}
	return func(old, cur item) error {
		delta, _ := o.resolve(old)
		existing, ok := old[path]
		if !ok {
			cur[path] = delta
			return nil
		}
		if ss, isSet := existing.(*types.AttributeValueMemberSS); isSet {
			add, ok := delta.(*types.AttributeValueMemberSS)
			if !ok {
				return fmt.Errorf("dynamotest: ADD type mismatch on %s", path)
			}
			merged := append([]string(nil), ss.Value...)
			for _, v := range add.Value {
				found := false
				for _, m := range merged {
					found = found || m == v
				}
				if !found {
					merged = append(merged, v)
				}
			}
			cur[path] = &types.AttributeValueMemberSS{Value: merged}
			return nil
		}
		v, err := addNumbers(existing, delta, 1)
		if err != nil {
			return err
		}
		cur[path] = v
		return nil
	}, nil
}

func addNumbers(a, b types.AttributeValue, sign float64) (types.AttributeValue, error) {
	an, ok1 := a.(*types.AttributeValueMemberN)
	bn, ok2 := b.(*types.AttributeValueMemberN)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("dynamotest: arithmetic on non-number operands")
	}
	x, err := strconv.ParseFloat(an.Value, 64)
	if err != nil {
		return nil, err
	}
	y, err := strconv.ParseFloat(bn.Value, 64)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(x+sign*y, 'f', -1, 64)}, nil
}

// compare orders two scalars of the same type. ok is false otherwise.
func compare(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if bv, ok := b.(*types.AttributeValueMemberS); ok {
			return strings.Compare(av.Value, bv.Value), true
		}
	case *types.AttributeValueMemberN:
		if bv, ok := b.(*types.AttributeValueMemberN); ok {
			x, err1 := strconv.ParseFloat(av.Value, 64)
			y, err2 := strconv.ParseFloat(bv.Value, 64)
			if err1 != nil || err2 != nil {
				return 0, false
			}
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			}
			return 0, true
		}
	case *types.AttributeValueMemberB:
		if bv, ok := b.(*types.AttributeValueMemberB); ok {
			return bytes.Compare(av.Value, bv.Value), true
		}
	}
	return 0, false
}

func equal(a, b types.AttributeValue) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}
