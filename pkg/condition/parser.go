package condition

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// parse evaluates a fully substituted expression. Values are float64, string,
// bool, or nil; the grammar, highest to lowest precedence:
//
//	primary    := number | string | true | false | null | '(' expr ')'
//	unary      := ('!' | '-') unary | primary
//	factor     := unary (('*' | '/' | '%') unary)*
//	term       := factor (('+' | '-') factor)*
//	comparison := term (('>' | '>=' | '<' | '<=') term)*
//	equality   := comparison (('==' | '!=') comparison)*
//	and        := equality ('&&' equality)*
//	expr       := and ('||' and)*
func parse(input string) (any, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}

	value, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if !p.atEnd() {
		return nil, fmt.Errorf("unexpected token %q", p.peek())
	}

	return value, nil
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenString
	tokenIdent
	tokenOperator
)

type token struct {
	kind tokenKind
	text string
}

func lex(input string) ([]token, error) {
	var tokens []token

	runes := []rune(input)
	i := 0

	for i < len(runes) {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++

		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.' || runes[i] == 'e' ||
				runes[i] == 'E' || ((runes[i] == '+' || runes[i] == '-') && (runes[i-1] == 'e' || runes[i-1] == 'E'))) {
				i++
			}

			tokens = append(tokens, token{tokenNumber, string(runes[start:i])})

		case r == '"':
			start := i
			i++

			for i < len(runes) && runes[i] != '"' {
				if runes[i] == '\\' {
					i++
				}

				i++
			}

			if i >= len(runes) {
				return nil, fmt.Errorf("unterminated string at offset %d", start)
			}

			i++
			tokens = append(tokens, token{tokenString, string(runes[start:i])})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}

			tokens = append(tokens, token{tokenIdent, string(runes[start:i])})

		case strings.ContainsRune("!<>=&|+-*/%()", r):
			two := ""
			if i+1 < len(runes) {
				two = string(runes[i : i+2])
			}

			switch two {
			case "&&", "||", "==", "!=", ">=", "<=":
				tokens = append(tokens, token{tokenOperator, two})
				i += 2
			default:
				if r == '&' || r == '|' || r == '=' {
					return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
				}

				tokens = append(tokens, token{tokenOperator, string(r)})
				i++
			}

		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}

	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() string {
	if p.atEnd() {
		return ""
	}

	return p.tokens[p.pos].text
}

func (p *parser) matchOperator(ops ...string) (string, bool) {
	if p.atEnd() || p.tokens[p.pos].kind != tokenOperator {
		return "", false
	}

	for _, op := range ops {
		if p.tokens[p.pos].text == op {
			p.pos++

			return op, true
		}
	}

	return "", false
}

func (p *parser) parseOr() (any, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for {
		if _, ok := p.matchOperator("||"); !ok {
			return left, nil
		}

		lb, err := asBool(left)
		if err != nil {
			return nil, err
		}

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		rb, err := asBool(right)
		if err != nil {
			return nil, err
		}

		left = lb || rb
	}
}

func (p *parser) parseAnd() (any, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}

	for {
		if _, ok := p.matchOperator("&&"); !ok {
			return left, nil
		}

		lb, err := asBool(left)
		if err != nil {
			return nil, err
		}

		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}

		rb, err := asBool(right)
		if err != nil {
			return nil, err
		}

		left = lb && rb
	}
}

func (p *parser) parseEquality() (any, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.matchOperator("==", "!=")
		if !ok {
			return left, nil
		}

		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}

		equal := looseEqual(left, right)
		if op == "!=" {
			equal = !equal
		}

		left = equal
	}
}

func (p *parser) parseComparison() (any, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.matchOperator(">=", "<=", ">", "<")
		if !ok {
			return left, nil
		}

		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}

		result, err := compare(op, left, right)
		if err != nil {
			return nil, err
		}

		left = result
	}
}

func (p *parser) parseTerm() (any, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.matchOperator("+", "-")
		if !ok {
			return left, nil
		}

		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}

		left, err = arithmetic(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseFactor() (any, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.matchOperator("*", "/", "%")
		if !ok {
			return left, nil
		}

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left, err = arithmetic(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseUnary() (any, error) {
	if op, ok := p.matchOperator("!", "-"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		if op == "!" {
			b, err := asBool(operand)
			if err != nil {
				return nil, err
			}

			return !b, nil
		}

		n, err := asNumber(operand)
		if err != nil {
			return nil, err
		}

		return -n, nil
	}

	return p.parsePrimary()
}

func (p *parser) parsePrimary() (any, error) {
	if p.atEnd() {
		return nil, fmt.Errorf("unexpected end of expression")
	}

	tok := p.tokens[p.pos]

	switch tok.kind {
	case tokenNumber:
		p.pos++

		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", tok.text, err)
		}

		return n, nil

	case tokenString:
		p.pos++

		s, err := strconv.Unquote(tok.text)
		if err != nil {
			return nil, fmt.Errorf("invalid string %s: %w", tok.text, err)
		}

		return s, nil

	case tokenIdent:
		p.pos++

		switch tok.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		default:
			return nil, fmt.Errorf("unknown identifier %q", tok.text)
		}

	case tokenOperator:
		if tok.text == "(" {
			p.pos++

			value, err := p.parseOr()
			if err != nil {
				return nil, err
			}

			if _, ok := p.matchOperator(")"); !ok {
				return nil, fmt.Errorf("missing closing parenthesis")
			}

			return value, nil
		}
	}

	return nil, fmt.Errorf("unexpected token %q", tok.text)
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected boolean, got %T", v)
	}

	return b, nil
}

func asNumber(v any) (float64, error) {
	n, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", v)
	}

	return n, nil
}

func looseEqual(a, b any) bool {
	return a == b
}

func compare(op string, a, b any) (bool, error) {
	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		if !bok {
			return false, fmt.Errorf("cannot compare string with %T", b)
		}

		switch op {
		case ">":
			return as > bs, nil
		case ">=":
			return as >= bs, nil
		case "<":
			return as < bs, nil
		case "<=":
			return as <= bs, nil
		}
	}

	an, err := asNumber(a)
	if err != nil {
		return false, err
	}

	bn, err := asNumber(b)
	if err != nil {
		return false, err
	}

	switch op {
	case ">":
		return an > bn, nil
	case ">=":
		return an >= bn, nil
	case "<":
		return an < bn, nil
	case "<=":
		return an <= bn, nil
	}

	return false, fmt.Errorf("unknown comparison operator %q", op)
}

func arithmetic(op string, a, b any) (any, error) {
	an, err := asNumber(a)
	if err != nil {
		return nil, err
	}

	bn, err := asNumber(b)
	if err != nil {
		return nil, err
	}

	switch op {
	case "+":
		return an + bn, nil
	case "-":
		return an - bn, nil
	case "*":
		return an * bn, nil
	case "/":
		if bn == 0 {
			return nil, fmt.Errorf("division by zero")
		}

		return an / bn, nil
	case "%":
		if bn == 0 {
			return nil, fmt.Errorf("division by zero")
		}

		return float64(int64(an) % int64(bn)), nil
	}

	return nil, fmt.Errorf("unknown arithmetic operator %q", op)
}
