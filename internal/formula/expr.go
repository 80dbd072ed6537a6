package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// evalInfix evaluates a small infix expression over numbers and double-quoted
// strings: + - * / %, comparisons, parentheses, unary minus. It covers what
// survives cell-reference substitution in user formulas; anything it cannot
// parse is a formula error, not a panic.
func evalInfix(src string) (any, error) {
	p := &exprParser{tokens: tokenize(src)}
	value, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("unexpected token %q", p.peek())
	}
	return value, nil
}

type exprParser struct {
	tokens []string
	pos    int
}

func (p *exprParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *exprParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *exprParser) done() bool {
	return p.pos >= len(p.tokens)
}

func (p *exprParser) parseComparison() (any, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		switch op {
		case "==", "!=", ">", "<", ">=", "<=":
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left, err = compare(op, left, right)
			if err != nil {
				return nil, err
			}
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseAdditive() (any, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != "+" && op != "-" {
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			left, err = add(left, right)
		} else {
			left, err = arith(op, left, right)
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *exprParser) parseMultiplicative() (any, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != "*" && op != "/" && op != "%" {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left, err = arith(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *exprParser) parseUnary() (any, error) {
	switch p.peek() {
	case "-":
		p.next()
		value, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		num, ok := toNumber(value)
		if !ok {
			return nil, fmt.Errorf("cannot negate %v", value)
		}
		return -num, nil
	case "+":
		p.next()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (any, error) {
	tok := p.next()
	switch {
	case tok == "":
		return nil, fmt.Errorf("unexpected end of expression")
	case tok == "(":
		value, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return value, nil
	case strings.HasPrefix(tok, `"`):
		return strings.Trim(tok, `"`), nil
	default:
		num, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid operand %q", tok)
		}
		return num, nil
	}
}

func tokenize(src string) []string {
	var tokens []string
	i := 0
	for i < len(src) {
		ch := src[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch == '"':
			j := i + 1
			for j < len(src) && src[j] != '"' {
				j++
			}
			if j < len(src) {
				j++
			}
			tokens = append(tokens, src[i:j])
			i = j
		case ch >= '0' && ch <= '9' || ch == '.':
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.' || src[j] == 'e' || src[j] == 'E') {
				j++
			}
			tokens = append(tokens, src[i:j])
			i = j
		case strings.ContainsRune("()+-*/%", rune(ch)):
			tokens = append(tokens, string(ch))
			i++
		case ch == '=' || ch == '!' || ch == '>' || ch == '<':
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, src[i:i+2])
				i += 2
			} else {
				tokens = append(tokens, string(ch))
				i++
			}
		default:
			// Unknown characters become single-char tokens and fail in
			// parsePrimary with a useful message.
			tokens = append(tokens, string(ch))
			i++
		}
	}
	return tokens
}

func add(left, right any) (any, error) {
	if ls, ok := left.(string); ok {
		return ls + stringify(right), nil
	}
	if rs, ok := right.(string); ok {
		return stringify(left) + rs, nil
	}
	return arith("+", left, right)
}

func arith(op string, left, right any) (any, error) {
	l, lok := toNumber(left)
	r, rok := toNumber(right)
	if !lok || !rok {
		return nil, fmt.Errorf("non-numeric operand for %s", op)
	}
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return math.Mod(l, r), nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

func compare(op string, left, right any) (any, error) {
	l, lok := toNumber(left)
	r, rok := toNumber(right)
	if lok && rok {
		switch op {
		case "==":
			return l == r, nil
		case "!=":
			return l != r, nil
		case ">":
			return l > r, nil
		case "<":
			return l < r, nil
		case ">=":
			return l >= r, nil
		case "<=":
			return l <= r, nil
		}
	}
	ls, rs := stringify(left), stringify(right)
	switch op {
	case "==":
		return ls == rs, nil
	case "!=":
		return ls != rs, nil
	case ">":
		return ls > rs, nil
	case "<":
		return ls < rs, nil
	case ">=":
		return ls >= rs, nil
	case "<=":
		return ls <= rs, nil
	}
	return nil, fmt.Errorf("unknown comparison %s", op)
}

func toNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case bool:
		if typed {
			return 1, true
		}
		return 0, true
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return num, true
	}
	return 0, false
}

func stringify(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		if typed {
			return "true"
		}
		return "false"
	}
	return fmt.Sprint(value)
}
