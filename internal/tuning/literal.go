package tuning

import (
	"strconv"
	"strings"
	"unicode"

	"lcsweep/internal/errors"
)

// ConvertValue turns a raw cell string into a typed value: booleans, None,
// integers, floats, or the trimmed string itself as a fallback.
func ConvertValue(raw string) interface{} {
	s := strings.TrimSpace(raw)
	switch s {
	case "True", "true":
		return true
	case "False", "false":
		return false
	case "None", "none", "null":
		return nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// ParseLiteral evaluates a backtick-style literal: nested lists, maps,
// quoted strings, numbers, booleans and None. It exists so tuning cells can
// carry structured parameters through a flat CSV.
func ParseLiteral(raw string) (interface{}, error) {
	p := &literalParser{input: strings.TrimSpace(raw)}
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, errors.QueryInputf("trailing characters in literal %q", raw)
	}
	return v, nil
}

type literalParser struct {
	input string
	pos   int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *literalParser) parseValue() (interface{}, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, errors.QueryInput("unexpected end of literal")
	}
	switch c := p.input[p.pos]; {
	case c == '[' || c == '(':
		return p.parseList(c)
	case c == '{':
		return p.parseMap()
	case c == '\'' || c == '"':
		return p.parseString(c)
	default:
		return p.parseScalar()
	}
}

func (p *literalParser) parseList(open byte) (interface{}, error) {
	closer := byte(']')
	if open == '(' {
		closer = ')'
	}
	p.pos++
	var out []interface{}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nil, errors.QueryInput("unterminated list literal")
		}
		if p.input[p.pos] == closer {
			p.pos++
			return out, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		if p.pos < len(p.input) && p.input[p.pos] == ',' {
			p.pos++
		}
	}
}

func (p *literalParser) parseMap() (interface{}, error) {
	p.pos++
	out := map[string]interface{}{}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nil, errors.QueryInput("unterminated map literal")
		}
		if p.input[p.pos] == '}' {
			p.pos++
			return out, nil
		}
		key, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		keyStr, ok := key.(string)
		if !ok {
			return nil, errors.QueryInput("map literal keys must be strings")
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ':' {
			return nil, errors.QueryInput("map literal entry is missing ':'")
		}
		p.pos++
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out[keyStr] = val
		p.skipSpace()
		if p.pos < len(p.input) && p.input[p.pos] == ',' {
			p.pos++
		}
	}
}

func (p *literalParser) parseString(quote byte) (interface{}, error) {
	p.pos++
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != quote {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return nil, errors.QueryInput("unterminated string literal")
	}
	s := p.input[start:p.pos]
	p.pos++
	return s, nil
}

func (p *literalParser) parseScalar() (interface{}, error) {
	start := p.pos
	for p.pos < len(p.input) && !strings.ContainsRune(",]}):", rune(p.input[p.pos])) &&
		!unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		return nil, errors.QueryInputf("unexpected character %q in literal", p.input[p.pos])
	}
	return ConvertValue(p.input[start:p.pos]), nil
}
