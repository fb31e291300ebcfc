package serviceimpl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PayRam/go-affiliate/conditions"
	"github.com/PayRam/go-affiliate/service"
	"github.com/shopspring/decimal"
)

var (
	placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)
	// After substitution only arithmetic may remain. Anything else is
	// rejected before parsing; formulas are tenant-supplied input.
	safeFormulaPattern = regexp.MustCompile(`^[0-9+\-*/().\s]+$`)
)

// evalFormula substitutes {{placeholders}} from the payload and evaluates
// the resulting arithmetic expression. Unresolvable placeholders,
// non-arithmetic residue, parse errors and division by zero all fail
// closed with ErrUnsafeFormula.
func evalFormula(formula string, payload map[string]interface{}) (decimal.Decimal, error) {
	substituted := placeholderPattern.ReplaceAllStringFunc(formula, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := conditions.Resolve(payload, path)
		if !ok {
			return match
		}
		num, ok := toNumber(value)
		if !ok {
			return match
		}
		return num.String()
	})

	if strings.Contains(substituted, "{{") {
		return decimal.Zero, fmt.Errorf("unresolved placeholder in %q: %w", formula, service.ErrUnsafeFormula)
	}
	if !safeFormulaPattern.MatchString(substituted) {
		return decimal.Zero, fmt.Errorf("disallowed characters in %q: %w", formula, service.ErrUnsafeFormula)
	}

	p := &formulaParser{input: substituted}
	result, err := p.parseExpression()
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", err, service.ErrUnsafeFormula)
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return decimal.Zero, fmt.Errorf("trailing input at offset %d: %w", p.pos, service.ErrUnsafeFormula)
	}
	return result, nil
}

func toNumber(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case float64:
		return decimal.NewFromFloat(v), true
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// formulaParser is a recursive-descent parser over the usual grammar:
// expression = term {(+|-) term}; term = factor {(*|/) factor};
// factor = number | ( expression ) | - factor.
type formulaParser struct {
	input string
	pos   int
}

func (p *formulaParser) parseExpression() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Add(right)
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Sub(right)
		default:
			return left, nil
		}
	}
}

func (p *formulaParser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseFactor()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Mul(right)
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return decimal.Zero, err
			}
			if right.IsZero() {
				return decimal.Zero, fmt.Errorf("division by zero")
			}
			left = left.Div(right)
		default:
			return left, nil
		}
	}
}

func (p *formulaParser) parseFactor() (decimal.Decimal, error) {
	p.skipSpaces()
	switch p.peek() {
	case '-':
		p.pos++
		value, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		return value.Neg(), nil
	case '(':
		p.pos++
		value, err := p.parseExpression()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return decimal.Zero, fmt.Errorf("missing closing parenthesis at offset %d", p.pos)
		}
		p.pos++
		return value, nil
	default:
		return p.parseNumber()
	}
}

func (p *formulaParser) parseNumber() (decimal.Decimal, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return decimal.Zero, fmt.Errorf("expected number at offset %d", start)
	}
	value, err := decimal.NewFromString(p.input[start:p.pos])
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed number %q", p.input[start:p.pos])
	}
	return value, nil
}

func (p *formulaParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *formulaParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
