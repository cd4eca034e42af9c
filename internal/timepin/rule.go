// Package timepin derives the minute-rolling dashboard code from a small
// configured arithmetic rule over the current UTC (hour, minute).
package timepin

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

// DefaultRule is used when no TIME_PIN_ALGORITHM is configured.
const DefaultRule = "(hour * 7) + (minute % 10)"

// The grammar is deliberately closed: integer literals, the two named
// variables, + - * / % and parentheses. Nothing else parses, so a rule can
// never smuggle in code.

type ruleExpr struct {
	Left *ruleTerm     `parser:"@@"`
	Rest []*ruleOpTerm `parser:"@@*"`
}

type ruleOpTerm struct {
	Op   string    `parser:"@('+' | '-')"`
	Term *ruleTerm `parser:"@@"`
}

type ruleTerm struct {
	Left *ruleFactor     `parser:"@@"`
	Rest []*ruleOpFactor `parser:"@@*"`
}

type ruleOpFactor struct {
	Op     string      `parser:"@('*' | '/' | '%')"`
	Factor *ruleFactor `parser:"@@"`
}

type ruleFactor struct {
	Number *int      `parser:"@Int"`
	Var    *string   `parser:"| @Ident"`
	Sub    *ruleExpr `parser:"| '(' @@ ')'"`
}

var ruleParser = participle.MustBuild[ruleExpr]()

// Rule is a parsed time-PIN rule ready for evaluation.
type Rule struct {
	expr *ruleExpr
	src  string
}

// Parse compiles a rule string. Only integer arithmetic over the variables
// hour and minute is accepted; any other identifier is rejected.
func Parse(src string) (*Rule, error) {
	expr, err := ruleParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("invalid time pin rule: %w", err)
	}
	if err := checkExpr(expr); err != nil {
		return nil, fmt.Errorf("invalid time pin rule: %w", err)
	}
	return &Rule{expr: expr, src: src}, nil
}

func (r *Rule) String() string {
	return r.src
}

// Eval computes the rule for the given hour and minute.
func (r *Rule) Eval(hour, minute int) (int, error) {
	return evalExpr(r.expr, hour, minute)
}

func checkExpr(e *ruleExpr) error {
	if err := checkTerm(e.Left); err != nil {
		return err
	}
	for _, op := range e.Rest {
		if err := checkTerm(op.Term); err != nil {
			return err
		}
	}
	return nil
}

func checkTerm(t *ruleTerm) error {
	if err := checkFactor(t.Left); err != nil {
		return err
	}
	for _, op := range t.Rest {
		if err := checkFactor(op.Factor); err != nil {
			return err
		}
	}
	return nil
}

func checkFactor(f *ruleFactor) error {
	switch {
	case f.Number != nil:
		return nil
	case f.Var != nil:
		if *f.Var != "hour" && *f.Var != "minute" {
			return fmt.Errorf("unknown variable %q", *f.Var)
		}
		return nil
	case f.Sub != nil:
		return checkExpr(f.Sub)
	}
	return fmt.Errorf("empty factor")
}

func evalExpr(e *ruleExpr, hour, minute int) (int, error) {
	val, err := evalTerm(e.Left, hour, minute)
	if err != nil {
		return 0, err
	}
	for _, op := range e.Rest {
		rhs, err := evalTerm(op.Term, hour, minute)
		if err != nil {
			return 0, err
		}
		switch op.Op {
		case "+":
			val += rhs
		case "-":
			val -= rhs
		}
	}
	return val, nil
}

func evalTerm(t *ruleTerm, hour, minute int) (int, error) {
	val, err := evalFactor(t.Left, hour, minute)
	if err != nil {
		return 0, err
	}
	for _, op := range t.Rest {
		rhs, err := evalFactor(op.Factor, hour, minute)
		if err != nil {
			return 0, err
		}
		switch op.Op {
		case "*":
			val *= rhs
		case "/":
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			val /= rhs
		case "%":
			if rhs == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			val %= rhs
		}
	}
	return val, nil
}

func evalFactor(f *ruleFactor, hour, minute int) (int, error) {
	switch {
	case f.Number != nil:
		return *f.Number, nil
	case f.Var != nil:
		if *f.Var == "hour" {
			return hour, nil
		}
		return minute, nil
	case f.Sub != nil:
		return evalExpr(f.Sub, hour, minute)
	}
	return 0, fmt.Errorf("empty factor")
}
