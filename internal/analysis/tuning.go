package analysis

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownRule = errors.New("unknown tuning rule")

type Rule string

const (
	RuleClassic       Rule = "classic"
	RulePessen        Rule = "pessen"
	RuleSomeOvershoot Rule = "some-overshoot"
	RuleNoOvershoot   Rule = "no-overshoot"
	RuleP             Rule = "p"
	RulePI            Rule = "pi"
)

// kp = a·Ku, Ti = Tu/b, Td = c·Tu
type znCoefficients struct {
	a, b, c float64
}

var znRules = map[Rule]znCoefficients{
	RuleClassic:       {0.6, 2, 0.125},
	RulePessen:        {0.7, 2.5, 0.15},
	RuleSomeOvershoot: {0.33, 2, 1.0 / 3.0},
	RuleNoOvershoot:   {0.2, 2, 1.0 / 3.0},
	RuleP:             {0.5, 0, 0},
	RulePI:            {0.45, 1.2, 0},
}

func Rules() []Rule {
	return []Rule{RuleClassic, RulePessen, RuleSomeOvershoot, RuleNoOvershoot, RuleP, RulePI}
}

func ParseRule(s string) (Rule, error) {
	r := Rule(strings.ToLower(strings.TrimSpace(s)))
	if r == "" {
		return RuleClassic, nil
	}
	if _, ok := znRules[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRule, s)
	}
	return r, nil
}

// ZieglerNichols returns parallel-form gains (kp, ki, kd) from the ultimate
// gain ku and the oscillation period tu in seconds.
func ZieglerNichols(ku, tu float64, rule Rule) (kp, ki, kd float64, err error) {
	if ku <= 0 || tu <= 0 {
		return 0, 0, 0, fmt.Errorf("ultimate gain and period must be positive, got ku=%g tu=%g", ku, tu)
	}
	co, ok := znRules[rule]
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrUnknownRule, rule)
	}

	kp = co.a * ku
	if co.b > 0 {
		ki = kp * co.b / tu
	}
	kd = kp * co.c * tu
	return kp, ki, kd, nil
}
