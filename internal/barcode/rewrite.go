// =============================================================================
// Shop POS - Barcode Rewrite Rules
// =============================================================================
//
// Rewrite rules fix known-bad scanner output before matching. They are data
// (resolver.rewrite_rules in config.yaml), so a new label quirk is a config
// change, not a code branch.
//
// EXAMPLE:
//   rewrite_rules:
//     - name: drop-check-star
//       match: '^\*'
//       actions:
//         - type: strip_prefix
//           value: "*"
//     - name: short-ean
//       match: '^[0-9]{12}$'
//       actions:
//         - type: pad_left
//           length: 13
//
// =============================================================================

package barcode

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/config"
)

// =============================================================================
// REWRITER
// =============================================================================

// Rewriter applies the configured rules in order.
type Rewriter struct {
	rules []compiledRule
}

type compiledRule struct {
	name    string
	match   *regexp.Regexp
	actions []compiledAction
}

type compiledAction struct {
	config.RewriteAction
	re *regexp.Regexp
}

// NewRewriter compiles rules. Any bad pattern or unknown action type is
// reported here rather than at scan time.
func NewRewriter(rules []config.RewriteRule) (*Rewriter, error) {
	rw := &Rewriter{}
	for i, rule := range rules {
		cr := compiledRule{name: rule.Name}
		if cr.name == "" {
			cr.name = fmt.Sprintf("rule_%d", i+1)
		}
		if rule.Match != "" {
			re, err := regexp.Compile(rule.Match)
			if err != nil {
				return nil, fmt.Errorf("rewrite rule %s: invalid match: %w", cr.name, err)
			}
			cr.match = re
		}
		for _, a := range rule.Actions {
			ca := compiledAction{RewriteAction: a}
			switch a.Type {
			case "strip_prefix", "strip_suffix", "prepend", "replace", "digits_only":
			case "pad_left", "truncate":
				if a.Length <= 0 {
					return nil, fmt.Errorf("rewrite rule %s: %s needs a positive length", cr.name, a.Type)
				}
			case "regex_replace":
				re, err := regexp.Compile(a.Pattern)
				if err != nil {
					return nil, fmt.Errorf("rewrite rule %s: invalid pattern: %w", cr.name, err)
				}
				ca.re = re
			default:
				return nil, fmt.Errorf("rewrite rule %s: unknown action %q", cr.name, a.Type)
			}
			cr.actions = append(cr.actions, ca)
		}
		rw.rules = append(rw.rules, cr)
	}
	return rw, nil
}

// Rewrite applies every matching rule to an already normalized code and
// returns the result plus the names of the rules that fired.
func (rw *Rewriter) Rewrite(code string) (string, []string) {
	if rw == nil {
		return code, nil
	}
	var fired []string
	for _, rule := range rw.rules {
		if rule.match != nil && !rule.match.MatchString(code) {
			continue
		}
		before := code
		for _, a := range rule.actions {
			code = applyAction(code, a)
		}
		if code != before {
			fired = append(fired, rule.name)
		}
	}
	return code, fired
}

// applyAction applies a single rewrite action.
func applyAction(value string, a compiledAction) string {
	switch a.Type {
	case "strip_prefix":
		return strings.TrimPrefix(value, a.Value)
	case "strip_suffix":
		return strings.TrimSuffix(value, a.Value)
	case "prepend":
		return a.Value + value
	case "replace":
		return strings.ReplaceAll(value, a.Pattern, a.Value)
	case "regex_replace":
		return a.re.ReplaceAllString(value, a.Value)
	case "pad_left":
		pad := a.Value
		if pad == "" {
			pad = "0"
		}
		for len(value) < a.Length {
			value = pad + value
		}
		return value
	case "truncate":
		if len(value) > a.Length {
			return value[:a.Length]
		}
		return value
	case "digits_only":
		var b strings.Builder
		for _, r := range value {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	return value
}
