// =============================================================================
// Shop POS - Barcode Resolver
// =============================================================================
//
// The resolver turns a raw scan into exactly one product or an error. It runs
// an ordered pipeline of matchers; the first matcher that answers wins.
//
// DEFAULT PIPELINE (resolver.pipeline):
//   1. alias  : configured scan -> stored barcode mappings
//   2. exact  : normalized barcode equality
//   3. prefix : 8-10 leading digits shared with a stored barcode
//   4. serial : integer input against serial ids
//   5. name   : case-insensitive name substring
//
// A matcher answers with a match, an AmbiguousMatchError, or nothing. Prefix
// hits are flagged NeedsConfirmation so the cashier confirms the product
// before it goes into the cart.
//
// =============================================================================

package barcode

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/rs/zerolog"
)

// maxCandidates bounds the list carried by an ambiguity error.
const maxCandidates = 10

// =============================================================================
// TYPES
// =============================================================================

// Source is the product snapshot the resolver searches.
type Source interface {
	Products() []domain.Product
}

// Match is a resolved product.
type Match struct {
	Product domain.Product

	// Strategy is the name of the matcher that answered.
	Strategy string

	// NeedsConfirmation is set when the match is a guess.
	NeedsConfirmation bool

	// Rewrites lists the rewrite rules applied to the scan.
	Rewrites []string
}

// Matcher is one step of the pipeline. A nil match and nil error means
// "no opinion, try the next matcher".
type Matcher interface {
	Name() string
	Match(scan Scan, products []domain.Product) (*Match, error)
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver runs the matcher pipeline.
type Resolver struct {
	source   Source
	matchers []Matcher
	rewriter *Rewriter
	log      zerolog.Logger
}

// NewResolver builds a resolver from the resolver config section.
func NewResolver(source Source, cfg config.ResolverConfig, log zerolog.Logger) (*Resolver, error) {
	rewriter, err := NewRewriter(cfg.RewriteRules)
	if err != nil {
		return nil, err
	}

	matchers := make([]Matcher, 0, len(cfg.Pipeline))
	for _, name := range cfg.Pipeline {
		switch strings.ToLower(name) {
		case "alias":
			matchers = append(matchers, NewAliasMatcher(cfg.Aliases))
		case "exact":
			matchers = append(matchers, ExactMatcher{})
		case "prefix":
			matchers = append(matchers, PrefixMatcher{MinDigits: cfg.PrefixMinDigits, MaxDigits: cfg.PrefixMaxDigits})
		case "serial":
			matchers = append(matchers, SerialMatcher{})
		case "name":
			matchers = append(matchers, NameMatcher{})
		default:
			return nil, fmt.Errorf("unknown matcher %q", name)
		}
	}

	return NewResolverWith(source, rewriter, log, matchers...), nil
}

// NewResolverWith builds a resolver from explicit matchers.
func NewResolverWith(source Source, rewriter *Rewriter, log zerolog.Logger, matchers ...Matcher) *Resolver {
	return &Resolver{source: source, matchers: matchers, rewriter: rewriter, log: log}
}

// Resolve maps raw input to one product.
//
// RETURNS:
//   - The match, with the strategy that produced it.
//   - ErrProductNotFound when no matcher answers, or an AmbiguousMatchError
//     when a matcher finds several candidates.
func (r *Resolver) Resolve(raw string) (*Match, error) {
	scan := NewScan(raw)
	if scan.Trimmed == "" {
		return nil, apperr.NotFound("empty input")
	}

	var rewrites []string
	scan.Code, rewrites = r.rewriter.Rewrite(scan.Code)

	products := r.source.Products()
	for _, m := range r.matchers {
		match, err := m.Match(scan, products)
		if err != nil {
			r.log.Debug().Str("input", raw).Str("matcher", m.Name()).Err(err).Msg("scan ambiguous")
			return nil, err
		}
		if match != nil {
			match.Rewrites = rewrites
			r.log.Debug().
				Str("input", raw).
				Str("matcher", m.Name()).
				Str("product", match.Product.Name).
				Bool("confirm", match.NeedsConfirmation).
				Msg("scan resolved")
			return match, nil
		}
	}

	return nil, apperr.NotFound(scan.Trimmed)
}

// Candidates returns every product a scan could mean, for disambiguation
// prompts. It never fails; an unknown input yields nil.
func (r *Resolver) Candidates(raw string) []domain.Product {
	_, err := r.Resolve(raw)
	var amb *apperr.AmbiguousMatchError
	if !errors.As(err, &amb) {
		return nil
	}
	byName := make(map[string]domain.Product)
	for _, p := range r.source.Products() {
		byName[p.Name] = p
	}
	out := make([]domain.Product, 0, len(amb.Candidates))
	for _, name := range amb.Candidates {
		if p, ok := byName[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// MATCHERS
// =============================================================================

// AliasMatcher maps configured scan codes to the barcode they stand for.
type AliasMatcher struct {
	aliases map[string]string
}

// NewAliasMatcher normalizes both sides of the alias table.
func NewAliasMatcher(aliases map[string]string) AliasMatcher {
	m := AliasMatcher{aliases: make(map[string]string, len(aliases))}
	for from, to := range aliases {
		m.aliases[Normalize(from)] = Normalize(to)
	}
	return m
}

func (AliasMatcher) Name() string { return "alias" }

func (m AliasMatcher) Match(scan Scan, products []domain.Product) (*Match, error) {
	target, ok := m.aliases[scan.Code]
	if !ok || target == "" {
		return nil, nil
	}
	return matchBarcode(scan, target, products, m.Name())
}

// ExactMatcher compares normalized barcodes.
type ExactMatcher struct{}

func (ExactMatcher) Name() string { return "exact" }

func (m ExactMatcher) Match(scan Scan, products []domain.Product) (*Match, error) {
	if scan.Code == "" {
		return nil, nil
	}
	return matchBarcode(scan, scan.Code, products, m.Name())
}

func matchBarcode(scan Scan, code string, products []domain.Product, strategy string) (*Match, error) {
	var hits []domain.Product
	for _, p := range products {
		if p.Barcode != "" && Normalize(p.Barcode) == code {
			hits = append(hits, p)
		}
	}
	return decide(scan, hits, strategy, false)
}

// PrefixMatcher tolerates scanner damage in the tail of long numeric codes.
// The longest shared prefix between MaxDigits and MinDigits wins.
type PrefixMatcher struct {
	MinDigits int
	MaxDigits int
}

func (PrefixMatcher) Name() string { return "prefix" }

func (m PrefixMatcher) Match(scan Scan, products []domain.Product) (*Match, error) {
	if !IsDigits(scan.Code) || len(scan.Code) < m.MinDigits {
		return nil, nil
	}

	type stored struct {
		product domain.Product
		code    string
	}
	var numeric []stored
	for _, p := range products {
		c := Normalize(p.Barcode)
		if IsDigits(c) && len(c) >= m.MinDigits {
			numeric = append(numeric, stored{p, c})
		}
	}

	for n := min(m.MaxDigits, len(scan.Code)); n >= m.MinDigits; n-- {
		prefix := scan.Code[:n]
		var hits []domain.Product
		for _, s := range numeric {
			if strings.HasPrefix(s.code, prefix) {
				hits = append(hits, s.product)
			}
		}
		if len(hits) > 0 {
			return decide(scan, hits, m.Name(), true)
		}
	}
	return nil, nil
}

// SerialMatcher treats integer input as a serial id.
type SerialMatcher struct{}

func (SerialMatcher) Name() string { return "serial" }

func (m SerialMatcher) Match(scan Scan, products []domain.Product) (*Match, error) {
	id, err := strconv.Atoi(scan.Trimmed)
	if err != nil || id <= 0 {
		return nil, nil
	}
	for _, p := range products {
		if p.SerialID == id {
			return &Match{Product: p, Strategy: m.Name()}, nil
		}
	}
	return nil, nil
}

// NameMatcher does case-insensitive substring search on product names.
// A whole-name match beats partial matches.
type NameMatcher struct{}

func (NameMatcher) Name() string { return "name" }

func (m NameMatcher) Match(scan Scan, products []domain.Product) (*Match, error) {
	term := strings.ToLower(scan.Trimmed)
	var hits []domain.Product
	for _, p := range products {
		name := strings.ToLower(p.Name)
		if name == term {
			return &Match{Product: p, Strategy: m.Name()}, nil
		}
		if strings.Contains(name, term) {
			hits = append(hits, p)
		}
	}
	return decide(scan, hits, m.Name(), false)
}

// decide turns a hit list into a match, nothing, or an ambiguity error.
func decide(scan Scan, hits []domain.Product, strategy string, guess bool) (*Match, error) {
	switch len(hits) {
	case 0:
		return nil, nil
	case 1:
		return &Match{Product: hits[0], Strategy: strategy, NeedsConfirmation: guess}, nil
	}

	names := make([]string, 0, len(hits))
	for _, p := range hits {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	if len(names) > maxCandidates {
		names = names[:maxCandidates]
	}
	return nil, &apperr.AmbiguousMatchError{Input: scan.Trimmed, Strategy: strategy, Candidates: names}
}
