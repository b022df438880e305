package barcode

import (
	"testing"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/config"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource []domain.Product

func (s staticSource) Products() []domain.Product { return s }

var _ Source = staticSource(nil)

func defaultResolver(t *testing.T, products ...domain.Product) *Resolver {
	t.Helper()
	cfg := config.Default().Resolver
	r, err := NewResolver(staticSource(products), cfg, zerolog.Nop())
	require.NoError(t, err)
	return r
}

func TestExactBarcodeBeatsSerial(t *testing.T) {
	a := domain.Product{SerialID: 1, Name: "PRODUCT A", Barcode: "123"}
	b := domain.Product{SerialID: 123, Name: "PRODUCT B"}

	m, err := defaultResolver(t, a, b).Resolve("123")
	require.NoError(t, err)
	assert.Equal(t, "PRODUCT A", m.Product.Name)
	assert.Equal(t, "exact", m.Strategy)
}

func TestSerialFallback(t *testing.T) {
	b := domain.Product{SerialID: 123, Name: "PRODUCT B"}

	m, err := defaultResolver(t, b).Resolve(" 123 ")
	require.NoError(t, err)
	assert.Equal(t, "PRODUCT B", m.Product.Name)
	assert.Equal(t, "serial", m.Strategy)
}

func TestExactMatchOnSpreadsheetMangledBarcode(t *testing.T) {
	p := domain.Product{SerialID: 1, Name: "MAGGI NOODLES", Barcode: "8.90105E+12"}

	m, err := defaultResolver(t, p).Resolve("8901050000000")
	require.NoError(t, err)
	assert.Equal(t, "MAGGI NOODLES", m.Product.Name)
	assert.Equal(t, "exact", m.Strategy)
	// Stored form is untouched.
	assert.Equal(t, "8.90105E+12", m.Product.Barcode)
}

func TestPrefixSingleHitNeedsConfirmation(t *testing.T) {
	p := domain.Product{SerialID: 1, Name: "PARLE-G", Barcode: "8901719101038"}

	m, err := defaultResolver(t, p).Resolve("8901719101099")
	require.NoError(t, err)
	assert.Equal(t, "PARLE-G", m.Product.Name)
	assert.Equal(t, "prefix", m.Strategy)
	assert.True(t, m.NeedsConfirmation)
}

func TestPrefixAmbiguityIsSurfaced(t *testing.T) {
	a := domain.Product{SerialID: 1, Name: "PARLE-G 100G", Barcode: "8901719101038"}
	b := domain.Product{SerialID: 2, Name: "PARLE-G 250G", Barcode: "8901719101045"}

	r := defaultResolver(t, a, b)
	_, err := r.Resolve("8901719101999")
	require.ErrorIs(t, err, apperr.ErrAmbiguousMatch)

	var amb *apperr.AmbiguousMatchError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, "prefix", amb.Strategy)
	assert.Equal(t, []string{"PARLE-G 100G", "PARLE-G 250G"}, amb.Candidates)

	assert.Len(t, r.Candidates("8901719101999"), 2)
}

func TestPrefixPrefersLongestSharedPrefix(t *testing.T) {
	a := domain.Product{SerialID: 1, Name: "A", Barcode: "8901719101038"}
	b := domain.Product{SerialID: 2, Name: "B", Barcode: "8901719100000"}

	// Shares 10 digits with A and only 9 with B.
	m, err := defaultResolver(t, a, b).Resolve("8901719101777")
	require.NoError(t, err)
	assert.Equal(t, "A", m.Product.Name)
}

func TestShortNumericInputSkipsPrefix(t *testing.T) {
	p := domain.Product{SerialID: 1, Name: "X", Barcode: "8901719101038"}

	_, err := defaultResolver(t, p).Resolve("8901")
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)
}

func TestNameFallback(t *testing.T) {
	maggi := domain.Product{SerialID: 1, Name: "MAGGI NOODLES"}
	masala := domain.Product{SerialID: 2, Name: "MAGGI MASALA"}
	parle := domain.Product{SerialID: 3, Name: "PARLE-G"}
	r := defaultResolver(t, maggi, masala, parle)

	m, err := r.Resolve("parle")
	require.NoError(t, err)
	assert.Equal(t, "PARLE-G", m.Product.Name)
	assert.Equal(t, "name", m.Strategy)

	_, err = r.Resolve("maggi")
	assert.ErrorIs(t, err, apperr.ErrAmbiguousMatch)

	m, err = r.Resolve("Maggi Noodles")
	require.NoError(t, err)
	assert.Equal(t, "MAGGI NOODLES", m.Product.Name)
}

func TestNotFound(t *testing.T) {
	_, err := defaultResolver(t, domain.Product{SerialID: 1, Name: "X"}).Resolve("zzz")
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)

	_, err = defaultResolver(t).Resolve("   ")
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)
}

func TestAliasAndRewriteRules(t *testing.T) {
	p := domain.Product{SerialID: 1, Name: "SURF EXCEL", Barcode: "8901030704758"}
	cfg := config.Default().Resolver
	cfg.Aliases = map[string]string{"SURF-OLD-LABEL": "8901030704758"}
	cfg.RewriteRules = []config.RewriteRule{{
		Name:    "strip-star",
		Match:   `^\*`,
		Actions: []config.RewriteAction{{Type: "strip_prefix", Value: "*"}},
	}}
	r, err := NewResolver(staticSource{p}, cfg, zerolog.Nop())
	require.NoError(t, err)

	m, err := r.Resolve("surf-old-label")
	require.NoError(t, err)
	assert.Equal(t, "alias", m.Strategy)

	m, err = r.Resolve("*8901030704758")
	require.NoError(t, err)
	assert.Equal(t, "exact", m.Strategy)
	assert.Equal(t, []string{"strip-star"}, m.Rewrites)
}

func TestCustomPipelineOrder(t *testing.T) {
	a := domain.Product{SerialID: 1, Name: "PRODUCT A", Barcode: "123"}
	b := domain.Product{SerialID: 123, Name: "PRODUCT B"}
	cfg := config.Default().Resolver
	cfg.Pipeline = []string{"serial", "exact"}

	r, err := NewResolver(staticSource{a, b}, cfg, zerolog.Nop())
	require.NoError(t, err)

	m, err := r.Resolve("123")
	require.NoError(t, err)
	assert.Equal(t, "PRODUCT B", m.Product.Name)
}

func TestUnknownMatcherRejected(t *testing.T) {
	cfg := config.Default().Resolver
	cfg.Pipeline = []string{"exact", "psychic"}
	_, err := NewResolver(staticSource{}, cfg, zerolog.Nop())
	assert.Error(t, err)
}
