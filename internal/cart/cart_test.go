package cart

import (
	"testing"

	"github.com/ginjaninja78/shop-pos/internal/apperr"
	"github.com/ginjaninja78/shop-pos/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStock map[string]int

func (s stubStock) FindByName(name string) (domain.Product, error) {
	name = domain.CanonicalName(name)
	qty, ok := s[name]
	if !ok {
		return domain.Product{}, apperr.NotFound(name)
	}
	return domain.Product{Name: name, Quantity: qty}, nil
}

var _ StockChecker = stubStock(nil)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func product(name string) domain.Product { return domain.Product{Name: name} }

func TestAddMergesLines(t *testing.T) {
	c := New(stubStock{"MAGGI NOODLES": 10, "PARLE-G": 5})

	require.NoError(t, c.Add(product("Maggi Noodles"), 2, d("14")))
	require.NoError(t, c.Add(product("PARLE-G"), 2, d("10")))
	require.NoError(t, c.Add(product("MAGGI NOODLES"), 1, d("14")))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "MAGGI NOODLES", items[0].ProductName)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, c.Subtotal().Equal(d("62")))
	assert.Equal(t, 5, c.Units())
}

func TestAddRechecksStockOnMerge(t *testing.T) {
	c := New(stubStock{"PARLE-G": 3})
	require.NoError(t, c.Add(product("PARLE-G"), 2, d("10")))

	err := c.Add(product("PARLE-G"), 2, d("10"))
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)
	line, ok := c.Line("parle-g")
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)

	err = c.Add(product("UNKNOWN"), 1, d("1"))
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)
}

func TestAddRejectsBadInput(t *testing.T) {
	c := New(stubStock{"X": 3})
	assert.ErrorIs(t, c.Add(product("X"), 0, d("1")), apperr.ErrInvalidInput)
	assert.ErrorIs(t, c.Add(product("X"), 1, d("-1")), apperr.ErrInvalidInput)
	assert.True(t, c.IsEmpty())
}

func TestUpdateRemoveClear(t *testing.T) {
	c := New(stubStock{"MAGGI NOODLES": 10, "PARLE-G": 5})
	require.NoError(t, c.Add(product("MAGGI NOODLES"), 1, d("14")))
	require.NoError(t, c.Add(product("PARLE-G"), 1, d("10")))

	require.NoError(t, c.UpdateLine("parle-g", 4, d("9.5")))
	line, _ := c.Line("PARLE-G")
	assert.Equal(t, 4, line.Quantity)
	assert.True(t, line.UnitPrice.Equal(d("9.5")))

	assert.ErrorIs(t, c.UpdateLine("PARLE-G", 6, d("9.5")), apperr.ErrInsufficientStock)
	assert.ErrorIs(t, c.UpdateLine("VIM BAR", 1, d("1")), apperr.ErrProductNotFound)

	require.NoError(t, c.UpdateLine("PARLE-G", 0, d("0")))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Remove("maggi noodles"))
	assert.ErrorIs(t, c.Remove("maggi noodles"), apperr.ErrProductNotFound)

	require.NoError(t, c.Add(product("PARLE-G"), 1, d("10")))
	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Subtotal().IsZero())
}
