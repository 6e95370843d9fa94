package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdalwely/stor-sub001/internal/domain"
)

func TestCart_AddMergesSameItem(t *testing.T) {
	cart := NewDefaultCart()
	product := activeProduct("p1", 10, 20)

	_, err := cart.Add(product, 2, "")
	require.NoError(t, err)
	line, err := cart.Add(product, 3, "")
	require.NoError(t, err)

	assert.Equal(t, 5, line.Quantity)
	assert.Len(t, cart.Lines(), 1)
}

func TestCart_VariantsAreSeparateLines(t *testing.T) {
	cart := NewDefaultCart()
	product := activeProduct("p1", 10, 20)

	_, err := cart.Add(product, 1, "red")
	require.NoError(t, err)
	_, err = cart.Add(product, 1, "blue")
	require.NoError(t, err)

	assert.Len(t, cart.Lines(), 2)
}

func TestCart_AddClampsToStock(t *testing.T) {
	cart := NewDefaultCart()
	product := activeProduct("p1", 10, 5)

	line, err := cart.Add(product, 50, "")

	require.ErrorIs(t, err, domain.ErrStockExceeded)
	assert.Equal(t, 5, line.Quantity, "clamped to stock, not the requested 50")
	require.Len(t, cart.Lines(), 1)
	assert.Equal(t, 5, cart.Lines()[0].Quantity)
}

func TestCart_MergeBeyondStockClamps(t *testing.T) {
	cart := NewDefaultCart()
	product := activeProduct("p1", 10, 5)

	_, err := cart.Add(product, 4, "")
	require.NoError(t, err)
	line, err := cart.Add(product, 4, "")

	require.ErrorIs(t, err, domain.ErrStockExceeded)
	assert.Equal(t, 5, line.Quantity)
}

func TestCart_SetQuantityReplaces(t *testing.T) {
	cart := NewDefaultCart()
	product := activeProduct("p1", 10, 20)

	_, err := cart.Add(product, 2, "")
	require.NoError(t, err)
	line, err := cart.SetQuantity(product, 7, "")
	require.NoError(t, err)

	assert.Equal(t, 7, line.Quantity, "replaced, not summed")
}

func TestCart_SetQuantityZeroRemovesLine(t *testing.T) {
	cart := NewDefaultCart()
	product := activeProduct("p1", 10, 20)

	_, err := cart.Add(product, 2, "")
	require.NoError(t, err)
	_, err = cart.SetQuantity(product, 0, "")
	require.NoError(t, err)

	assert.Empty(t, cart.Lines(), "quantity zero removes the line entirely")
}

func TestCart_AddRejectsNonPositiveQuantity(t *testing.T) {
	cart := NewDefaultCart()
	product := activeProduct("p1", 10, 20)

	_, err := cart.Add(product, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = cart.Add(product, -3, "")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestCart_OutOfStockProduct(t *testing.T) {
	cart := NewDefaultCart()
	product := activeProduct("p1", 10, 0)

	_, err := cart.Add(product, 1, "")

	require.ErrorIs(t, err, domain.ErrStockExceeded)
	assert.Empty(t, cart.Lines())
}

func TestCart_RemoveMissingLine(t *testing.T) {
	cart := NewDefaultCart()
	err := cart.Remove("ghost", "")
	assert.ErrorIs(t, err, domain.ErrLineNotFound)
}

func TestCart_Clear(t *testing.T) {
	cart := NewDefaultCart()
	product := activeProduct("p1", 10, 20)
	_, err := cart.Add(product, 2, "")
	require.NoError(t, err)

	cart.Clear()
	assert.Empty(t, cart.Lines())
}
