package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

var (
	burger = domain.Food{ID: 1, Name: "Burger", Price: 10.99}
	fries  = domain.Food{ID: 2, Name: "Fries", Price: 8.99}
)

func TestCart_SetQuantityZeroRemovesLine(t *testing.T) {
	c := New()
	require.NoError(t, c.SetQuantity(burger, 3))

	require.NoError(t, c.SetQuantity(burger, 0))

	assert.False(t, c.Contains(burger.ID))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Quantity(burger.ID))
}

func TestCart_SetQuantityZeroOnMissingLine(t *testing.T) {
	c := New()

	require.NoError(t, c.SetQuantity(burger, 0))
	assert.Equal(t, 0, c.Len())
}

func TestCart_NewLineDefaults(t *testing.T) {
	c := New()
	require.NoError(t, c.SetQuantity(burger, 2))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, domain.OrderLine{
		FoodID:    1,
		Name:      "Burger",
		Price:     10.99,
		Quantity:  2,
		PrepNote:  "",
		OrderType: domain.OrderTypeDineIn,
	}, lines[0])
}

func TestCart_NoteAndTypePreserveQuantity(t *testing.T) {
	c := New()
	require.NoError(t, c.SetQuantity(burger, 2))

	c.SetPrepNote(burger.ID, "no onions")
	require.NoError(t, c.SetOrderType(burger.ID, domain.OrderTypeTakeaway))

	line := c.Lines()[0]
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, "no onions", line.PrepNote)
	assert.Equal(t, domain.OrderTypeTakeaway, line.OrderType)
}

func TestCart_SetQuantityKeepsNoteAndType(t *testing.T) {
	c := New()
	require.NoError(t, c.SetQuantity(burger, 1))
	c.SetPrepNote(burger.ID, "well done")
	require.NoError(t, c.SetOrderType(burger.ID, domain.OrderTypeTakeaway))

	require.NoError(t, c.SetQuantity(burger, 4))

	line := c.Lines()[0]
	assert.Equal(t, 4, line.Quantity)
	assert.Equal(t, "well done", line.PrepNote)
	assert.Equal(t, domain.OrderTypeTakeaway, line.OrderType)
}

func TestCart_SetQuantityIsIdempotent(t *testing.T) {
	c := New()
	require.NoError(t, c.SetQuantity(burger, 2))
	require.NoError(t, c.SetQuantity(burger, 2))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Quantity(burger.ID))
}

func TestCart_NoteAndTypeIgnoreMissingItems(t *testing.T) {
	c := New()

	c.SetPrepNote(burger.ID, "ghost")
	require.NoError(t, c.SetOrderType(burger.ID, domain.OrderTypeTakeaway))

	assert.Equal(t, 0, c.Len())
}

func TestCart_Validation(t *testing.T) {
	c := New()

	_, ok := apperrors.IsValidationError(c.SetQuantity(burger, -1))
	assert.True(t, ok)

	_, ok = apperrors.IsValidationError(c.SetOrderType(burger.ID, "delivery"))
	assert.True(t, ok)
}

func TestCart_Totals(t *testing.T) {
	c := New()
	require.NoError(t, c.SetQuantity(burger, 2))
	require.NoError(t, c.SetQuantity(fries, 1))

	assert.Equal(t, 3, c.TotalItems())
	assert.Equal(t, "30.97", c.FormattedTotal())
}

func TestCart_LinesKeepInsertionOrder(t *testing.T) {
	c := New()
	require.NoError(t, c.SetQuantity(fries, 1))
	require.NoError(t, c.SetQuantity(burger, 1))
	require.NoError(t, c.SetQuantity(fries, 3))

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, fries.ID, lines[0].FoodID)
	assert.Equal(t, burger.ID, lines[1].FoodID)
}

func TestCart_Clear(t *testing.T) {
	c := New()
	require.NoError(t, c.SetQuantity(fries, 1))

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, "0.00", c.FormattedTotal())
}

func TestCart_VersionCountsOnlyRealChanges(t *testing.T) {
	c := New()
	v0 := c.Version()

	require.NoError(t, c.SetQuantity(burger, 1))
	v1 := c.Version()
	assert.Greater(t, v1, v0)

	require.NoError(t, c.SetQuantity(burger, 1))
	c.SetPrepNote(burger.ID, "")
	require.NoError(t, c.SetOrderType(burger.ID, domain.OrderTypeDineIn))
	c.SetPrepNote(fries.ID, "no salt")
	assert.Equal(t, v1, c.Version())

	c.SetPrepNote(burger.ID, "well done")
	assert.Greater(t, c.Version(), v1)
}

func TestCart_RemoveUnchanged(t *testing.T) {
	c := New()
	require.NoError(t, c.SetQuantity(burger, 2))
	require.NoError(t, c.SetQuantity(fries, 1))
	submitted := c.Lines()

	c.SetPrepNote(fries.ID, "extra crispy")
	c.RemoveUnchanged(submitted)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, fries.ID, lines[0].FoodID)
	assert.Equal(t, "extra crispy", lines[0].PrepNote)
}
