package cart

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLine_MergesRepeatedAdds(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.AddLine(ctx, "u1", "p", 2)
	require.NoError(t, err)
	c, err := s.AddLine(ctx, "u1", "p", 3)
	require.NoError(t, err)

	assert.Equal(t, []orders.CartLine{{ProductID: "p", Quantity: 5}}, c.Lines)
}

func TestAddLine_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	for _, qty := range []int{0, -4} {
		_, err := s.AddLine(ctx, "u1", "p", qty)
		assert.True(t, orders.IsValidation(err), "qty %d", qty)
	}
	_, err := s.AddLine(ctx, "u1", "", 1)
	assert.True(t, orders.IsValidation(err))
	_, err = s.AddLine(ctx, "", "p", 1)
	assert.True(t, orders.IsValidation(err))

	c, _ := s.Get(ctx, "u1")
	assert.True(t, c.IsEmpty())
}

func TestSetQuantity(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_, _ = s.AddLine(ctx, "u1", "a", 1)
	_, _ = s.AddLine(ctx, "u1", "b", 1)

	c, err := s.SetQuantity(ctx, "u1", "a", 7)
	require.NoError(t, err)
	assert.Equal(t, []orders.CartLine{{ProductID: "a", Quantity: 7}, {ProductID: "b", Quantity: 1}}, c.Lines)

	c, err = s.SetQuantity(ctx, "u1", "a", 0)
	require.NoError(t, err)
	assert.Equal(t, []orders.CartLine{{ProductID: "b", Quantity: 1}}, c.Lines, "qty 0 removes the line")

	c, err = s.SetQuantity(ctx, "u1", "c", 2)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2, "setting an absent product creates the line")
}

func TestRemoveLineAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_, _ = s.AddLine(ctx, "u1", "a", 1)
	_, _ = s.AddLine(ctx, "u1", "b", 2)

	c, err := s.RemoveLine(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, []orders.CartLine{{ProductID: "b", Quantity: 2}}, c.Lines)

	c, err = s.RemoveLine(ctx, "u1", "zzz")
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1)

	require.NoError(t, s.Clear(ctx, "u1"))
	c, _ = s.Get(ctx, "u1")
	assert.True(t, c.IsEmpty())
	assert.NotNil(t, c.Lines)
}

func TestGet_ReturnsIndependentSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_, _ = s.AddLine(ctx, "u1", "a", 1)

	c, _ := s.Get(ctx, "u1")
	c.Lines[0].Quantity = 99

	again, _ := s.Get(ctx, "u1")
	assert.Equal(t, 1, again.Lines[0].Quantity)
}

func TestConcurrentAdds_SameUserNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	const goroutines, perG = 16, 50
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				_, err := s.AddLine(ctx, "u1", "p", 1)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	c, _ := s.Get(ctx, "u1")
	require.Len(t, c.Lines, 1)
	assert.Equal(t, goroutines*perG, c.Lines[0].Quantity)
}

func TestConcurrentAdds_DifferentUsersIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	var wg sync.WaitGroup
	for u := 0; u < 20; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", u)
			for i := 0; i <= u; i++ {
				_, _ = s.AddLine(ctx, user, "p", 1)
			}
		}(u)
	}
	wg.Wait()

	for u := 0; u < 20; u++ {
		c, _ := s.Get(ctx, fmt.Sprintf("u%d", u))
		require.Len(t, c.Lines, 1)
		assert.Equal(t, u+1, c.Lines[0].Quantity)
	}
}

func TestAddLine_RejectsQuantityPastLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.AddLine(ctx, "u1", "a", orders.MaxLineQuantity)
	require.NoError(t, err)
	_, err = s.AddLine(ctx, "u1", "a", 1)
	assert.True(t, orders.IsValidation(err))

	_, err = s.AddLine(ctx, "u1", "b", math.MaxInt)
	assert.True(t, orders.IsValidation(err))
	_, err = s.SetQuantity(ctx, "u1", "a", orders.MaxLineQuantity+1)
	assert.True(t, orders.IsValidation(err))

	c, _ := s.Get(ctx, "u1")
	assert.Equal(t, []orders.CartLine{{ProductID: "a", Quantity: orders.MaxLineQuantity}}, c.Lines,
		"rejected updates leave the cart as it was")
}

func TestDeduct_KeepsLinesChangedSinceRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_, _ = s.AddLine(ctx, "u1", "a", 1)
	_, _ = s.AddLine(ctx, "u1", "b", 2)
	ordered, _ := s.Get(ctx, "u1")

	// the user keeps shopping after the cart was read
	_, _ = s.AddLine(ctx, "u1", "b", 3)
	_, _ = s.AddLine(ctx, "u1", "c", 1)

	c, err := s.Deduct(ctx, "u1", ordered.Lines)
	require.NoError(t, err)
	assert.Equal(t, []orders.CartLine{{ProductID: "b", Quantity: 3}, {ProductID: "c", Quantity: 1}}, c.Lines)
}

func TestDeduct_EverythingOrderedEmptiesCart(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_, _ = s.AddLine(ctx, "u1", "a", 2)
	ordered, _ := s.Get(ctx, "u1")

	c, err := s.Deduct(ctx, "u1", ordered.Lines)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}
