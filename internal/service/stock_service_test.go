package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filtrotek/storefront/pkg/erp"
)

func TestStockResolver(t *testing.T) {
	linked := filterProduct(1, "F-100", "100", 4)
	linked.ERPID = strPtr("erp-1")

	t.Run("by item code", func(t *testing.T) {
		r := NewStockResolver(newFakeERP(erp.Product{ID: "erp-1", Code: "F-100", Inventory: 9}))
		assert.Equal(t, StockLevel{Available: 9, Source: StockSourceERP}, r.Resolve(context.Background(), &linked))
	})

	t.Run("by erp id when code is unknown", func(t *testing.T) {
		r := NewStockResolver(newFakeERP(erp.Product{ID: "erp-1", Code: "OTHER", Inventory: 6}))
		assert.Equal(t, StockLevel{Available: 6, Source: StockSourceERP}, r.Resolve(context.Background(), &linked))
	})

	t.Run("erp error falls back", func(t *testing.T) {
		lookup := newFakeERP()
		lookup.err = errors.New("connection refused")
		r := NewStockResolver(lookup)
		assert.Equal(t, StockLevel{Available: 4, Source: StockSourceLocal}, r.Resolve(context.Background(), &linked))
	})

	t.Run("no reference", func(t *testing.T) {
		p := filterProduct(2, "", "100", 3)
		r := NewStockResolver(newFakeERP())
		assert.Equal(t, StockSourceLocal, r.Resolve(context.Background(), &p).Source)
	})

	t.Run("disabled", func(t *testing.T) {
		r := NewStockResolver(nil)
		assert.Equal(t, 4, r.Resolve(context.Background(), &linked).Available)
	})
}

func TestStockCheck(t *testing.T) {
	svc := NewStockService(
		newFakeProducts(filterProduct(1, "F-100", "100", 2)),
		NewStockResolver(nil),
	)

	res, err := svc.Check(context.Background(), &StockCheckRequest{Items: []StockCheckItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 1, Quantity: 5},
		{ProductID: 99, Quantity: 1},
	}})
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.True(t, res[0].Sufficient)
	assert.Equal(t, "Filtro F-100", res[0].ProductName)

	assert.False(t, res[1].Sufficient)
	assert.Equal(t, "Stock insuficiente para Filtro F-100. Disponible: 2, Solicitado: 5", res[1].Message)

	assert.False(t, res[2].Sufficient)
	assert.Equal(t, "Producto no encontrado", res[2].Message)
}
