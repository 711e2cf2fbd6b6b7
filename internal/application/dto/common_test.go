package dto_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
)

func TestPage_Normalize(t *testing.T) {
	cases := []struct {
		name string
		in   dto.Page
		want dto.Page
	}{
		{"vacía toma el tamaño por defecto", dto.Page{}, dto.Page{Limit: 20}},
		{"respeta lo pedido", dto.Page{Limit: 5, Offset: 10}, dto.Page{Limit: 5, Offset: 10}},
		{"recorta al máximo", dto.Page{Limit: 500}, dto.Page{Limit: 100}},
		{"offset negativo queda en cero", dto.Page{Limit: 5, Offset: -3}, dto.Page{Limit: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Normalize())
		})
	}
}

func TestPage_Meta(t *testing.T) {
	llena := dto.Page{Limit: 2}.Meta(2)
	assert.True(t, llena.HasMore)
	assert.Equal(t, 2, llena.Returned)

	parcial := dto.Page{}.Meta(3)
	assert.False(t, parcial.HasMore)
	assert.Equal(t, 20, parcial.Limit)
}

func TestValidate_LimiteFueraDeRango(t *testing.T) {
	err := dto.Validate(dto.SaleListRequest{Page: dto.Page{Limit: 101}})
	require.Error(t, err)

	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Field, "Limit")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidate_EstadoDesconocido(t *testing.T) {
	err := dto.Validate(dto.SaleListRequest{Status: "PAGADA"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.NoError(t, dto.Validate(dto.SaleListRequest{Status: "VALIDATED", From: "2026-01-31"}))
}
