// Package money converte entre valores decimais de moeda e inteiros em
// unidades mínimas (centavos). Toda aritmética monetária do sistema roda em
// int64; a conversão para decimal acontece só nas bordas (HTTP, relatórios).
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Places é o número de casas decimais da moeda
const Places = 2

var (
	scale = decimal.New(1, Places) // 100

	ErrNegative  = errors.New("amount must not be negative")
	ErrPrecision = errors.New("amount has more than 2 decimal places")
)

// ToMinor converte um decimal para unidades mínimas com arredondamento half-up
// simétrico (longe do zero) em duas casas.
func ToMinor(d decimal.Decimal) int64 {
	return RoundHalfUp(d, Places).Mul(scale).IntPart()
}

// ToDecimal converte unidades mínimas para decimal com duas casas
func ToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -Places)
}

// RoundHalfUp arredonda half-up simétrico: 2.345 -> 2.35, -2.345 -> -2.35
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// Format devolve a representação de apresentação, ex: 12345 -> "123.45"
func Format(minor int64) string {
	return ToDecimal(minor).StringFixed(Places)
}

// Parse lê um valor de entrada (ex: "100.50") e devolve unidades mínimas.
// Rejeita negativos e mais de duas casas para não perder centavos em silêncio.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, ErrNegative
	}
	if !d.Equal(d.Truncate(Places)) {
		return 0, ErrPrecision
	}
	return ToMinor(d), nil
}

// MulPercent aplica um percentual (ex: odds 285.00) a um valor em unidades
// mínimas: minor * pct / 100, arredondado half-up para a unidade mínima.
func MulPercent(minor int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(minor).
		Mul(pct).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
