package odds

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Pools guarda o total apostado em cada lado, em unidades mínimas
type Pools struct {
	Meron int64
	Wala  int64
}

func (p Pools) Total() int64 { return p.Meron + p.Wala }

// Quote é o multiplicador de pagamento (percentual) de cada lado
type Quote struct {
	Meron decimal.Decimal
	Wala  decimal.Decimal
}

// Calculator calcula odds com uma comissão fixa (percentual, ex: 5)
type Calculator struct {
	Commission decimal.Decimal
}

func NewCalculator(commission decimal.Decimal) Calculator {
	return Calculator{Commission: commission}
}

// Percentage devolve ((total - total*comissão/100) / pool do lado) * 100,
// arredondado em duas casas. Lado sem apostas devolve 0.
// pools em unidades mínimas; a razão não depende da escala.
func Percentage(sidePool, total int64, commission decimal.Decimal) decimal.Decimal {
	if sidePool == 0 {
		return decimal.Zero
	}
	t := decimal.NewFromInt(total)
	win := t.Sub(t.Mul(commission).Div(hundred))
	return win.Div(decimal.NewFromInt(sidePool)).Mul(hundred).Round(2)
}

// Quote calcula as odds dos dois lados para os pools informados
func (c Calculator) Quote(p Pools) Quote {
	total := p.Total()
	return Quote{
		Meron: Percentage(p.Meron, total, c.Commission),
		Wala:  Percentage(p.Wala, total, c.Commission),
	}
}

// For devolve a odd de um lado ("meron" | "wala")
func (q Quote) For(side string) decimal.Decimal {
	if side == "meron" {
		return q.Meron
	}
	return q.Wala
}
