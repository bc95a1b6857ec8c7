package production

import (
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ComputeTotals calcula los totales del registro (servicio de dominio, sin efectos).
// Rendimiento = PesoSalidas / PesoEntradas; 0 cuando no hay peso de entrada.
func ComputeTotals(inputs []entity.RecordInput, outputs []entity.RecordOutput) entity.Totals {
	in := decimal.Zero
	for _, i := range inputs {
		in = in.Add(i.WeightKg)
	}
	out := decimal.Zero
	for _, o := range outputs {
		out = out.Add(o.TotalWeightKg)
	}
	yield := decimal.Zero
	if in.GreaterThan(decimal.Zero) {
		yield = out.Div(in)
	}
	return entity.Totals{
		TotalInputWeightKg:  in,
		TotalOutputWeightKg: out,
		YieldRatio:          yield,
	}
}

// WithTotals devuelve el registro con los totales recalculados desde sus entradas y salidas.
func WithTotals(r entity.ProductionRecord) entity.ProductionRecord {
	r.Totals = ComputeTotals(r.Inputs, r.Outputs)
	return r
}
