package production_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/internal/domain/production"
)

func sampleLines() ([]entity.RecordInput, []entity.RecordOutput) {
	inputs := []entity.RecordInput{
		{ID: "e1", BoxID: "caja-1", WeightKg: dec("120.5")},
		{ID: "e2", BoxID: "caja-2", WeightKg: dec("79.5")},
	}
	outputs := []entity.RecordOutput{
		{ID: "s1", ProductID: "filete", TotalWeightKg: dec("90")},
		{ID: "s2", ProductID: "recorte", TotalWeightKg: dec("30")},
	}
	return inputs, outputs
}

func TestComputeTotals(t *testing.T) {
	inputs, outputs := sampleLines()
	got := production.ComputeTotals(inputs, outputs)

	assert.True(t, got.TotalInputWeightKg.Equal(dec("200")))
	assert.True(t, got.TotalOutputWeightKg.Equal(dec("120")))
	assert.True(t, got.YieldRatio.Equal(dec("0.6")))
}

func TestComputeTotals_DeterministaConInstanciasDistintas(t *testing.T) {
	in1, out1 := sampleLines()
	in2, out2 := sampleLines()

	a := production.ComputeTotals(in1, out1)
	b := production.ComputeTotals(in2, out2)
	c := production.ComputeTotals(in1, out1)

	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(c))
}

func TestComputeTotals_SinEntradasRendimientoCero(t *testing.T) {
	_, outputs := sampleLines()
	got := production.ComputeTotals(nil, outputs)

	assert.True(t, got.TotalInputWeightKg.IsZero())
	assert.True(t, got.YieldRatio.IsZero(), "sin peso de entrada el rendimiento es 0, nunca NaN/Inf")
	assert.True(t, got.TotalOutputWeightKg.Equal(dec("120")))

	empty := production.ComputeTotals(nil, nil)
	assert.True(t, empty.YieldRatio.IsZero())
}

func TestWithTotals(t *testing.T) {
	inputs, outputs := sampleLines()
	r := production.WithTotals(entity.ProductionRecord{Inputs: inputs, Outputs: outputs})
	assert.True(t, r.Totals.Equal(production.ComputeTotals(inputs, outputs)))
}
