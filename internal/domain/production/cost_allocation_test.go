package production_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/internal/domain/production"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ──────────────────────────────────────────────────────────────────────────────
// Escenario completo: salida de 100 kg con dos fuentes
// ──────────────────────────────────────────────────────────────────────────────

func TestAllocation_EscenarioDosFuentes(t *testing.T) {
	total := dec("100")
	var sources []entity.CostSource
	sources = production.AddSource(sources, entity.SourceStockBox, "caja-1")
	sources = production.AddSource(sources, entity.SourceStockBox, "caja-2")
	require.Len(t, sources, 2)

	sources, err := production.SetWeight(sources, 0, "60", total)
	require.NoError(t, err)
	assert.True(t, sources[0].ContributionPercentage.Decimal.Equal(dec("60")), "60 kg de 100 kg = 60%")

	sources, err = production.SetPercentage(sources, 1, "40", total)
	require.NoError(t, err)
	assert.True(t, sources[1].ContributedWeightKg.Decimal.Equal(dec("40")), "40% de 100 kg = 40 kg")

	assert.True(t, production.IsComplete(sources), "60 + 40 = 100")

	sources, err = production.RemoveSource(sources, 1)
	require.NoError(t, err)
	assert.False(t, production.IsComplete(sources), "queda 60%")
	assert.True(t, production.PercentageSum(sources).Equal(dec("60")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Ida y vuelta porcentaje → peso → porcentaje
// ──────────────────────────────────────────────────────────────────────────────

func TestAllocation_IdaYVueltaPorcentaje(t *testing.T) {
	totals := []string{"0.5", "1", "3", "100", "333.333", "1250.75", "98765.4321"}
	percentages := []string{"0", "0.01", "12.5", "33.3333", "50", "66.6667", "99.99", "100"}

	for _, tot := range totals {
		for _, pct := range percentages {
			total := dec(tot)
			sources := production.AddSource(nil, entity.SourceParentOutput, "consumo-1")

			sources, err := production.SetPercentage(sources, 0, pct, total)
			require.NoError(t, err)
			weight := sources[0].ContributedWeightKg
			require.True(t, weight.Valid)

			sources, err = production.SetWeight(sources, 0, weight.Decimal.String(), total)
			require.NoError(t, err)

			diff := sources[0].ContributionPercentage.Decimal.Sub(dec(pct)).Abs()
			assert.True(t, diff.LessThan(production.AllocationEpsilon),
				"total=%s pct=%s vuelve como %s", tot, pct, sources[0].ContributionPercentage.Decimal)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Invariante de suma: IsComplete ⇔ |Σ% − 100| < 0.01
// ──────────────────────────────────────────────────────────────────────────────

func TestAllocation_InvarianteDeSuma(t *testing.T) {
	total := dec("250")
	sources := production.AddSource(nil, entity.SourceStockBox, "a")
	sources = production.AddSource(sources, entity.SourceStockBox, "b")
	sources = production.AddSource(sources, entity.SourceStockBox, "c")

	steps := []struct {
		index  int
		weight bool
		raw    string
	}{
		{0, true, "100"},    // 40%
		{1, false, "35"},    // 35%
		{2, true, "62.5"},   // 25% → 100
		{2, false, "24.99"}, // 99.99 → fuera de tolerancia (diferencia = 0.01)
		{2, false, "24.995"},
		{1, true, ""}, // nula
		{1, false, "35"},
	}
	for _, st := range steps {
		var err error
		if st.weight {
			sources, err = production.SetWeight(sources, st.index, st.raw, total)
		} else {
			sources, err = production.SetPercentage(sources, st.index, st.raw, total)
		}
		require.NoError(t, err)

		sum := production.PercentageSum(sources)
		expected := sum.Sub(dec("100")).Abs().LessThan(dec("0.01"))
		assert.Equal(t, expected, production.IsComplete(sources), "suma=%s", sum)
	}
	assert.True(t, production.IsComplete(sources))
}

func TestAllocation_ListaVaciaNoEstaCompleta(t *testing.T) {
	assert.False(t, production.IsComplete(nil))
	assert.False(t, production.IsComplete([]entity.CostSource{}))
}

// ──────────────────────────────────────────────────────────────────────────────
// Casos borde de edición
// ──────────────────────────────────────────────────────────────────────────────

func TestSetWeight_VacioLimpiaAmbosCampos(t *testing.T) {
	sources := production.AddSource(nil, entity.SourceStockBox, "caja")
	sources, err := production.SetWeight(sources, 0, "30", dec("60"))
	require.NoError(t, err)
	require.True(t, sources[0].ContributionPercentage.Decimal.Equal(dec("50")))

	sources, err = production.SetWeight(sources, 0, "   ", dec("60"))
	require.NoError(t, err)
	assert.False(t, sources[0].ContributedWeightKg.Valid)
	assert.False(t, sources[0].ContributionPercentage.Valid)
}

func TestSetWeight_TextoInvalidoEsCero(t *testing.T) {
	sources := production.AddSource(nil, entity.SourceStockBox, "caja")
	sources, err := production.SetWeight(sources, 0, "12abc", dec("60"))
	require.NoError(t, err)
	assert.True(t, sources[0].ContributedWeightKg.Valid)
	assert.True(t, sources[0].ContributedWeightKg.Decimal.IsZero())
	assert.True(t, sources[0].ContributionPercentage.Decimal.IsZero())
}

func TestSetWeight_AceptaComaDecimal(t *testing.T) {
	sources := production.AddSource(nil, entity.SourceStockBox, "caja")
	sources, err := production.SetWeight(sources, 0, "12,5", dec("50"))
	require.NoError(t, err)
	assert.True(t, sources[0].ContributedWeightKg.Decimal.Equal(dec("12.5")))
	assert.True(t, sources[0].ContributionPercentage.Decimal.Equal(dec("25")))
}

func TestSetWeight_TotalCeroNoTocaPorcentaje(t *testing.T) {
	sources := production.AddSource(nil, entity.SourceStockBox, "caja")
	sources, err := production.SetPercentage(sources, 0, "30", dec("0"))
	require.NoError(t, err)
	sources, err = production.SetWeight(sources, 0, "5", dec("0"))
	require.NoError(t, err)
	assert.True(t, sources[0].ContributedWeightKg.Decimal.Equal(dec("5")))
	assert.True(t, sources[0].ContributionPercentage.Decimal.Equal(dec("30")))
}

func TestSetPercentage_NoRedistribuyeOtrasFuentes(t *testing.T) {
	total := dec("80")
	sources := production.AddSource(nil, entity.SourceStockBox, "a")
	sources = production.AddSource(sources, entity.SourceStockBox, "b")
	sources, _ = production.SetPercentage(sources, 0, "70", total)
	sources, _ = production.SetPercentage(sources, 1, "30", total)

	sources, err := production.SetPercentage(sources, 0, "50", total)
	require.NoError(t, err)
	assert.True(t, sources[1].ContributionPercentage.Decimal.Equal(dec("30")))
	assert.True(t, sources[1].ContributedWeightKg.Decimal.Equal(dec("24")))
}

func TestAllocation_NoModificaElSliceOriginal(t *testing.T) {
	original := production.AddSource(nil, entity.SourceStockBox, "a")
	_, err := production.SetWeight(original, 0, "10", dec("20"))
	require.NoError(t, err)
	assert.True(t, original[0].ContributedWeightKg.Decimal.IsZero(), "copy-on-write")
}

func TestAllocation_IndiceFueraDeRango(t *testing.T) {
	sources := production.AddSource(nil, entity.SourceStockBox, "a")
	_, err := production.SetWeight(sources, 1, "10", dec("20"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = production.SetPercentage(sources, -1, "10", dec("20"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = production.RemoveSource(nil, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseAmount(t *testing.T) {
	assert.False(t, production.ParseAmount("").Valid)
	assert.True(t, production.ParseAmount("x").Decimal.IsZero())
	assert.True(t, production.ParseAmount(" 7.25 ").Decimal.Equal(dec("7.25")))
	assert.True(t, production.ParseAmount("7,25").Decimal.Equal(dec("7.25")))
}

func TestParseAmount_ExponenteFueraDeRangoEsCero(t *testing.T) {
	for _, raw := range []string{"1e10000000", "1E-10000000", "5e21"} {
		got := production.ParseAmount(raw)
		require.True(t, got.Valid, raw)
		assert.True(t, got.Decimal.IsZero(), raw)
	}
	assert.True(t, production.ParseAmount("1e20").Decimal.Equal(dec("1e20")))

	sources := production.AddSource(nil, entity.SourceStockBox, "a")
	sources, err := production.SetWeight(sources, 0, "1e10000000", dec("100"))
	require.NoError(t, err)
	assert.True(t, sources[0].ContributedWeightKg.Decimal.IsZero())
	assert.True(t, sources[0].ContributionPercentage.Decimal.IsZero())
}

func TestValidAmount(t *testing.T) {
	assert.True(t, production.ValidAmount(dec("120.5")))
	assert.True(t, production.ValidAmount(dec("33.3333333333333333")))
	assert.False(t, production.ValidAmount(dec("1e21")))
	assert.False(t, production.ValidAmount(dec("1e-21")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación al enviar y reparto automático
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateAllocation(t *testing.T) {
	out := entity.RecordOutput{ID: "s1", TotalWeightKg: dec("100")}
	assert.NoError(t, production.ValidateAllocation(out), "sin fuentes = reparto automático")

	out.CostSources = production.AddSource(nil, entity.SourceStockBox, "a")
	out.CostSources, _ = production.SetPercentage(out.CostSources, 0, "90", out.TotalWeightKg)
	assert.ErrorIs(t, production.ValidateAllocation(out), domain.ErrAllocationIncomplete)

	out.CostSources, _ = production.SetPercentage(out.CostSources, 0, "100", out.TotalWeightKg)
	assert.NoError(t, production.ValidateAllocation(out))

	out.TotalWeightKg = decimal.Zero
	out.CostSources, _ = production.SetPercentage(out.CostSources, 0, "10", out.TotalWeightKg)
	assert.NoError(t, production.ValidateAllocation(out), "salida en 0 kg no se valida")

	out.CostSources[0].ContributedWeightKg = decimal.NewNullDecimal(dec("1e10000000"))
	assert.ErrorIs(t, production.ValidateAllocation(out), domain.ErrInvalidInput, "monto fuera de rango")
}

func TestProportionalSplit(t *testing.T) {
	candidates := []production.SourceOption{
		{SourceType: entity.SourceStockBox, ReferenceID: "a", WeightKg: dec("10")},
		{SourceType: entity.SourceStockBox, ReferenceID: "b", WeightKg: dec("20")},
		{SourceType: entity.SourceStockBox, ReferenceID: "c", WeightKg: dec("0")},
		{SourceType: entity.SourceStockBox, ReferenceID: "d", WeightKg: dec("30")},
	}
	split := production.ProportionalSplit(dec("90"), candidates)
	require.Len(t, split, 3, "los candidatos sin peso no participan")

	assert.Equal(t, "a", split[0].ReferenceID)
	assert.True(t, split[0].ContributionPercentage.Decimal.Equal(dec("16.6667")))
	assert.True(t, split[1].ContributionPercentage.Decimal.Equal(dec("33.3333")))
	assert.True(t, split[2].ContributionPercentage.Decimal.Equal(dec("50")))
	assert.True(t, production.PercentageSum(split).Equal(dec("100")), "suma exacta")
	assert.True(t, production.IsComplete(split))
	assert.True(t, split[2].ContributedWeightKg.Decimal.Equal(dec("45")))

	assert.Nil(t, production.ProportionalSplit(dec("90"), nil))
}
