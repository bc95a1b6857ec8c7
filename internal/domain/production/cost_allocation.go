package production

import (
	"fmt"
	"strings"

	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	// AllocationEpsilon tolerancia para considerar que los porcentajes suman 100.
	AllocationEpsilon = decimal.RequireFromString("0.01")
)

const (
	// percentageScale decimales del porcentaje en el reparto automático.
	percentageScale = 4
	// MaxAmountExponent exponente decimal máximo (en valor absoluto) aceptado en pesos, porcentajes y tasas.
	// Fuera de ese rango la aritmética de decimal crece sin cota.
	MaxAmountExponent = 20
)

// ValidAmount indica si el exponente de d está dentro de ±MaxAmountExponent.
func ValidAmount(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp <= MaxAmountExponent && exp >= -MaxAmountExponent
}

// ParseAmount interpreta el texto escrito por el usuario (peso o porcentaje).
// Vacío = nulo; texto no numérico o con exponente fuera de rango = 0 (no se rechaza para no bloquear
// la edición). Acepta coma como separador decimal.
func ParseAmount(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.NullDecimal{}
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !ValidAmount(d) {
		return decimal.NewNullDecimal(decimal.Zero)
	}
	return decimal.NewNullDecimal(d)
}

// SetWeight fija el peso aportado por la fuente en index y recalcula solo su porcentaje.
// Devuelve un slice nuevo; el original no se modifica. No redistribuye las demás fuentes.
func SetWeight(sources []entity.CostSource, index int, raw string, totalWeightKg decimal.Decimal) ([]entity.CostSource, error) {
	if err := checkIndex(sources, index); err != nil {
		return nil, err
	}
	out := entity.CloneCostSources(sources)
	src := &out[index]
	w := ParseAmount(raw)
	if !w.Valid {
		src.ContributedWeightKg = decimal.NullDecimal{}
		src.ContributionPercentage = decimal.NullDecimal{}
		return out, nil
	}
	src.ContributedWeightKg = w
	if totalWeightKg.GreaterThan(decimal.Zero) {
		src.ContributionPercentage = decimal.NewNullDecimal(w.Decimal.Mul(hundred).Div(totalWeightKg))
	}
	return out, nil
}

// SetPercentage fija el porcentaje de la fuente en index y recalcula solo su peso.
func SetPercentage(sources []entity.CostSource, index int, raw string, totalWeightKg decimal.Decimal) ([]entity.CostSource, error) {
	if err := checkIndex(sources, index); err != nil {
		return nil, err
	}
	out := entity.CloneCostSources(sources)
	src := &out[index]
	p := ParseAmount(raw)
	if !p.Valid {
		src.ContributedWeightKg = decimal.NullDecimal{}
		src.ContributionPercentage = decimal.NullDecimal{}
		return out, nil
	}
	src.ContributionPercentage = p
	if totalWeightKg.GreaterThan(decimal.Zero) {
		src.ContributedWeightKg = decimal.NewNullDecimal(p.Decimal.Mul(totalWeightKg).Div(hundred))
	}
	return out, nil
}

// PercentageSum suma los porcentajes explícitos (nulo cuenta como 0).
func PercentageSum(sources []entity.CostSource) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range sources {
		if s.ContributionPercentage.Valid {
			sum = sum.Add(s.ContributionPercentage.Decimal)
		}
	}
	return sum
}

// IsComplete indica si hay fuentes y sus porcentajes suman 100 ± 0.01.
func IsComplete(sources []entity.CostSource) bool {
	if len(sources) == 0 {
		return false
	}
	return PercentageSum(sources).Sub(hundred).Abs().LessThan(AllocationEpsilon)
}

// AddSource agrega una fuente en cero al final. No renormaliza las existentes.
func AddSource(sources []entity.CostSource, sourceType entity.CostSourceType, referenceID string) []entity.CostSource {
	out := make([]entity.CostSource, 0, len(sources)+1)
	out = append(out, sources...)
	return append(out, entity.CostSource{
		SourceType:             sourceType,
		ReferenceID:            referenceID,
		ContributedWeightKg:    decimal.NewNullDecimal(decimal.Zero),
		ContributionPercentage: decimal.NewNullDecimal(decimal.Zero),
	})
}

// RemoveSource elimina la fuente en index. No renormaliza las restantes.
func RemoveSource(sources []entity.CostSource, index int) ([]entity.CostSource, error) {
	if err := checkIndex(sources, index); err != nil {
		return nil, err
	}
	out := make([]entity.CostSource, 0, len(sources)-1)
	out = append(out, sources[:index]...)
	return append(out, sources[index+1:]...), nil
}

// ValidateAllocation valida el caso explícito al momento de enviar.
// Sin fuentes el reparto es automático (lo calcula el backend); con salida en 0 no hay nada que repartir.
func ValidateAllocation(output entity.RecordOutput) error {
	for i, src := range output.CostSources {
		if (src.ContributedWeightKg.Valid && !ValidAmount(src.ContributedWeightKg.Decimal)) ||
			(src.ContributionPercentage.Valid && !ValidAmount(src.ContributionPercentage.Decimal)) {
			return fmt.Errorf("%w: fuente %d de la salida %s fuera de rango", domain.ErrInvalidInput, i, output.ID)
		}
	}
	if len(output.CostSources) == 0 || !output.TotalWeightKg.GreaterThan(decimal.Zero) {
		return nil
	}
	if !IsComplete(output.CostSources) {
		return fmt.Errorf("%w: salida %s suma %s%%", domain.ErrAllocationIncomplete,
			output.ID, PercentageSum(output.CostSources).StringFixed(2))
	}
	return nil
}

// ProportionalSplit reparte totalWeightKg entre los candidatos en proporción a su peso.
// Los porcentajes se redondean a 4 decimales y el último absorbe el residuo, de modo que suman 100 exacto.
// Devuelve nil si no hay peso que repartir.
func ProportionalSplit(totalWeightKg decimal.Decimal, candidates []SourceOption) []entity.CostSource {
	sum := decimal.Zero
	for _, c := range candidates {
		if c.WeightKg.GreaterThan(decimal.Zero) {
			sum = sum.Add(c.WeightKg)
		}
	}
	if !sum.GreaterThan(decimal.Zero) {
		return nil
	}
	weighted := make([]SourceOption, 0, len(candidates))
	for _, c := range candidates {
		if c.WeightKg.GreaterThan(decimal.Zero) {
			weighted = append(weighted, c)
		}
	}
	out := make([]entity.CostSource, 0, len(weighted))
	acc := decimal.Zero
	for i, c := range weighted {
		pct := c.WeightKg.Mul(hundred).Div(sum).Round(percentageScale)
		if i == len(weighted)-1 {
			pct = hundred.Sub(acc)
		}
		acc = acc.Add(pct)
		out = append(out, entity.CostSource{
			SourceType:             c.SourceType,
			ReferenceID:            c.ReferenceID,
			ContributedWeightKg:    decimal.NewNullDecimal(pct.Mul(totalWeightKg).Div(hundred)),
			ContributionPercentage: decimal.NewNullDecimal(pct),
		})
	}
	return out
}

func checkIndex(sources []entity.CostSource, index int) error {
	if index < 0 || index >= len(sources) {
		return fmt.Errorf("%w: índice de fuente %d fuera de rango (%d fuentes)", domain.ErrInvalidInput, index, len(sources))
	}
	return nil
}
