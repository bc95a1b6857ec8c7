package entity

import "github.com/shopspring/decimal"

// CostSourceType origen de una contribución de costo.
type CostSourceType string

// Tipos de origen de costo.
const (
	SourceStockBox     CostSourceType = "stock_box"     // caja/lote de stock (registros raíz)
	SourceParentOutput CostSourceType = "parent_output" // consumo de salida del padre (registros hijos)
)

// Valid indica si el tipo es uno de los conocidos.
func (t CostSourceType) Valid() bool {
	return t == SourceStockBox || t == SourceParentOutput
}

// CostSource atribuye una fracción del peso de una salida a un origen concreto.
// Peso y porcentaje se mantienen consistentes: weight = pct/100 * TotalWeightKg de la salida.
type CostSource struct {
	SourceType             CostSourceType
	ReferenceID            string
	ContributedWeightKg    decimal.NullDecimal
	ContributionPercentage decimal.NullDecimal
}

// HasValue indica si la fuente tiene peso o porcentaje explícito.
func (s CostSource) HasValue() bool {
	return s.ContributedWeightKg.Valid || s.ContributionPercentage.Valid
}

// CloneCostSources copia el slice (nil se conserva como nil).
func CloneCostSources(in []CostSource) []CostSource {
	if in == nil {
		return nil
	}
	out := make([]CostSource, len(in))
	copy(out, in)
	return out
}
