package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductionRecord representa un paso de transformación dentro de una producción (un nodo del árbol).
// ID vacío = borrador aún no persistido. ParentRecordID nil = registro raíz (consume solo stock).
type ProductionRecord struct {
	ID                       string
	CompanyID                string
	ProductionID             string
	ParentRecordID           *string
	ProcessID                string
	StartedAt                time.Time
	FinishedAt               *time.Time
	Notes                    string
	Inputs                   []RecordInput
	Outputs                  []RecordOutput
	ParentOutputConsumptions []Consumption
	Totals                   Totals
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// IsRoot indica si el registro no tiene padre.
func (r *ProductionRecord) IsRoot() bool {
	return r.ParentRecordID == nil || *r.ParentRecordID == ""
}

// IsPersisted indica si el registro ya tiene ID asignado por el servidor.
func (r *ProductionRecord) IsPersisted() bool {
	return r.ID != ""
}

// Fields devuelve la cabecera editable del registro.
func (r *ProductionRecord) Fields() RecordFields {
	return RecordFields{
		ProcessID:      r.ProcessID,
		ParentRecordID: cloneString(r.ParentRecordID),
		StartedAt:      r.StartedAt,
		FinishedAt:     cloneTime(r.FinishedAt),
		Notes:          r.Notes,
	}
}

// Clone devuelve una copia profunda; los snapshots de rollback nunca comparten memoria con el estado vivo.
func (r ProductionRecord) Clone() ProductionRecord {
	out := r
	out.ParentRecordID = cloneString(r.ParentRecordID)
	out.FinishedAt = cloneTime(r.FinishedAt)
	out.Inputs = CloneInputs(r.Inputs)
	out.Outputs = CloneOutputs(r.Outputs)
	out.ParentOutputConsumptions = CloneConsumptions(r.ParentOutputConsumptions)
	return out
}

// RecordFields campos de cabecera para crear o actualizar un registro.
type RecordFields struct {
	ProcessID      string
	ParentRecordID *string
	StartedAt      time.Time
	FinishedAt     *time.Time
	Notes          string
}

// RecordInput caja/lote de stock consumido por el registro.
type RecordInput struct {
	ID        string
	BoxID     string
	ProductID string
	Lot       string
	WeightKg  decimal.Decimal
}

// RecordOutput producto obtenido por el registro.
type RecordOutput struct {
	ID            string
	ProductID     string
	TotalWeightKg decimal.Decimal
	TaxRate       decimal.Decimal // IVA: 0, 0.05, 0.19
	CostSources   []CostSource
}

// Consumption parte de una salida del registro padre consumida por un registro hijo.
type Consumption struct {
	ID             string
	ParentOutputID string
	ProductID      string
	WeightKg       decimal.Decimal
}

// Totals resumen de pesos y rendimiento del registro.
type Totals struct {
	TotalInputWeightKg  decimal.Decimal
	TotalOutputWeightKg decimal.Decimal
	YieldRatio          decimal.Decimal
}

// Equal compara por valor (no por representación interna del decimal).
func (t Totals) Equal(o Totals) bool {
	return t.TotalInputWeightKg.Equal(o.TotalInputWeightKg) &&
		t.TotalOutputWeightKg.Equal(o.TotalOutputWeightKg) &&
		t.YieldRatio.Equal(o.YieldRatio)
}

// StockSource caja de stock elegible como insumo de un registro raíz.
type StockSource struct {
	BoxID             string
	ProductID         string
	Lot               string
	WarehouseID       string
	AvailableWeightKg decimal.Decimal
}

// ParentOutputSource salida del registro padre elegible para un registro hijo.
type ParentOutputSource struct {
	ParentRecordID    string
	OutputID          string
	ProductID         string
	TotalWeightKg     decimal.Decimal
	ConsumedWeightKg  decimal.Decimal
	AvailableWeightKg decimal.Decimal
}

// CloneInputs copia el slice (nil se conserva como nil).
func CloneInputs(in []RecordInput) []RecordInput {
	if in == nil {
		return nil
	}
	out := make([]RecordInput, len(in))
	copy(out, in)
	return out
}

// CloneOutputs copia las salidas incluyendo sus fuentes de costo.
func CloneOutputs(in []RecordOutput) []RecordOutput {
	if in == nil {
		return nil
	}
	out := make([]RecordOutput, len(in))
	for i, o := range in {
		out[i] = o
		out[i].CostSources = CloneCostSources(o.CostSources)
	}
	return out
}

// CloneConsumptions copia el slice (nil se conserva como nil).
func CloneConsumptions(in []Consumption) []Consumption {
	if in == nil {
		return nil
	}
	out := make([]Consumption, len(in))
	copy(out, in)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
