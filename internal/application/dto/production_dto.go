package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
)

// RecordFieldsRequest cabecera para crear o actualizar un registro de producción.
// parent_record_id null o ausente = registro raíz.
type RecordFieldsRequest struct {
	ProcessID      string     `json:"process_id" validate:"required"`
	ParentRecordID *string    `json:"parent_record_id"`
	StartedAt      time.Time  `json:"started_at" validate:"required"`
	FinishedAt     *time.Time `json:"finished_at"`
	Notes          string     `json:"notes"`
}

// RecordInputDTO caja de stock consumida.
type RecordInputDTO struct {
	ID        string          `json:"id,omitempty"`
	BoxID     string          `json:"box_id"`
	ProductID string          `json:"product_id"`
	Lot       string          `json:"lot"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
}

// CostSourceDTO fuente de costo de una salida. Peso y porcentaje pueden ser null (sin valor).
type CostSourceDTO struct {
	SourceType             string              `json:"source_type" validate:"oneof=stock_box parent_output"`
	ReferenceID            string              `json:"reference_id"`
	ContributedWeightKg    decimal.NullDecimal `json:"contributed_weight_kg"`
	ContributionPercentage decimal.NullDecimal `json:"contribution_percentage"`
}

// RecordOutputDTO producto obtenido, con sus fuentes de costo.
type RecordOutputDTO struct {
	ID            string          `json:"id,omitempty"`
	ProductID     string          `json:"product_id"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	CostSources   []CostSourceDTO `json:"cost_sources"`
}

// ConsumptionDTO consumo de una salida del registro padre.
type ConsumptionDTO struct {
	ID             string          `json:"id,omitempty"`
	ParentOutputID string          `json:"parent_output_id"`
	ProductID      string          `json:"product_id"`
	WeightKg       decimal.Decimal `json:"weight_kg"`
}

// TotalsDTO pesos totales y rendimiento (salida / entrada).
type TotalsDTO struct {
	TotalInputWeightKg  decimal.Decimal `json:"total_input_weight_kg"`
	TotalOutputWeightKg decimal.Decimal `json:"total_output_weight_kg"`
	YieldRatio          decimal.Decimal `json:"yield_ratio"`
}

// RecordResponse registro de producción completo.
type RecordResponse struct {
	ID                       string            `json:"id"`
	CompanyID                string            `json:"company_id"`
	ProductionID             string            `json:"production_id"`
	ParentRecordID           *string           `json:"parent_record_id"`
	ProcessID                string            `json:"process_id"`
	StartedAt                time.Time         `json:"started_at"`
	FinishedAt               *time.Time        `json:"finished_at"`
	Notes                    string            `json:"notes"`
	Inputs                   []RecordInputDTO  `json:"inputs"`
	Outputs                  []RecordOutputDTO `json:"outputs"`
	ParentOutputConsumptions []ConsumptionDTO  `json:"parent_output_consumptions"`
	Totals                   TotalsDTO         `json:"totals"`
	CreatedAt                time.Time         `json:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at"`
}

// RecordListResponse registros de una producción (solo cabeceras).
type RecordListResponse struct {
	Items []RecordResponse `json:"items"`
}

// ReplaceInputsRequest reemplazo completo de las entradas.
type ReplaceInputsRequest struct {
	Inputs []RecordInputDTO `json:"inputs"`
}

// ReplaceOutputsRequest reemplazo completo de las salidas.
type ReplaceOutputsRequest struct {
	Outputs []RecordOutputDTO `json:"outputs"`
}

// ReplaceConsumptionsRequest reemplazo completo de los consumos del padre.
type ReplaceConsumptionsRequest struct {
	Consumptions []ConsumptionDTO `json:"consumptions"`
}

// SaveCostSourcesRequest fuentes de costo de una salida. Lista vacía = reparto automático.
type SaveCostSourcesRequest struct {
	Sources []CostSourceDTO `json:"sources"`
}

// StockSourceDTO caja de stock disponible.
type StockSourceDTO struct {
	BoxID             string          `json:"box_id"`
	ProductID         string          `json:"product_id"`
	Lot               string          `json:"lot"`
	WarehouseID       string          `json:"warehouse_id"`
	AvailableWeightKg decimal.Decimal `json:"available_weight_kg"`
}

// ParentOutputSourceDTO salida del padre con su peso disponible.
type ParentOutputSourceDTO struct {
	ParentRecordID    string          `json:"parent_record_id"`
	OutputID          string          `json:"output_id"`
	ProductID         string          `json:"product_id"`
	TotalWeightKg     decimal.Decimal `json:"total_weight_kg"`
	ConsumedWeightKg  decimal.Decimal `json:"consumed_weight_kg"`
	AvailableWeightKg decimal.Decimal `json:"available_weight_kg"`
}

// CostBreakdownResponse reparto de costo de una salida; automatic = prorrateo calculado por el servidor.
type CostBreakdownResponse struct {
	OutputID      string          `json:"output_id"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
	Automatic     bool            `json:"automatic"`
	Sources       []CostSourceDTO `json:"sources"`
}

// ─── Mapeos entidad <-> DTO ───────────────────────────────────────────────────

// ToFields convierte la cabecera; un parent_record_id vacío se trata como raíz.
func (r RecordFieldsRequest) ToFields() entity.RecordFields {
	f := entity.RecordFields{
		ProcessID:  r.ProcessID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Notes:      r.Notes,
	}
	if r.ParentRecordID != nil && *r.ParentRecordID != "" {
		parent := *r.ParentRecordID
		f.ParentRecordID = &parent
	}
	return f
}

// NewRecordFieldsRequest arma el request de cabecera a partir de los campos de dominio.
func NewRecordFieldsRequest(f entity.RecordFields) RecordFieldsRequest {
	return RecordFieldsRequest{
		ProcessID:      f.ProcessID,
		ParentRecordID: f.ParentRecordID,
		StartedAt:      f.StartedAt,
		FinishedAt:     f.FinishedAt,
		Notes:          f.Notes,
	}
}

// ToRecordResponse mapea el registro (los totales deben venir ya calculados).
func ToRecordResponse(r entity.ProductionRecord) RecordResponse {
	return RecordResponse{
		ID:                       r.ID,
		CompanyID:                r.CompanyID,
		ProductionID:             r.ProductionID,
		ParentRecordID:           r.ParentRecordID,
		ProcessID:                r.ProcessID,
		StartedAt:                r.StartedAt,
		FinishedAt:               r.FinishedAt,
		Notes:                    r.Notes,
		Inputs:                   FromInputs(r.Inputs),
		Outputs:                  FromOutputs(r.Outputs),
		ParentOutputConsumptions: FromConsumptions(r.ParentOutputConsumptions),
		Totals: TotalsDTO{
			TotalInputWeightKg:  r.Totals.TotalInputWeightKg,
			TotalOutputWeightKg: r.Totals.TotalOutputWeightKg,
			YieldRatio:          r.Totals.YieldRatio,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ToEntity reconstruye el registro de dominio (usado por el cliente remoto).
func (r RecordResponse) ToEntity() entity.ProductionRecord {
	return entity.ProductionRecord{
		ID:                       r.ID,
		CompanyID:                r.CompanyID,
		ProductionID:             r.ProductionID,
		ParentRecordID:           r.ParentRecordID,
		ProcessID:                r.ProcessID,
		StartedAt:                r.StartedAt,
		FinishedAt:               r.FinishedAt,
		Notes:                    r.Notes,
		Inputs:                   ToInputs(r.Inputs),
		Outputs:                  ToOutputs(r.Outputs),
		ParentOutputConsumptions: ToConsumptions(r.ParentOutputConsumptions),
		Totals: entity.Totals{
			TotalInputWeightKg:  r.Totals.TotalInputWeightKg,
			TotalOutputWeightKg: r.Totals.TotalOutputWeightKg,
			YieldRatio:          r.Totals.YieldRatio,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func FromInputs(in []entity.RecordInput) []RecordInputDTO {
	out := make([]RecordInputDTO, 0, len(in))
	for _, i := range in {
		out = append(out, RecordInputDTO{ID: i.ID, BoxID: i.BoxID, ProductID: i.ProductID, Lot: i.Lot, WeightKg: i.WeightKg})
	}
	return out
}

func ToInputs(in []RecordInputDTO) []entity.RecordInput {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.RecordInput, 0, len(in))
	for _, i := range in {
		out = append(out, entity.RecordInput{ID: i.ID, BoxID: i.BoxID, ProductID: i.ProductID, Lot: i.Lot, WeightKg: i.WeightKg})
	}
	return out
}

func FromCostSources(in []entity.CostSource) []CostSourceDTO {
	out := make([]CostSourceDTO, 0, len(in))
	for _, s := range in {
		out = append(out, CostSourceDTO{
			SourceType:             string(s.SourceType),
			ReferenceID:            s.ReferenceID,
			ContributedWeightKg:    s.ContributedWeightKg,
			ContributionPercentage: s.ContributionPercentage,
		})
	}
	return out
}

func ToCostSources(in []CostSourceDTO) []entity.CostSource {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.CostSource, 0, len(in))
	for _, s := range in {
		out = append(out, entity.CostSource{
			SourceType:             entity.CostSourceType(s.SourceType),
			ReferenceID:            s.ReferenceID,
			ContributedWeightKg:    s.ContributedWeightKg,
			ContributionPercentage: s.ContributionPercentage,
		})
	}
	return out
}

func FromOutputs(in []entity.RecordOutput) []RecordOutputDTO {
	out := make([]RecordOutputDTO, 0, len(in))
	for _, o := range in {
		out = append(out, RecordOutputDTO{
			ID:            o.ID,
			ProductID:     o.ProductID,
			TotalWeightKg: o.TotalWeightKg,
			TaxRate:       o.TaxRate,
			CostSources:   FromCostSources(o.CostSources),
		})
	}
	return out
}

func ToOutputs(in []RecordOutputDTO) []entity.RecordOutput {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.RecordOutput, 0, len(in))
	for _, o := range in {
		out = append(out, entity.RecordOutput{
			ID:            o.ID,
			ProductID:     o.ProductID,
			TotalWeightKg: o.TotalWeightKg,
			TaxRate:       o.TaxRate,
			CostSources:   ToCostSources(o.CostSources),
		})
	}
	return out
}

func FromConsumptions(in []entity.Consumption) []ConsumptionDTO {
	out := make([]ConsumptionDTO, 0, len(in))
	for _, c := range in {
		out = append(out, ConsumptionDTO{ID: c.ID, ParentOutputID: c.ParentOutputID, ProductID: c.ProductID, WeightKg: c.WeightKg})
	}
	return out
}

func ToConsumptions(in []ConsumptionDTO) []entity.Consumption {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.Consumption, 0, len(in))
	for _, c := range in {
		out = append(out, entity.Consumption{ID: c.ID, ParentOutputID: c.ParentOutputID, ProductID: c.ProductID, WeightKg: c.WeightKg})
	}
	return out
}

func FromStockSources(in []entity.StockSource) []StockSourceDTO {
	out := make([]StockSourceDTO, 0, len(in))
	for _, s := range in {
		out = append(out, StockSourceDTO(s))
	}
	return out
}

func ToStockSources(in []StockSourceDTO) []entity.StockSource {
	out := make([]entity.StockSource, 0, len(in))
	for _, s := range in {
		out = append(out, entity.StockSource(s))
	}
	return out
}

func FromParentOutputSources(in []entity.ParentOutputSource) []ParentOutputSourceDTO {
	out := make([]ParentOutputSourceDTO, 0, len(in))
	for _, s := range in {
		out = append(out, ParentOutputSourceDTO(s))
	}
	return out
}

func ToParentOutputSources(in []ParentOutputSourceDTO) []entity.ParentOutputSource {
	out := make([]entity.ParentOutputSource, 0, len(in))
	for _, s := range in {
		out = append(out, entity.ParentOutputSource(s))
	}
	return out
}
