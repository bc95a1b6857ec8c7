package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
)

// ProductionRecordRepository define el puerto de persistencia de los registros de producción.
// Usable sobre el pool o dentro de una transacción (ver TxRunner de la capa de aplicación).
type ProductionRecordRepository interface {
	// Create persiste la cabecera del registro (sin líneas).
	Create(ctx context.Context, record *entity.ProductionRecord) error
	// UpdateHeader actualiza proceso, padre, fechas y notas.
	UpdateHeader(ctx context.Context, record *entity.ProductionRecord) error
	// GetByID devuelve el agregado completo (entradas, salidas con fuentes y consumos) o nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.ProductionRecord, error)
	// ListByProduction devuelve solo cabeceras de los registros de la producción.
	ListByProduction(ctx context.Context, companyID, productionID string) ([]entity.ProductionRecord, error)

	ReplaceInputs(ctx context.Context, recordID string, inputs []entity.RecordInput) error
	// ReplaceOutputs reemplaza las salidas junto con sus fuentes de costo.
	ReplaceOutputs(ctx context.Context, recordID string, outputs []entity.RecordOutput) error
	ReplaceConsumptions(ctx context.Context, recordID string, consumptions []entity.Consumption) error
	ReplaceCostSources(ctx context.Context, outputID string, sources []entity.CostSource) error

	// LockRecord bloquea el registro hasta el fin de la transacción. Serializa los consumos de las salidas
	// de un padre contra otros consumos y contra el reemplazo de esas salidas.
	LockRecord(ctx context.Context, id string) error
	// ConsumedWeightByOutput suma, por salida, el peso consumido por todos los registros hijos.
	ConsumedWeightByOutput(ctx context.Context, outputIDs []string) (map[string]decimal.Decimal, error)
}

// StockBoxRepository consulta las cajas de stock con peso disponible.
type StockBoxRepository interface {
	ListAvailable(ctx context.Context, companyID string) ([]entity.StockSource, error)
}
