package recordstate

import (
	"context"

	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
)

// RemoteRepository es el backend que persiste y valida los registros de producción.
// Independiente del transporte; timeouts y reintentos son responsabilidad de la implementación.
type RemoteRepository interface {
	GetRecord(ctx context.Context, recordID string) (*entity.ProductionRecord, error)
	CreateRecord(ctx context.Context, productionID string, fields entity.RecordFields) (*entity.ProductionRecord, error)
	UpdateRecord(ctx context.Context, recordID string, fields entity.RecordFields) (*entity.ProductionRecord, error)
	// ListSiblingRecords devuelve la proyección mínima de los registros de la producción (para elegir padre).
	ListSiblingRecords(ctx context.Context, productionID, excludeRecordID string) ([]entity.ProductionRecord, error)
	ListEligibleStockSources(ctx context.Context, recordID string) ([]entity.StockSource, error)
	ListEligibleParentOutputSources(ctx context.Context, recordID string) ([]entity.ParentOutputSource, error)
	// SaveCostSources reemplaza las fuentes de costo de una salida y devuelve el registro completo.
	SaveCostSources(ctx context.Context, recordID, outputID string, sources []entity.CostSource) (*entity.ProductionRecord, error)
}
