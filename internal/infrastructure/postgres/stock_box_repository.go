package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/internal/domain/repository"
)

var _ repository.StockBoxRepository = (*StockBoxRepo)(nil)

// StockBoxRepo cajas de stock disponibles como insumo de registros raíz.
type StockBoxRepo struct {
	q Querier
}

// NewStockBoxRepository construye el adaptador de cajas de stock.
func NewStockBoxRepository(q Querier) *StockBoxRepo {
	return &StockBoxRepo{q: q}
}

// ListAvailable devuelve las cajas de la empresa con peso disponible.
func (r *StockBoxRepo) ListAvailable(ctx context.Context, companyID string) ([]entity.StockSource, error) {
	query := `
		SELECT id, product_id, lot, warehouse_id, available_weight_kg
		FROM stock_boxes
		WHERE company_id = $1 AND available_weight_kg > 0
		ORDER BY lot, id`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list stock boxes: %w", err)
	}
	defer rows.Close()
	list := []entity.StockSource{}
	for rows.Next() {
		var s entity.StockSource
		if err := rows.Scan(&s.BoxID, &s.ProductID, &s.Lot, &s.WarehouseID, &s.AvailableWeightKg); err != nil {
			return nil, fmt.Errorf("scan stock box: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
