package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/internal/domain/repository"
)

var (
	_ repository.ProductionRecordRepository = (*RecordRepo)(nil)
	_ repository.StockBoxRepository         = (*StockBoxRepo)(nil)
)

// RecordRepo implementación en memoria de ProductionRecordRepository.
type RecordRepo struct {
	db *DB
}

// NewRecordRepository construye el repositorio sobre la base.
func NewRecordRepository(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Create persiste la cabecera; un ID repetido devuelve ErrDuplicate.
func (r *RecordRepo) Create(_ context.Context, record *entity.ProductionRecord) error {
	r.db.txMu.Lock()
	defer r.db.txMu.Unlock()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.records[record.ID]; ok {
		return domain.ErrDuplicate
	}
	rec := record.Clone()
	rec.Inputs, rec.Outputs, rec.ParentOutputConsumptions = nil, nil, nil
	r.db.records[rec.ID] = rec
	r.db.markDirty(rec.ID)
	return nil
}

// UpdateHeader actualiza los campos de cabecera.
func (r *RecordRepo) UpdateHeader(_ context.Context, record *entity.ProductionRecord) error {
	return r.update(record.ID, func(rec *entity.ProductionRecord) error {
		f := record.Fields()
		rec.ProcessID = f.ProcessID
		rec.ParentRecordID = f.ParentRecordID
		rec.StartedAt = f.StartedAt
		rec.FinishedAt = f.FinishedAt
		rec.Notes = f.Notes
		rec.UpdatedAt = record.UpdatedAt
		return nil
	})
}

// GetByID devuelve una copia del agregado o nil si no existe.
func (r *RecordRepo) GetByID(_ context.Context, id string) (*entity.ProductionRecord, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	rec, ok := r.db.records[id]
	if !ok {
		return nil, nil
	}
	c := rec.Clone()
	return &c, nil
}

// ListByProduction devuelve las cabeceras ordenadas por fecha de creación.
func (r *RecordRepo) ListByProduction(_ context.Context, companyID, productionID string) ([]entity.ProductionRecord, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []entity.ProductionRecord
	for _, rec := range r.db.records {
		if rec.CompanyID != companyID || rec.ProductionID != productionID {
			continue
		}
		h := rec.Clone()
		h.Inputs, h.Outputs, h.ParentOutputConsumptions = nil, nil, nil
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RecordRepo) ReplaceInputs(_ context.Context, recordID string, inputs []entity.RecordInput) error {
	return r.update(recordID, func(rec *entity.ProductionRecord) error {
		rec.Inputs = entity.CloneInputs(inputs)
		return nil
	})
}

func (r *RecordRepo) ReplaceOutputs(_ context.Context, recordID string, outputs []entity.RecordOutput) error {
	return r.update(recordID, func(rec *entity.ProductionRecord) error {
		rec.Outputs = entity.CloneOutputs(outputs)
		return nil
	})
}

func (r *RecordRepo) ReplaceConsumptions(_ context.Context, recordID string, consumptions []entity.Consumption) error {
	return r.update(recordID, func(rec *entity.ProductionRecord) error {
		rec.ParentOutputConsumptions = entity.CloneConsumptions(consumptions)
		return nil
	})
}

// ReplaceCostSources busca la salida en todos los registros; si no existe devuelve ErrNotFound.
func (r *RecordRepo) ReplaceCostSources(_ context.Context, outputID string, sources []entity.CostSource) error {
	r.db.txMu.Lock()
	defer r.db.txMu.Unlock()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, rec := range r.db.records {
		for i := range rec.Outputs {
			if rec.Outputs[i].ID != outputID {
				continue
			}
			next := rec.Clone()
			next.Outputs[i].CostSources = entity.CloneCostSources(sources)
			r.db.records[id] = next
			r.db.markDirty(id)
			return nil
		}
	}
	return domain.ErrNotFound
}

// LockRecord solo verifica que el registro exista: las transacciones en memoria ya se ejecutan de a una.
func (r *RecordRepo) LockRecord(_ context.Context, id string) error {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if _, ok := r.db.records[id]; !ok {
		return domain.ErrNotFound
	}
	return nil
}

// ConsumedWeightByOutput suma los consumos de todos los registros por salida del padre.
func (r *RecordRepo) ConsumedWeightByOutput(_ context.Context, outputIDs []string) (map[string]decimal.Decimal, error) {
	wanted := make(map[string]bool, len(outputIDs))
	out := make(map[string]decimal.Decimal, len(outputIDs))
	for _, id := range outputIDs {
		wanted[id] = true
		out[id] = decimal.Zero
	}
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, rec := range r.db.records {
		for _, c := range rec.ParentOutputConsumptions {
			if wanted[c.ParentOutputID] {
				out[c.ParentOutputID] = out[c.ParentOutputID].Add(c.WeightKg)
			}
		}
	}
	return out, nil
}

// update toma txMu antes que mu: una escritura directa espera a la transacción en curso en vez de
// quedar pisada cuando esta copie sus registros de vuelta.
func (r *RecordRepo) update(id string, fn func(rec *entity.ProductionRecord) error) error {
	r.db.txMu.Lock()
	defer r.db.txMu.Unlock()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	next := rec.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	r.db.records[id] = next
	r.db.markDirty(id)
	return nil
}

// StockBoxRepo cajas de stock sembradas con SeedStockBoxes.
type StockBoxRepo struct {
	db *DB
}

// NewStockBoxRepository construye el repositorio de cajas.
func NewStockBoxRepository(db *DB) *StockBoxRepo {
	return &StockBoxRepo{db: db}
}

// ListAvailable devuelve las cajas de la empresa con peso disponible mayor a cero.
func (r *StockBoxRepo) ListAvailable(_ context.Context, companyID string) ([]entity.StockSource, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]entity.StockSource, 0, len(r.db.boxes[companyID]))
	for _, b := range r.db.boxes[companyID] {
		if b.AvailableWeightKg.IsPositive() {
			out = append(out, b)
		}
	}
	return out, nil
}
