package recordstate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/internal/domain/production"
)

// AllocationState estado de la asignación de costos de una salida.
// Automatic indica que no hay fuentes explícitas y el reparto lo calcula el backend.
type AllocationState struct {
	OutputID      string
	TotalWeightKg decimal.Decimal
	Sources       []entity.CostSource
	IsComplete    bool
	Automatic     bool
}

// SourceCandidates orígenes elegibles obtenidos del servidor; solo uno de los dos viene poblado.
type SourceCandidates struct {
	Stock         []entity.StockSource
	ParentOutputs []entity.ParentOutputSource
}

// CostAllocationState devuelve las fuentes de la salida y si la asignación está completa.
func (s *Store) CostAllocationState(outputID string) (AllocationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := findOutput(&s.record, outputID)
	if err != nil {
		return AllocationState{}, err
	}
	return AllocationState{
		OutputID:      out.ID,
		TotalWeightKg: out.TotalWeightKg,
		Sources:       entity.CloneCostSources(out.CostSources),
		IsComplete:    production.IsComplete(out.CostSources),
		Automatic:     len(out.CostSources) == 0,
	}, nil
}

// SetSourceWeight edita el peso de la fuente en index y recalcula solo su porcentaje.
func (s *Store) SetSourceWeight(outputID string, index int, raw string) error {
	return s.editSources(outputID, "set_source_weight", func(o *entity.RecordOutput) error {
		next, err := production.SetWeight(o.CostSources, index, raw, o.TotalWeightKg)
		if err != nil {
			return err
		}
		o.CostSources = next
		return nil
	})
}

// SetSourcePercentage edita el porcentaje de la fuente en index y recalcula solo su peso.
func (s *Store) SetSourcePercentage(outputID string, index int, raw string) error {
	return s.editSources(outputID, "set_source_percentage", func(o *entity.RecordOutput) error {
		next, err := production.SetPercentage(o.CostSources, index, raw, o.TotalWeightKg)
		if err != nil {
			return err
		}
		o.CostSources = next
		return nil
	})
}

// AddSource agrega una fuente en cero. El tipo debe corresponder al registro (stock en raíz, salida del padre en hijo).
func (s *Store) AddSource(outputID string, sourceType entity.CostSourceType, referenceID string) error {
	if referenceID == "" {
		return fmt.Errorf("%w: referencia de la fuente vacía", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	record := s.record
	s.mu.Unlock()
	if err := production.ValidateSourceType(record, entity.CostSource{SourceType: sourceType}); err != nil {
		return err
	}
	return s.editSources(outputID, "add_source", func(o *entity.RecordOutput) error {
		o.CostSources = production.AddSource(o.CostSources, sourceType, referenceID)
		return nil
	})
}

// RemoveSource elimina la fuente en index sin renormalizar las demás.
func (s *Store) RemoveSource(outputID string, index int) error {
	return s.editSources(outputID, "remove_source", func(o *entity.RecordOutput) error {
		next, err := production.RemoveSource(o.CostSources, index)
		if err != nil {
			return err
		}
		o.CostSources = next
		return nil
	})
}

// SubmitCostAllocation persiste las fuentes de la salida. Si hay fuentes explícitas deben sumar 100%
// (ErrAllocationIncomplete, sin llamar al servidor). La confirmación sigue el protocolo de rollback.
func (s *Store) SubmitCostAllocation(ctx context.Context, outputID string) (*Sync, error) {
	var sources []entity.CostSource
	return s.mutate(ctx, "submit_cost_allocation", func(r *entity.ProductionRecord) error {
		out, err := findOutput(r, outputID)
		if err != nil {
			return err
		}
		if err := production.ValidateAllocation(*out); err != nil {
			return err
		}
		for _, src := range out.CostSources {
			if err := production.ValidateSourceType(*r, src); err != nil {
				return err
			}
		}
		sources = entity.CloneCostSources(out.CostSources)
		return nil
	}, func(ctx context.Context, r entity.ProductionRecord) (*entity.ProductionRecord, error) {
		return s.remote.SaveCostSources(ctx, r.ID, outputID, sources)
	})
}

// EligibleSources orígenes que el registro actual puede usar en sus asignaciones.
func (s *Store) EligibleSources() []production.SourceOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return production.EligibleSources(s.record)
}

// LoadSourceCandidates consulta al servidor las cajas de stock (raíz) o salidas del padre (hijo) disponibles.
func (s *Store) LoadSourceCandidates(ctx context.Context) (SourceCandidates, error) {
	s.mu.Lock()
	record := s.record
	s.mu.Unlock()
	if !record.IsPersisted() {
		return SourceCandidates{}, fmt.Errorf("%w: el registro no ha sido guardado", domain.ErrInvalidInput)
	}
	if record.IsRoot() {
		stock, err := s.remote.ListEligibleStockSources(ctx, record.ID)
		if err != nil {
			return SourceCandidates{}, fmt.Errorf("listar cajas de stock: %w", err)
		}
		return SourceCandidates{Stock: stock}, nil
	}
	parents, err := s.remote.ListEligibleParentOutputSources(ctx, record.ID)
	if err != nil {
		return SourceCandidates{}, fmt.Errorf("listar salidas del padre: %w", err)
	}
	return SourceCandidates{ParentOutputs: parents}, nil
}

// editSources mutación local (sin confirmación remota) sobre las fuentes de una salida.
func (s *Store) editSources(outputID, op string, fn func(o *entity.RecordOutput) error) error {
	_, err := s.mutate(context.Background(), op, func(r *entity.ProductionRecord) error {
		out, err := findOutput(r, outputID)
		if err != nil {
			return err
		}
		return fn(out)
	}, nil)
	return err
}

func findOutput(r *entity.ProductionRecord, outputID string) (*entity.RecordOutput, error) {
	for i := range r.Outputs {
		if r.Outputs[i].ID == outputID {
			return &r.Outputs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: salida %s", domain.ErrNotFound, outputID)
}
