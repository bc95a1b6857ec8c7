package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/internal/domain/repository"
)

var _ repository.ProductionRecordRepository = (*ProductionRecordRepo)(nil)

// ProductionRecordRepo implementación de ProductionRecordRepository sobre PostgreSQL (usable con pool o tx).
// Los Replace* borran e insertan las líneas; deben ejecutarse dentro de una tx (ver TxRunner).
type ProductionRecordRepo struct {
	q Querier
}

// NewProductionRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductionRecordRepository(q Querier) *ProductionRecordRepo {
	return &ProductionRecordRepo{q: q}
}

const recordColumns = `id, company_id, production_id, parent_record_id, process_id,
	started_at, finished_at, notes, created_at, updated_at`

// Create inserta la cabecera del registro.
func (r *ProductionRecordRepo) Create(ctx context.Context, rec *entity.ProductionRecord) error {
	query := `
		INSERT INTO production_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.CompanyID, rec.ProductionID, rec.ParentRecordID, rec.ProcessID,
		rec.StartedAt, rec.FinishedAt, rec.Notes, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return mapPgError("insert production record", err)
	}
	return nil
}

// UpdateHeader actualiza proceso, padre, fechas y notas.
func (r *ProductionRecordRepo) UpdateHeader(ctx context.Context, rec *entity.ProductionRecord) error {
	query := `
		UPDATE production_records
		SET process_id = $2, parent_record_id = $3, started_at = $4, finished_at = $5, notes = $6, updated_at = $7
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		rec.ID, rec.ProcessID, rec.ParentRecordID, rec.StartedAt, rec.FinishedAt, rec.Notes, rec.UpdatedAt,
	)
	if err != nil {
		return mapPgError("update production record", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID carga cabecera, entradas, salidas con sus fuentes y consumos. Devuelve nil si no existe.
func (r *ProductionRecordRepo) GetByID(ctx context.Context, id string) (*entity.ProductionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM production_records WHERE id = $1`
	rec, err := scanRecord(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get production record: %w", err)
	}
	if rec.Inputs, err = r.listInputs(ctx, id); err != nil {
		return nil, err
	}
	if rec.Outputs, err = r.listOutputs(ctx, id); err != nil {
		return nil, err
	}
	if rec.ParentOutputConsumptions, err = r.listConsumptions(ctx, id); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListByProduction devuelve las cabeceras de la producción por fecha de creación.
func (r *ProductionRecordRepo) ListByProduction(ctx context.Context, companyID, productionID string) ([]entity.ProductionRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM production_records
		WHERE company_id = $1 AND production_id = $2
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, companyID, productionID)
	if err != nil {
		return nil, fmt.Errorf("list production records: %w", err)
	}
	defer rows.Close()
	var list []entity.ProductionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan production record: %w", err)
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

func (r *ProductionRecordRepo) ReplaceInputs(ctx context.Context, recordID string, inputs []entity.RecordInput) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM record_inputs WHERE record_id = $1`, recordID); err != nil {
		return fmt.Errorf("delete record inputs: %w", err)
	}
	query := `
		INSERT INTO record_inputs (id, record_id, position, box_id, product_id, lot, weight_kg)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, in := range inputs {
		if _, err := r.q.Exec(ctx, query, in.ID, recordID, i, in.BoxID, in.ProductID, in.Lot, in.WeightKg); err != nil {
			return mapPgError("insert record input", err)
		}
	}
	return nil
}

// ReplaceOutputs reemplaza salidas y fuentes; el borrado en cascada elimina las fuentes anteriores.
func (r *ProductionRecordRepo) ReplaceOutputs(ctx context.Context, recordID string, outputs []entity.RecordOutput) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM record_outputs WHERE record_id = $1`, recordID); err != nil {
		return fmt.Errorf("delete record outputs: %w", err)
	}
	query := `
		INSERT INTO record_outputs (id, record_id, position, product_id, total_weight_kg, tax_rate)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, o := range outputs {
		if _, err := r.q.Exec(ctx, query, o.ID, recordID, i, o.ProductID, o.TotalWeightKg, o.TaxRate); err != nil {
			return mapPgError("insert record output", err)
		}
		if err := r.insertCostSources(ctx, o.ID, o.CostSources); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProductionRecordRepo) ReplaceConsumptions(ctx context.Context, recordID string, consumptions []entity.Consumption) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM record_consumptions WHERE record_id = $1`, recordID); err != nil {
		return fmt.Errorf("delete record consumptions: %w", err)
	}
	query := `
		INSERT INTO record_consumptions (id, record_id, position, parent_output_id, product_id, weight_kg)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, c := range consumptions {
		if _, err := r.q.Exec(ctx, query, c.ID, recordID, i, c.ParentOutputID, c.ProductID, c.WeightKg); err != nil {
			return mapPgError("insert record consumption", err)
		}
	}
	return nil
}

// ReplaceCostSources reemplaza las fuentes de una salida existente.
func (r *ProductionRecordRepo) ReplaceCostSources(ctx context.Context, outputID string, sources []entity.CostSource) error {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM record_outputs WHERE id = $1)`, outputID).Scan(&exists); err != nil {
		return fmt.Errorf("check record output: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM output_cost_sources WHERE output_id = $1`, outputID); err != nil {
		return fmt.Errorf("delete cost sources: %w", err)
	}
	return r.insertCostSources(ctx, outputID, sources)
}

// LockRecord toma FOR UPDATE sobre la fila del registro. Fuera de una tx el bloqueo se libera al instante.
func (r *ProductionRecordRepo) LockRecord(ctx context.Context, id string) error {
	var locked string
	err := r.q.QueryRow(ctx, `SELECT id FROM production_records WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock production record: %w", err)
	}
	return nil
}

// ConsumedWeightByOutput suma los consumos por salida; las salidas sin consumos quedan en cero.
func (r *ProductionRecordRepo) ConsumedWeightByOutput(ctx context.Context, outputIDs []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(outputIDs))
	for _, id := range outputIDs {
		out[id] = decimal.Zero
	}
	if len(outputIDs) == 0 {
		return out, nil
	}
	query := `
		SELECT parent_output_id, COALESCE(SUM(weight_kg), 0)
		FROM record_consumptions
		WHERE parent_output_id = ANY($1)
		GROUP BY parent_output_id`
	rows, err := r.q.Query(ctx, query, outputIDs)
	if err != nil {
		return nil, fmt.Errorf("sum consumptions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var w decimal.Decimal
		if err := rows.Scan(&id, &w); err != nil {
			return nil, fmt.Errorf("scan consumption sum: %w", err)
		}
		out[id] = w
	}
	return out, rows.Err()
}

func (r *ProductionRecordRepo) insertCostSources(ctx context.Context, outputID string, sources []entity.CostSource) error {
	query := `
		INSERT INTO output_cost_sources (output_id, position, source_type, reference_id, contributed_weight_kg, contribution_percentage)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, s := range sources {
		_, err := r.q.Exec(ctx, query, outputID, i, string(s.SourceType), s.ReferenceID, s.ContributedWeightKg, s.ContributionPercentage)
		if err != nil {
			return mapPgError("insert cost source", err)
		}
	}
	return nil
}

func (r *ProductionRecordRepo) listInputs(ctx context.Context, recordID string) ([]entity.RecordInput, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, box_id, product_id, lot, weight_kg
		FROM record_inputs WHERE record_id = $1 ORDER BY position`, recordID)
	if err != nil {
		return nil, fmt.Errorf("list record inputs: %w", err)
	}
	defer rows.Close()
	var list []entity.RecordInput
	for rows.Next() {
		var in entity.RecordInput
		if err := rows.Scan(&in.ID, &in.BoxID, &in.ProductID, &in.Lot, &in.WeightKg); err != nil {
			return nil, fmt.Errorf("scan record input: %w", err)
		}
		list = append(list, in)
	}
	return list, rows.Err()
}

// listOutputs carga las salidas y luego todas sus fuentes en una sola consulta.
func (r *ProductionRecordRepo) listOutputs(ctx context.Context, recordID string) ([]entity.RecordOutput, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, product_id, total_weight_kg, tax_rate
		FROM record_outputs WHERE record_id = $1 ORDER BY position`, recordID)
	if err != nil {
		return nil, fmt.Errorf("list record outputs: %w", err)
	}
	var list []entity.RecordOutput
	index := make(map[string]int)
	for rows.Next() {
		var o entity.RecordOutput
		if err := rows.Scan(&o.ID, &o.ProductID, &o.TotalWeightKg, &o.TaxRate); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan record output: %w", err)
		}
		index[o.ID] = len(list)
		list = append(list, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}

	srcRows, err := r.q.Query(ctx, `
		SELECT s.output_id, s.source_type, s.reference_id, s.contributed_weight_kg, s.contribution_percentage
		FROM output_cost_sources s
		JOIN record_outputs o ON o.id = s.output_id
		WHERE o.record_id = $1
		ORDER BY s.output_id, s.position`, recordID)
	if err != nil {
		return nil, fmt.Errorf("list cost sources: %w", err)
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var outputID, sourceType string
		var s entity.CostSource
		if err := srcRows.Scan(&outputID, &sourceType, &s.ReferenceID, &s.ContributedWeightKg, &s.ContributionPercentage); err != nil {
			return nil, fmt.Errorf("scan cost source: %w", err)
		}
		s.SourceType = entity.CostSourceType(sourceType)
		if i, ok := index[outputID]; ok {
			list[i].CostSources = append(list[i].CostSources, s)
		}
	}
	return list, srcRows.Err()
}

func (r *ProductionRecordRepo) listConsumptions(ctx context.Context, recordID string) ([]entity.Consumption, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, parent_output_id, product_id, weight_kg
		FROM record_consumptions WHERE record_id = $1 ORDER BY position`, recordID)
	if err != nil {
		return nil, fmt.Errorf("list record consumptions: %w", err)
	}
	defer rows.Close()
	var list []entity.Consumption
	for rows.Next() {
		var c entity.Consumption
		if err := rows.Scan(&c.ID, &c.ParentOutputID, &c.ProductID, &c.WeightKg); err != nil {
			return nil, fmt.Errorf("scan record consumption: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func scanRecord(row pgx.Row) (*entity.ProductionRecord, error) {
	var rec entity.ProductionRecord
	err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.ProductionID, &rec.ParentRecordID, &rec.ProcessID,
		&rec.StartedAt, &rec.FinishedAt, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
