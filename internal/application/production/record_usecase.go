package production

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/internal/domain/production"
	"github.com/jhoicas/produccion-pesquera/internal/domain/repository"
)

// RecordUseCase casos de uso de registros de producción del lado servidor.
// Todas las operaciones están acotadas a la empresa del token (companyID).
type RecordUseCase struct {
	txRunner TxRunner
	records  repository.ProductionRecordRepository
	stock    repository.StockBoxRepository
	log      zerolog.Logger
	now      func() time.Time
}

// NewRecordUseCase construye el caso de uso.
func NewRecordUseCase(
	txRunner TxRunner,
	records repository.ProductionRecordRepository,
	stock repository.StockBoxRepository,
	log zerolog.Logger,
) *RecordUseCase {
	return &RecordUseCase{
		txRunner: txRunner,
		records:  records,
		stock:    stock,
		log:      log,
		now:      time.Now,
	}
}

// CostBreakdown reparto de costo de una salida: fuentes explícitas o prorrateo automático.
type CostBreakdown struct {
	OutputID      string
	TotalWeightKg decimal.Decimal
	Automatic     bool
	Sources       []entity.CostSource
}

// Get devuelve el registro completo con sus totales.
func (uc *RecordUseCase) Get(ctx context.Context, companyID, recordID string) (*entity.ProductionRecord, error) {
	rec, err := loadRecord(ctx, uc.records, companyID, recordID)
	if err != nil {
		return nil, err
	}
	out := production.WithTotals(*rec)
	return &out, nil
}

// ListSiblings lista las cabeceras de la producción excluyendo excludeID (puede ser vacío).
func (uc *RecordUseCase) ListSiblings(ctx context.Context, companyID, productionID, excludeID string) ([]entity.ProductionRecord, error) {
	if productionID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.records.ListByProduction(ctx, companyID, productionID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.ProductionRecord, 0, len(list))
	for _, r := range list {
		if r.ID != excludeID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Create crea un registro en la producción. Si trae padre, debe pertenecer a la misma producción.
func (uc *RecordUseCase) Create(ctx context.Context, companyID, productionID string, fields entity.RecordFields) (*entity.ProductionRecord, error) {
	if strings.TrimSpace(productionID) == "" {
		return nil, fmt.Errorf("%w: producción obligatoria", domain.ErrInvalidInput)
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	if fields.ParentRecordID != nil {
		siblings, err := uc.records.ListByProduction(ctx, companyID, productionID)
		if err != nil {
			return nil, err
		}
		if !containsID(siblings, *fields.ParentRecordID) {
			return nil, fmt.Errorf("%w: el registro padre no pertenece a la producción", domain.ErrInvalidInput)
		}
	}

	now := uc.now()
	rec := &entity.ProductionRecord{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		ProductionID:   productionID,
		ParentRecordID: fields.ParentRecordID,
		ProcessID:      fields.ProcessID,
		StartedAt:      fields.StartedAt,
		FinishedAt:     fields.FinishedAt,
		Notes:          fields.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	uc.log.Info().Str("record_id", rec.ID).Str("production_id", productionID).Msg("registro de producción creado")
	return uc.Get(ctx, companyID, rec.ID)
}

// Update actualiza la cabecera validando el árbol: el nuevo padre no puede ser el registro ni un descendiente,
// y las fuentes existentes deben seguir siendo del tipo que corresponde (raíz ↔ hijo).
func (uc *RecordUseCase) Update(ctx context.Context, companyID, recordID string, fields entity.RecordFields) (*entity.ProductionRecord, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	rec, err := uc.Get(ctx, companyID, recordID)
	if err != nil {
		return nil, err
	}
	if fields.ParentRecordID != nil {
		siblings, err := uc.records.ListByProduction(ctx, companyID, rec.ProductionID)
		if err != nil {
			return nil, err
		}
		parentID := *fields.ParentRecordID
		if err := production.ValidateParent(parentID, rec.ID, production.Descendants(rec.ID, siblings)); err != nil {
			return nil, err
		}
		if !containsID(siblings, parentID) {
			return nil, fmt.Errorf("%w: el registro padre no pertenece a la producción", domain.ErrInvalidInput)
		}
	}

	next := rec.Clone()
	next.ProcessID = fields.ProcessID
	next.ParentRecordID = fields.ParentRecordID
	next.StartedAt = fields.StartedAt
	next.FinishedAt = fields.FinishedAt
	next.Notes = fields.Notes
	next.UpdatedAt = uc.now()
	if err := production.ValidateRecordSources(next); err != nil {
		return nil, err
	}
	if err := uc.records.UpdateHeader(ctx, &next); err != nil {
		return nil, err
	}
	return uc.Get(ctx, companyID, recordID)
}

// ReplaceInputs reemplaza las entradas del registro (cajas de stock consumidas).
func (uc *RecordUseCase) ReplaceInputs(ctx context.Context, companyID, recordID string, inputs []entity.RecordInput) (*entity.ProductionRecord, error) {
	if _, err := uc.Get(ctx, companyID, recordID); err != nil {
		return nil, err
	}
	lines := entity.CloneInputs(inputs)
	for i := range lines {
		if lines[i].BoxID == "" || lines[i].WeightKg.IsNegative() || !production.ValidAmount(lines[i].WeightKg) {
			return nil, fmt.Errorf("%w: entrada %d sin caja o con peso inválido", domain.ErrInvalidInput, i)
		}
		if lines[i].ID == "" {
			lines[i].ID = uuid.New().String()
		}
	}
	err := uc.txRunner.Run(ctx, func(records repository.ProductionRecordRepository) error {
		return records.ReplaceInputs(ctx, recordID, lines)
	})
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, companyID, recordID)
}

// ReplaceOutputs reemplaza las salidas con sus fuentes. Cada salida con fuentes explícitas debe sumar 100%.
// Una salida ya consumida por registros hijos no se puede quitar ni dejar por debajo de lo consumido.
func (uc *RecordUseCase) ReplaceOutputs(ctx context.Context, companyID, recordID string, outputs []entity.RecordOutput) (*entity.ProductionRecord, error) {
	rec, err := uc.Get(ctx, companyID, recordID)
	if err != nil {
		return nil, err
	}
	lines := entity.CloneOutputs(outputs)
	totals := make(map[string]decimal.Decimal, len(lines))
	for i := range lines {
		if lines[i].TotalWeightKg.IsNegative() || !production.ValidAmount(lines[i].TotalWeightKg) {
			return nil, fmt.Errorf("%w: salida %d con peso inválido", domain.ErrInvalidInput, i)
		}
		if !production.ValidAmount(lines[i].TaxRate) {
			return nil, fmt.Errorf("%w: salida %d con tasa fuera de rango", domain.ErrInvalidInput, i)
		}
		if lines[i].ID == "" {
			lines[i].ID = uuid.New().String()
		}
		if err := uc.checkSources(*rec, lines[i]); err != nil {
			return nil, err
		}
		totals[lines[i].ID] = totals[lines[i].ID].Add(lines[i].TotalWeightKg)
	}
	err = uc.txRunner.Run(ctx, func(records repository.ProductionRecordRepository) error {
		if err := records.LockRecord(ctx, recordID); err != nil {
			return err
		}
		current, err := loadRecord(ctx, records, companyID, recordID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(current.Outputs))
		for _, o := range current.Outputs {
			ids = append(ids, o.ID)
		}
		consumed, err := records.ConsumedWeightByOutput(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			used := consumed[id]
			if !used.IsPositive() {
				continue
			}
			total, ok := totals[id]
			if !ok {
				return fmt.Errorf("%w: la salida %s tiene %s kg consumidos por registros hijos", domain.ErrConflict, id, used.String())
			}
			if total.LessThan(used) {
				return fmt.Errorf("%w: la salida %s no puede bajar de %s kg ya consumidos", domain.ErrConflict, id, used.String())
			}
		}
		return records.ReplaceOutputs(ctx, recordID, lines)
	})
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, companyID, recordID)
}

// ReplaceConsumptions reemplaza los consumos de salidas del padre. Solo aplica a registros hijos
// y ningún consumo puede exceder el peso aún disponible de la salida. El disponible se calcula dentro
// de la transacción con el padre bloqueado.
func (uc *RecordUseCase) ReplaceConsumptions(ctx context.Context, companyID, recordID string, consumptions []entity.Consumption) (*entity.ProductionRecord, error) {
	rec, err := uc.Get(ctx, companyID, recordID)
	if err != nil {
		return nil, err
	}
	if rec.IsRoot() {
		if len(consumptions) == 0 {
			return rec, nil
		}
		return nil, fmt.Errorf("%w: un registro raíz solo consume stock", domain.ErrSourceTypeMismatch)
	}
	parentID := *rec.ParentRecordID

	lines := entity.CloneConsumptions(consumptions)
	for i := range lines {
		if !lines[i].WeightKg.IsPositive() || !production.ValidAmount(lines[i].WeightKg) {
			return nil, fmt.Errorf("%w: consumo %d sin peso o fuera de rango", domain.ErrInvalidInput, i)
		}
		if lines[i].ID == "" {
			lines[i].ID = uuid.New().String()
		}
	}

	err = uc.txRunner.Run(ctx, func(records repository.ProductionRecordRepository) error {
		if err := records.LockRecord(ctx, parentID); err != nil {
			return fmt.Errorf("registro padre: %w", err)
		}
		current, err := loadRecord(ctx, records, companyID, recordID)
		if err != nil {
			return err
		}
		if current.ParentRecordID == nil || *current.ParentRecordID != parentID {
			return fmt.Errorf("%w: el padre del registro cambió", domain.ErrConflict)
		}
		available, err := availableByOutput(ctx, records, companyID, *current)
		if err != nil {
			return err
		}
		requested := make(map[string]decimal.Decimal, len(lines))
		for i := range lines {
			src, ok := available[lines[i].ParentOutputID]
			if !ok {
				return fmt.Errorf("%w: la salida %s no pertenece al registro padre", domain.ErrInvalidInput, lines[i].ParentOutputID)
			}
			if lines[i].ProductID == "" {
				lines[i].ProductID = src.ProductID
			}
			requested[src.OutputID] = requested[src.OutputID].Add(lines[i].WeightKg)
		}
		for outputID, w := range requested {
			if w.GreaterThan(available[outputID].AvailableWeightKg) {
				return fmt.Errorf("%w: el consumo de la salida %s excede el peso disponible", domain.ErrInvalidInput, outputID)
			}
		}
		return records.ReplaceConsumptions(ctx, recordID, lines)
	})
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, companyID, recordID)
}

// SaveCostSources reemplaza las fuentes de costo de una salida.
func (uc *RecordUseCase) SaveCostSources(ctx context.Context, companyID, recordID, outputID string, sources []entity.CostSource) (*entity.ProductionRecord, error) {
	rec, err := uc.Get(ctx, companyID, recordID)
	if err != nil {
		return nil, err
	}
	out, ok := findOutput(*rec, outputID)
	if !ok {
		return nil, fmt.Errorf("%w: salida %s", domain.ErrNotFound, outputID)
	}
	out.CostSources = entity.CloneCostSources(sources)
	if err := uc.checkSources(*rec, out); err != nil {
		return nil, err
	}
	err = uc.txRunner.Run(ctx, func(records repository.ProductionRecordRepository) error {
		return records.ReplaceCostSources(ctx, outputID, out.CostSources)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Debug().Str("record_id", recordID).Str("output_id", outputID).Int("sources", len(sources)).
		Msg("fuentes de costo guardadas")
	return uc.Get(ctx, companyID, recordID)
}

// ListStockSources cajas de stock disponibles para un registro raíz.
func (uc *RecordUseCase) ListStockSources(ctx context.Context, companyID, recordID string) ([]entity.StockSource, error) {
	rec, err := uc.Get(ctx, companyID, recordID)
	if err != nil {
		return nil, err
	}
	if !rec.IsRoot() {
		return nil, fmt.Errorf("%w: un registro hijo consume salidas del padre", domain.ErrSourceTypeMismatch)
	}
	return uc.stock.ListAvailable(ctx, companyID)
}

// ListParentOutputSources salidas del registro padre con su peso disponible (total menos lo ya consumido).
func (uc *RecordUseCase) ListParentOutputSources(ctx context.Context, companyID, recordID string) ([]entity.ParentOutputSource, error) {
	rec, err := uc.Get(ctx, companyID, recordID)
	if err != nil {
		return nil, err
	}
	if rec.IsRoot() {
		return nil, fmt.Errorf("%w: un registro raíz solo consume stock", domain.ErrSourceTypeMismatch)
	}
	available, err := availableByOutput(ctx, uc.records, companyID, *rec)
	if err != nil {
		return nil, err
	}
	parent, err := uc.Get(ctx, companyID, *rec.ParentRecordID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.ParentOutputSource, 0, len(parent.Outputs))
	for _, o := range parent.Outputs {
		out = append(out, available[o.ID])
	}
	return out, nil
}

// CostBreakdown devuelve las fuentes explícitas de la salida o, si no tiene, el prorrateo automático
// sobre los orígenes elegibles del registro.
func (uc *RecordUseCase) CostBreakdown(ctx context.Context, companyID, recordID, outputID string) (*CostBreakdown, error) {
	rec, err := uc.Get(ctx, companyID, recordID)
	if err != nil {
		return nil, err
	}
	out, ok := findOutput(*rec, outputID)
	if !ok {
		return nil, fmt.Errorf("%w: salida %s", domain.ErrNotFound, outputID)
	}
	if len(out.CostSources) > 0 {
		return &CostBreakdown{OutputID: out.ID, TotalWeightKg: out.TotalWeightKg, Sources: out.CostSources}, nil
	}
	return &CostBreakdown{
		OutputID:      out.ID,
		TotalWeightKg: out.TotalWeightKg,
		Automatic:     true,
		Sources:       production.ProportionalSplit(out.TotalWeightKg, production.EligibleSources(*rec)),
	}, nil
}

// availableByOutput calcula el disponible de cada salida del padre sin contar los consumos del propio registro,
// que van a ser reemplazados. records puede ser el repositorio del pool o el de una transacción.
func availableByOutput(ctx context.Context, records repository.ProductionRecordRepository, companyID string, rec entity.ProductionRecord) (map[string]entity.ParentOutputSource, error) {
	parent, err := loadRecord(ctx, records, companyID, *rec.ParentRecordID)
	if err != nil {
		return nil, fmt.Errorf("registro padre: %w", err)
	}
	ids := make([]string, 0, len(parent.Outputs))
	for _, o := range parent.Outputs {
		ids = append(ids, o.ID)
	}
	consumed, err := records.ConsumedWeightByOutput(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range rec.ParentOutputConsumptions {
		if w, ok := consumed[c.ParentOutputID]; ok {
			consumed[c.ParentOutputID] = w.Sub(c.WeightKg)
		}
	}
	out := make(map[string]entity.ParentOutputSource, len(parent.Outputs))
	for _, o := range parent.Outputs {
		used := consumed[o.ID]
		avail := o.TotalWeightKg.Sub(used)
		if avail.IsNegative() {
			avail = decimal.Zero
		}
		out[o.ID] = entity.ParentOutputSource{
			ParentRecordID:    parent.ID,
			OutputID:          o.ID,
			ProductID:         o.ProductID,
			TotalWeightKg:     o.TotalWeightKg,
			ConsumedWeightKg:  used,
			AvailableWeightKg: avail,
		}
	}
	return out, nil
}

// checkSources valida las fuentes de una salida: tipo según raíz o hijo, referencia entre los orígenes
// elegibles del registro (cajas de sus entradas o sus consumos) y reparto completo.
func (uc *RecordUseCase) checkSources(rec entity.ProductionRecord, out entity.RecordOutput) error {
	eligible := make(map[string]bool)
	for _, opt := range production.EligibleSources(rec) {
		eligible[opt.ReferenceID] = true
	}
	for _, src := range out.CostSources {
		if !src.SourceType.Valid() || src.ReferenceID == "" {
			return fmt.Errorf("%w: fuente de costo inválida", domain.ErrInvalidInput)
		}
		if err := production.ValidateSourceType(rec, src); err != nil {
			return err
		}
		if !eligible[src.ReferenceID] {
			return fmt.Errorf("%w: %s no es un origen del registro", domain.ErrInvalidInput, src.ReferenceID)
		}
	}
	return production.ValidateAllocation(out)
}

// loadRecord lee el registro con records y lo acota a la empresa.
func loadRecord(ctx context.Context, records repository.ProductionRecordRepository, companyID, recordID string) (*entity.ProductionRecord, error) {
	rec, err := records.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func validateFields(fields entity.RecordFields) error {
	if strings.TrimSpace(fields.ProcessID) == "" {
		return domain.ErrMissingProcessType
	}
	if fields.StartedAt.IsZero() {
		return fmt.Errorf("%w: la fecha de inicio es obligatoria", domain.ErrInvalidInput)
	}
	if fields.FinishedAt != nil && fields.FinishedAt.Before(fields.StartedAt) {
		return fmt.Errorf("%w: la fecha de fin es anterior al inicio", domain.ErrInvalidInput)
	}
	return nil
}

func findOutput(rec entity.ProductionRecord, outputID string) (entity.RecordOutput, bool) {
	for _, o := range rec.Outputs {
		if o.ID == outputID {
			return o, true
		}
	}
	return entity.RecordOutput{}, false
}

func containsID(records []entity.ProductionRecord, id string) bool {
	for _, r := range records {
		if r.ID == id {
			return true
		}
	}
	return false
}
