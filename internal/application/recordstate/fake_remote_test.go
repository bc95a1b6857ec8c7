package recordstate_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/produccion-pesquera/internal/application/recordstate"
	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
)

var _ recordstate.RemoteRepository = (*fakeRemote)(nil)

// fakeRemote repositorio remoto en memoria con fallas y bloqueos controlables desde el test.
type fakeRemote struct {
	mu      sync.Mutex
	records map[string]entity.ProductionRecord
	calls   map[string]int

	// getHook reemplaza GetRecord cuando no es nil (permite bloquear o fallar confirmaciones).
	getHook    func(ctx context.Context, id string) (*entity.ProductionRecord, error)
	createErr  error
	updateErr  error
	siblingErr error
	saveErr    error
	siblings   []entity.ProductionRecord

	lastFields  entity.RecordFields
	lastSources []entity.CostSource
	nextID      int
}

func newFakeRemote(records ...entity.ProductionRecord) *fakeRemote {
	f := &fakeRemote{records: make(map[string]entity.ProductionRecord), calls: make(map[string]int)}
	for _, r := range records {
		f.records[r.ID] = r.Clone()
	}
	return f
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) hit(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeRemote) setGetHook(fn func(ctx context.Context, id string) (*entity.ProductionRecord, error)) {
	f.mu.Lock()
	f.getHook = fn
	f.mu.Unlock()
}

func (f *fakeRemote) put(r entity.ProductionRecord) {
	f.mu.Lock()
	f.records[r.ID] = r.Clone()
	f.mu.Unlock()
}

func (f *fakeRemote) GetRecord(ctx context.Context, id string) (*entity.ProductionRecord, error) {
	f.hit("get")
	f.mu.Lock()
	hook := f.getHook
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := r.Clone()
	return &c, nil
}

func (f *fakeRemote) CreateRecord(_ context.Context, productionID string, fields entity.RecordFields) (*entity.ProductionRecord, error) {
	f.hit("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFields = fields
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	r := entity.ProductionRecord{
		ID:             fmt.Sprintf("nuevo-%d", f.nextID),
		ProductionID:   productionID,
		ParentRecordID: fields.ParentRecordID,
		ProcessID:      fields.ProcessID,
		StartedAt:      fields.StartedAt,
		FinishedAt:     fields.FinishedAt,
		Notes:          fields.Notes,
	}
	f.records[r.ID] = r
	c := r.Clone()
	return &c, nil
}

func (f *fakeRemote) UpdateRecord(_ context.Context, id string, fields entity.RecordFields) (*entity.ProductionRecord, error) {
	f.hit("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFields = fields
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	r, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	r.ProcessID = fields.ProcessID
	r.ParentRecordID = fields.ParentRecordID
	r.StartedAt = fields.StartedAt
	r.FinishedAt = fields.FinishedAt
	r.Notes = fields.Notes
	f.records[id] = r
	c := r.Clone()
	return &c, nil
}

func (f *fakeRemote) ListSiblingRecords(_ context.Context, productionID, exclude string) ([]entity.ProductionRecord, error) {
	f.hit("siblings")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.siblingErr != nil {
		return nil, f.siblingErr
	}
	var out []entity.ProductionRecord
	for _, r := range f.siblings {
		if r.ProductionID == productionID && r.ID != exclude {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *fakeRemote) ListEligibleStockSources(_ context.Context, _ string) ([]entity.StockSource, error) {
	f.hit("stock")
	return []entity.StockSource{{BoxID: "caja-9", ProductID: "merluza", AvailableWeightKg: decimal.NewFromInt(25)}}, nil
}

func (f *fakeRemote) ListEligibleParentOutputSources(_ context.Context, _ string) ([]entity.ParentOutputSource, error) {
	f.hit("parent_outputs")
	return []entity.ParentOutputSource{{ParentRecordID: "R", OutputID: "s1", AvailableWeightKg: decimal.NewFromInt(10)}}, nil
}

func (f *fakeRemote) SaveCostSources(_ context.Context, recordID, outputID string, sources []entity.CostSource) (*entity.ProductionRecord, error) {
	f.hit("save_sources")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSources = entity.CloneCostSources(sources)
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	r, ok := f.records[recordID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for i := range r.Outputs {
		if r.Outputs[i].ID == outputID {
			r.Outputs[i].CostSources = entity.CloneCostSources(sources)
		}
	}
	f.records[recordID] = r.Clone()
	c := r.Clone()
	return &c, nil
}
