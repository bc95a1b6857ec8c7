package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/produccion-pesquera/internal/application/production"
	"github.com/jhoicas/produccion-pesquera/internal/application/recordstate"
	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/internal/infrastructure/memory"
	"github.com/jhoicas/produccion-pesquera/internal/infrastructure/remote"
	apphttp "github.com/jhoicas/produccion-pesquera/internal/interfaces/http"
	"github.com/jhoicas/produccion-pesquera/pkg/config"
	pkgjwt "github.com/jhoicas/produccion-pesquera/pkg/jwt"
)

const (
	secret    = "secreto-remoto"
	companyID = "emp-remota"
)

// ─── Helpers de test ──────────────────────────────────────────────────────────

type backend struct {
	uc     *production.RecordUseCase
	client *remote.Client
}

// newBackend levanta la API real (memoria) detrás de un httptest.Server.
func newBackend(t *testing.T) backend {
	t.Helper()
	db := memory.NewDB()
	db.SeedStockBoxes(companyID, entity.StockSource{BoxID: "caja-1", ProductID: "merluza", AvailableWeightKg: decimal.NewFromInt(500)})
	uc := production.NewRecordUseCase(memory.NewTxRunner(db), memory.NewRecordRepository(db), memory.NewStockBoxRepository(db), zerolog.Nop())

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{RecordUC: uc, JWTSecret: secret})
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)

	token, err := pkgjwt.Generate(secret, "operario-1", companyID, pkgjwt.RoleProduccion, "test", time.Hour)
	require.NoError(t, err)
	return backend{uc: uc, client: remote.NewClient(config.RemoteConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, token)}
}

func (b backend) seedRoot(t *testing.T) entity.ProductionRecord {
	t.Helper()
	ctx := context.Background()
	rec, err := b.uc.Create(ctx, companyID, "prod-1", entity.RecordFields{ProcessID: "fileteado", StartedAt: time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = b.uc.ReplaceInputs(ctx, companyID, rec.ID, []entity.RecordInput{{BoxID: "caja-1", ProductID: "merluza", WeightKg: decimal.NewFromInt(200)}})
	require.NoError(t, err)
	rec, err = b.uc.ReplaceOutputs(ctx, companyID, rec.ID, []entity.RecordOutput{{ProductID: "filete", TotalWeightKg: decimal.NewFromInt(80)}})
	require.NoError(t, err)
	return *rec
}

// ─── Contra la API real ───────────────────────────────────────────────────────

func TestClient_GetRecordMapeaEntidad(t *testing.T) {
	b := newBackend(t)
	root := b.seedRoot(t)

	got, err := b.client.GetRecord(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, got.ID)
	assert.Equal(t, companyID, got.CompanyID)
	require.Len(t, got.Inputs, 1)
	assert.True(t, got.Inputs[0].WeightKg.Equal(decimal.NewFromInt(200)))
	assert.True(t, got.Totals.YieldRatio.Equal(decimal.RequireFromString("0.4")))
}

func TestClient_NoEncontrado(t *testing.T) {
	b := newBackend(t)
	_, err := b.client.GetRecord(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_CicloSeTraduceAErrCycle(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	root := b.seedRoot(t)
	child, err := b.client.CreateRecord(ctx, "prod-1", entity.RecordFields{ProcessID: "congelado", ParentRecordID: &root.ID, StartedAt: time.Now()})
	require.NoError(t, err)

	_, err = b.client.UpdateRecord(ctx, root.ID, entity.RecordFields{ProcessID: "fileteado", ParentRecordID: &child.ID, StartedAt: root.StartedAt})
	assert.ErrorIs(t, err, domain.ErrCycle)

	siblings, err := b.client.ListSiblingRecords(ctx, "prod-1", root.ID)
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Equal(t, child.ID, siblings[0].ID)
}

func TestClient_AsignacionIncompletaRechazada(t *testing.T) {
	b := newBackend(t)
	root := b.seedRoot(t)

	_, err := b.client.SaveCostSources(context.Background(), root.ID, root.Outputs[0].ID, []entity.CostSource{{
		SourceType:             entity.SourceStockBox,
		ReferenceID:            "caja-1",
		ContributionPercentage: decimal.NewNullDecimal(decimal.NewFromInt(50)),
	}})
	assert.ErrorIs(t, err, domain.ErrAllocationIncomplete)
}

func TestClient_StoreSobreAPIReal(t *testing.T) {
	b := newBackend(t)
	root := b.seedRoot(t)
	ctx := context.Background()
	outputID := root.Outputs[0].ID

	store := recordstate.NewStore(b.client)
	require.NoError(t, store.Load(ctx, root.ID))

	candidates, err := store.LoadSourceCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, candidates.Stock, 1)

	require.NoError(t, store.AddSource(outputID, entity.SourceStockBox, "caja-1"))
	require.NoError(t, store.SetSourcePercentage(outputID, 0, "100"))
	res, err := store.SubmitCostAllocation(ctx, outputID)
	require.NoError(t, err)
	require.NoError(t, res.Wait())

	persisted, err := b.uc.Get(ctx, companyID, root.ID)
	require.NoError(t, err)
	require.Len(t, persisted.Outputs[0].CostSources, 1)
	assert.True(t, persisted.Outputs[0].CostSources[0].ContributedWeightKg.Decimal.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, recordstate.StateReady, store.State())
}

// ─── Servidor simulado ────────────────────────────────────────────────────────

func TestClient_ReintentaErroresDelServidor(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"R","production_id":"prod-1","process_id":"fileteado"}`))
	}))
	t.Cleanup(srv.Close)

	client := remote.NewClient(config.RemoteConfig{BaseURL: srv.URL, Timeout: time.Second, Retries: 2}, "")
	rec, err := client.GetRecord(context.Background(), "R")
	require.NoError(t, err)
	assert.Equal(t, "R", rec.ID)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_NoReintentaErroresDeValidacion(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"MISSING_PROCESS_TYPE","message":"el tipo de proceso es obligatorio"}`))
	}))
	t.Cleanup(srv.Close)

	client := remote.NewClient(config.RemoteConfig{BaseURL: srv.URL, Retries: 3}, "tok")
	_, err := client.CreateRecord(context.Background(), "prod-1", entity.RecordFields{StartedAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrMissingProcessType)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_StatusSinCuerpo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	t.Cleanup(srv.Close)

	client := remote.NewClient(config.RemoteConfig{BaseURL: srv.URL}, "")
	_, err := client.ListEligibleParentOutputSources(context.Background(), "R")
	assert.ErrorIs(t, err, domain.ErrConflict)
}
