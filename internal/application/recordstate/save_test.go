package recordstate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/produccion-pesquera/internal/application/recordstate"
	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
)

// ─── Fechas de calendario ─────────────────────────────────────────────────────

func TestParseCalendarDate_Formatos(t *testing.T) {
	loc := time.FixedZone("COT", -5*3600)
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, loc)},
		{"2024-03-15T08:30", time.Date(2024, 3, 15, 8, 30, 0, 0, loc)},
		{"2024-03-15 08:30", time.Date(2024, 3, 15, 8, 30, 0, 0, loc)},
		{"2024-03-15 08:30:15", time.Date(2024, 3, 15, 8, 30, 15, 0, loc)},
		{" 2024-03-15T08:30:15 ", time.Date(2024, 3, 15, 8, 30, 15, 0, loc)},
		{"2024-03-15T13:30:00Z", time.Date(2024, 3, 15, 8, 30, 0, 0, loc)},
	}
	for _, tc := range cases {
		got, err := recordstate.ParseCalendarDate(tc.raw, loc)
		require.NoError(t, err, tc.raw)
		require.NotNil(t, got, tc.raw)
		assert.True(t, tc.want.Equal(*got), "%s: esperado %s, obtenido %s", tc.raw, tc.want, got)
	}
}

func TestParseCalendarDate_VacioYBasura(t *testing.T) {
	got, err := recordstate.ParseCalendarDate("   ", time.UTC)
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = recordstate.ParseCalendarDate("15/03/2024", time.UTC)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ─── Guardado de cabecera ─────────────────────────────────────────────────────

func TestSaveRecord_SinProcesoNoLlamaAlServidor(t *testing.T) {
	remote := newFakeRemote()
	store := recordstate.NewStore(remote)
	store.NewDraft("prod-1", nil)

	_, err := store.SaveRecord(context.Background(), recordstate.RecordForm{ProcessID: "  ", StartedAt: "2024-03-15"})
	assert.ErrorIs(t, err, domain.ErrMissingProcessType)
	assert.Zero(t, remote.count("create"))
	assert.Zero(t, remote.count("update"))
}

func TestSaveRecord_BorradorCreaConFechasEnZonaLocal(t *testing.T) {
	loc := time.FixedZone("COT", -5*3600)
	remote := newFakeRemote()
	store := recordstate.NewStore(remote, recordstate.WithLocation(loc))
	store.NewDraft("prod-1", nil)

	saved, err := store.SaveRecord(context.Background(), recordstate.RecordForm{
		ProcessID:  "fileteado",
		StartedAt:  "2024-03-15",
		FinishedAt: "2024-03-15T17:30",
		Notes:      " lote A ",
	})
	require.NoError(t, err)
	assert.Equal(t, "nuevo-1", saved.ID)
	assert.Equal(t, 1, remote.count("create"))

	fields := remote.lastFields
	assert.Equal(t, "fileteado", fields.ProcessID)
	assert.Nil(t, fields.ParentRecordID)
	assert.True(t, fields.StartedAt.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, loc)))
	require.NotNil(t, fields.FinishedAt)
	assert.True(t, fields.FinishedAt.Equal(time.Date(2024, 3, 15, 17, 30, 0, 0, loc)))
	assert.Equal(t, "lote A", fields.Notes)

	assert.Equal(t, "nuevo-1", store.Record().ID)
	assert.Equal(t, 1, remote.count("siblings"), "tras guardar se recargan los hermanos")
}

func TestSaveRecord_FinAnteriorAlInicio(t *testing.T) {
	remote := newFakeRemote()
	store := recordstate.NewStore(remote)
	store.NewDraft("prod-1", nil)

	_, err := store.SaveRecord(context.Background(), recordstate.RecordForm{
		ProcessID:  "fileteado",
		StartedAt:  "2024-03-15T10:00",
		FinishedAt: "2024-03-15T09:00",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, remote.count("create"))
}

func TestSaveRecord_FalloDelServidorNoCambiaEstado(t *testing.T) {
	remote := newFakeRemote(rootRecord())
	store := loadedStore(t, remote)
	before := store.Record()
	v := store.Version()

	remote.updateErr = errors.New("500 internal")
	_, err := store.SaveRecord(context.Background(), recordstate.RecordForm{ProcessID: "fileteado", StartedAt: "2024-03-16"})
	require.Error(t, err)

	assert.Equal(t, before, store.Record())
	assert.Equal(t, v, store.Version())
	assert.Equal(t, recordstate.StateReady, store.State())
}

func TestSaveRecord_ActualizaExistente(t *testing.T) {
	remote := newFakeRemote(rootRecord())
	store := loadedStore(t, remote)

	saved, err := store.SaveRecord(context.Background(), recordstate.RecordForm{ProcessID: "fileteado", StartedAt: "2024-03-16"})
	require.NoError(t, err)
	assert.Equal(t, "R", saved.ID)
	assert.Equal(t, "fileteado", store.Record().ProcessID)
	assert.Equal(t, 1, remote.count("update"))
	assert.Zero(t, remote.count("create"))
}

func TestSaveRecord_PadreDescendienteEsCiclo(t *testing.T) {
	remote := newFakeRemote(rootRecord())
	remote.siblings = []entity.ProductionRecord{
		{ID: "X", ProductionID: "prod-1", ParentRecordID: strPtr("R")},
		{ID: "Y", ProductionID: "prod-1", ParentRecordID: strPtr("X")},
	}
	store := loadedStore(t, remote)

	_, err := store.SaveRecord(context.Background(), recordstate.RecordForm{
		ProcessID: "fileteado", StartedAt: "2024-03-15", ParentRecordID: "Y",
	})
	assert.ErrorIs(t, err, domain.ErrCycle)
	var cycle *domain.CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, "R", cycle.RecordID)
	assert.Zero(t, remote.count("update"))
}

func TestSaveRecord_PadreDeOtraProduccion(t *testing.T) {
	remote := newFakeRemote(rootRecord())
	remote.siblings = []entity.ProductionRecord{{ID: "X", ProductionID: "prod-1"}}
	store := loadedStore(t, remote)

	_, err := store.SaveRecord(context.Background(), recordstate.RecordForm{
		ProcessID: "fileteado", StartedAt: "2024-03-15", ParentRecordID: "Z",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	saved, err := store.SaveRecord(context.Background(), recordstate.RecordForm{
		ProcessID: "fileteado", StartedAt: "2024-03-15", ParentRecordID: "X",
	})
	require.NoError(t, err)
	require.NotNil(t, saved.ParentRecordID)
	assert.Equal(t, "X", *saved.ParentRecordID)
}

func TestSaveRecord_FalloAlRecargarHermanosNoFallaElGuardado(t *testing.T) {
	remote := newFakeRemote(rootRecord())
	store := loadedStore(t, remote)
	remote.siblingErr = errors.New("timeout")

	_, err := store.SaveRecord(context.Background(), recordstate.RecordForm{ProcessID: "fileteado", StartedAt: "2024-03-15"})
	assert.NoError(t, err)
}
