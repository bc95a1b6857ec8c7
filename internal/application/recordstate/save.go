package recordstate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/internal/domain/production"
)

// RecordForm valores de cabecera tal como llegan del formulario.
// Las fechas son de calendario (ej. "2024-03-15" o "2024-03-15T08:30"); ParentRecordID vacío = raíz.
type RecordForm struct {
	ProcessID      string
	ParentRecordID string
	StartedAt      string
	FinishedAt     string
	Notes          string
}

// calendarLayouts formatos aceptados desde el formulario, del más al menos específico.
var calendarLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseCalendarDate convierte una fecha de calendario a fecha-hora en loc. Vacío devuelve nil.
func ParseCalendarDate(raw string, loc *time.Location) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	for _, layout := range calendarLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: fecha %q no reconocida", domain.ErrInvalidInput, raw)
}

// toFields valida el formulario y lo convierte a los campos persistidos.
func (s *Store) toFields(form RecordForm) (entity.RecordFields, error) {
	var fields entity.RecordFields
	processID := strings.TrimSpace(form.ProcessID)
	if processID == "" {
		return fields, domain.ErrMissingProcessType
	}
	started, err := ParseCalendarDate(form.StartedAt, s.loc)
	if err != nil {
		return fields, err
	}
	if started == nil {
		return fields, fmt.Errorf("%w: la fecha de inicio es obligatoria", domain.ErrInvalidInput)
	}
	finished, err := ParseCalendarDate(form.FinishedAt, s.loc)
	if err != nil {
		return fields, err
	}
	if finished != nil && finished.Before(*started) {
		return fields, fmt.Errorf("%w: la fecha de fin es anterior al inicio", domain.ErrInvalidInput)
	}
	fields = entity.RecordFields{
		ProcessID:  processID,
		StartedAt:  *started,
		FinishedAt: finished,
		Notes:      strings.TrimSpace(form.Notes),
	}
	if parent := strings.TrimSpace(form.ParentRecordID); parent != "" {
		fields.ParentRecordID = &parent
	}
	return fields, nil
}

// SaveRecord valida el formulario y crea o actualiza el registro según tenga ID.
// No es optimista: el estado local solo cambia con la respuesta del servidor.
// Tras guardar se recarga la lista de registros hermanos (un fallo ahí solo se registra en el log).
func (s *Store) SaveRecord(ctx context.Context, form RecordForm) (entity.ProductionRecord, error) {
	fields, err := s.toFields(form)
	if err != nil {
		return entity.ProductionRecord{}, err
	}

	s.mu.Lock()
	if s.state == StateLoading {
		s.mu.Unlock()
		return entity.ProductionRecord{}, fmt.Errorf("%w: el registro aún se está cargando", domain.ErrConflict)
	}
	recordID, productionID := s.record.ID, s.record.ProductionID
	siblings := s.siblings
	siblingsLoaded := s.siblingsLoaded
	s.mu.Unlock()

	if fields.ParentRecordID != nil {
		parentID := *fields.ParentRecordID
		if siblingsLoaded && !containsRecord(siblings, parentID) && parentID != recordID {
			return entity.ProductionRecord{}, fmt.Errorf("%w: el registro padre %s no pertenece a la producción", domain.ErrInvalidInput, parentID)
		}
		if err := production.ValidateParent(parentID, recordID, production.Descendants(recordID, siblings)); err != nil {
			return entity.ProductionRecord{}, err
		}
	}

	var saved *entity.ProductionRecord
	if recordID == "" {
		if productionID == "" {
			return entity.ProductionRecord{}, fmt.Errorf("%w: registro sin producción", domain.ErrInvalidInput)
		}
		saved, err = s.remote.CreateRecord(ctx, productionID, fields)
	} else {
		saved, err = s.remote.UpdateRecord(ctx, recordID, fields)
	}
	if err != nil {
		return entity.ProductionRecord{}, fmt.Errorf("guardar registro: %w", err)
	}
	if saved == nil {
		return entity.ProductionRecord{}, fmt.Errorf("guardar registro: %w", domain.ErrNotFound)
	}

	s.mu.Lock()
	s.record = production.WithTotals(saved.Clone())
	s.version++
	s.state = s.idleStateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	s.log.Info().Str("record_id", saved.ID).Bool("created", recordID == "").Msg("registro de producción guardado")
	if err := s.RefreshSiblings(ctx); err != nil {
		s.log.Warn().Err(err).Str("record_id", saved.ID).Msg("no se pudo recargar la lista de registros hermanos")
	}
	return snap.Record, nil
}

func containsRecord(records []entity.ProductionRecord, id string) bool {
	for _, r := range records {
		if r.ID == id {
			return true
		}
	}
	return false
}
