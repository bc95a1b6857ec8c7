package recordstate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/internal/domain/production"
)

// State estado del registro durante la sesión de edición.
type State string

// Estados del ciclo de vida del Store.
const (
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateMutating   State = "mutating"    // hay al menos una confirmación remota en curso
	StateRolledBack State = "rolled_back" // transitorio: se restauró un snapshot, vuelve a ready/mutating
)

// Snapshot copia inmutable del estado entregada a los suscriptores.
// Las notificaciones de confirmaciones concurrentes pueden llegar desordenadas: usar Version para descartar viejas.
type Snapshot struct {
	Record  entity.ProductionRecord
	State   State
	Version uint64
}

// Option configura el Store.
type Option func(*Store)

// WithLogger inyecta el logger (por defecto zerolog.Nop).
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithLocation zona horaria para convertir fechas de calendario a fecha-hora persistida.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock reloj usado para la fecha de inicio de los borradores.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store es la fuente de verdad del registro en memoria durante una sesión de edición:
// aplica mutaciones optimistas, recalcula totales y revierte al snapshot si el servidor falla.
//
// Cada mutación incrementa Version. Una confirmación fallida solo revierte si la versión no cambió
// desde la mutación; si hubo otra mutación posterior el rollback se descarta y el error
// devuelto cumple errors.Is(err, domain.ErrStaleRollback).
type Store struct {
	remote RemoteRepository
	log    zerolog.Logger
	loc    *time.Location
	now    func() time.Time

	mu             sync.Mutex
	record         entity.ProductionRecord
	siblings       []entity.ProductionRecord
	siblingsLoaded bool
	state          State
	version        uint64
	pending        int
	loading        int  // cargas en curso; mientras haya alguna el estado sigue en Loading
	ready          bool // ya hay un registro cargado o un borrador

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewStore construye el Store en estado Loading; usar Load o NewDraft para dejarlo listo.
func NewStore(remote RemoteRepository, opts ...Option) *Store {
	s := &Store{
		remote: remote,
		log:    zerolog.Nop(),
		loc:    time.Local,
		now:    time.Now,
		state:  StateLoading,
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDraft inicia un registro borrador (sin ID) en la producción indicada.
func (s *Store) NewDraft(productionID string, parentRecordID *string) {
	draft := entity.ProductionRecord{
		ProductionID:   productionID,
		ParentRecordID: parentRecordID,
		StartedAt:      s.now().In(s.loc),
	}
	s.mu.Lock()
	s.record = production.WithTotals(draft.Clone())
	s.version++
	s.ready = true
	s.state = s.idleStateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Load obtiene el registro desde el servidor (Loading → Ready) y la lista de registros hermanos.
func (s *Store) Load(ctx context.Context, recordID string) error {
	s.mu.Lock()
	s.loading++
	s.state = StateLoading
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	rec, err := s.remote.GetRecord(ctx, recordID)
	if err != nil || rec == nil {
		s.mu.Lock()
		s.loading--
		s.state = s.idleStateLocked()
		snap = s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		if err == nil {
			err = domain.ErrNotFound
		}
		return fmt.Errorf("cargar registro %s: %w", recordID, err)
	}

	s.mu.Lock()
	s.record = production.WithTotals(rec.Clone())
	s.version++
	s.loading--
	s.ready = true
	s.state = s.idleStateLocked()
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	if err := s.RefreshSiblings(ctx); err != nil {
		s.log.Warn().Err(err).Str("record_id", recordID).Msg("no se pudo cargar la lista de registros hermanos")
	}
	return nil
}

// RefreshSiblings recarga la proyección de registros de la misma producción (excluye el actual).
func (s *Store) RefreshSiblings(ctx context.Context) error {
	s.mu.Lock()
	productionID, recordID := s.record.ProductionID, s.record.ID
	s.mu.Unlock()
	if productionID == "" {
		return fmt.Errorf("%w: registro sin producción", domain.ErrInvalidInput)
	}
	list, err := s.remote.ListSiblingRecords(ctx, productionID, recordID)
	if err != nil {
		return fmt.Errorf("listar registros hermanos: %w", err)
	}
	copied := make([]entity.ProductionRecord, 0, len(list))
	for _, r := range list {
		copied = append(copied, r.Clone())
	}
	s.mu.Lock()
	s.siblings = copied
	s.siblingsLoaded = true
	s.mu.Unlock()
	return nil
}

// Record devuelve una copia del registro actual.
func (s *Store) Record() entity.ProductionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Totals devuelve los totales del registro actual.
func (s *Store) Totals() entity.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Totals
}

// State devuelve el estado actual.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version devuelve la versión actual (aumenta con cada cambio de estado del registro).
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Siblings devuelve la última lista de registros hermanos cargada.
func (s *Store) Siblings() []entity.ProductionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.ProductionRecord, 0, len(s.siblings))
	for _, r := range s.siblings {
		out = append(out, r.Clone())
	}
	return out
}

// UpdateInputs reemplaza las entradas y recalcula los totales de inmediato.
// Si shouldSync, confirma en segundo plano obteniendo el registro del servidor.
func (s *Store) UpdateInputs(ctx context.Context, inputs []entity.RecordInput, shouldSync bool) (*Sync, error) {
	inputs = entity.CloneInputs(inputs)
	return s.mutate(ctx, "update_inputs", func(r *entity.ProductionRecord) error {
		r.Inputs = inputs
		return nil
	}, s.fetchIf(shouldSync))
}

// UpdateOutputs reemplaza las salidas (con sus fuentes de costo) y recalcula los totales.
func (s *Store) UpdateOutputs(ctx context.Context, outputs []entity.RecordOutput, shouldSync bool) (*Sync, error) {
	outputs = entity.CloneOutputs(outputs)
	return s.mutate(ctx, "update_outputs", func(r *entity.ProductionRecord) error {
		for _, o := range outputs {
			for _, src := range o.CostSources {
				if err := production.ValidateSourceType(*r, src); err != nil {
					return err
				}
			}
		}
		r.Outputs = outputs
		return nil
	}, s.fetchIf(shouldSync))
}

// UpdateConsumptions reemplaza los consumos de salidas del padre. No afecta los totales.
func (s *Store) UpdateConsumptions(ctx context.Context, consumptions []entity.Consumption, shouldSync bool) (*Sync, error) {
	consumptions = entity.CloneConsumptions(consumptions)
	return s.mutate(ctx, "update_consumptions", func(r *entity.ProductionRecord) error {
		if r.IsRoot() && len(consumptions) > 0 {
			return fmt.Errorf("%w: un registro raíz solo consume stock", domain.ErrSourceTypeMismatch)
		}
		r.ParentOutputConsumptions = consumptions
		return nil
	}, s.fetchIf(shouldSync))
}

// confirmFunc obtiene la versión autoritativa del registro tras una mutación.
type confirmFunc func(ctx context.Context, r entity.ProductionRecord) (*entity.ProductionRecord, error)

func (s *Store) fetchIf(shouldSync bool) confirmFunc {
	if !shouldSync {
		return nil
	}
	return func(ctx context.Context, r entity.ProductionRecord) (*entity.ProductionRecord, error) {
		return s.remote.GetRecord(ctx, r.ID)
	}
}

// mutate aplica apply sobre una copia del registro, la publica como estado actual y,
// si confirm no es nil, lanza la confirmación remota. Un error de apply no modifica el estado.
func (s *Store) mutate(ctx context.Context, op string, apply func(r *entity.ProductionRecord) error, confirm confirmFunc) (*Sync, error) {
	s.mu.Lock()
	if s.state == StateLoading {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: el registro aún se está cargando", domain.ErrConflict)
	}
	if confirm != nil && !s.record.IsPersisted() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: el registro no ha sido guardado", domain.ErrInvalidInput)
	}
	snapshot := s.record.Clone()
	next := s.record.Clone()
	if err := apply(&next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	next = production.WithTotals(next)
	s.record = next
	s.version++
	version := s.version
	if confirm != nil {
		s.pending++
	}
	s.state = s.idleStateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug().Str("op", op).Str("record_id", next.ID).Uint64("version", version).Msg("mutación optimista aplicada")
	s.notify(snap)

	if confirm == nil {
		return completedSync(nil), nil
	}
	result := newSync()
	// La confirmación no se cancela una vez emitida.
	bg := context.WithoutCancel(ctx)
	sent := next.Clone()
	go func() {
		result.finish(s.confirm(bg, op, version, snapshot, sent, confirm))
	}()
	return result, nil
}

// confirm resuelve la confirmación remota: reconcilia con el servidor o revierte al snapshot.
func (s *Store) confirm(ctx context.Context, op string, version uint64, snapshot, sent entity.ProductionRecord, fn confirmFunc) error {
	server, err := fn(ctx, sent)
	if err == nil && server == nil {
		err = domain.ErrNotFound
	}

	s.mu.Lock()
	s.pending--
	current := s.version == version

	if err != nil {
		syncErr := &domain.RemoteSyncError{Op: op, Stale: !current, Err: err}
		var snaps []Snapshot
		if current {
			s.record = snapshot
			s.version++
			s.state = StateRolledBack
			snaps = append(snaps, s.snapshotLocked())
		}
		s.state = s.idleStateLocked()
		snaps = append(snaps, s.snapshotLocked())
		s.mu.Unlock()

		if current {
			s.log.Warn().Err(err).Str("op", op).Str("record_id", sent.ID).Uint64("version", version).
				Msg("confirmación remota fallida, se restauró el snapshot")
		} else {
			s.log.Warn().Err(err).Str("op", op).Str("record_id", sent.ID).Uint64("version", version).
				Msg("confirmación remota fallida, rollback descartado por mutación posterior")
		}
		for _, snap := range snaps {
			s.notify(snap)
		}
		return syncErr
	}

	if current {
		s.record = production.WithTotals(server.Clone())
		s.version++
	} else {
		s.log.Debug().Str("op", op).Str("record_id", sent.ID).Uint64("version", version).
			Msg("confirmación obsoleta, se conserva el estado optimista más reciente")
	}
	s.state = s.idleStateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// Subscribe registra fn para recibir cada cambio de estado. Devuelve la función para desuscribirse.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// idleStateLocked estado al terminar una operación: Loading mientras no haya registro o una carga siga
// en curso, Mutating con confirmaciones pendientes, Ready en otro caso.
func (s *Store) idleStateLocked() State {
	if s.loading > 0 || !s.ready {
		return StateLoading
	}
	if s.pending > 0 {
		return StateMutating
	}
	return StateReady
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Record: s.record.Clone(), State: s.state, Version: s.version}
}
