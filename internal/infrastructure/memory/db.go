// Package memory implementa los puertos de persistencia en memoria (ejecución local y tests).
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/produccion-pesquera/internal/application/production"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/internal/domain/repository"
)

// DB tablas en memoria. Los registros se guardan como agregados completos y se copian al leer y escribir.
type DB struct {
	mu      sync.RWMutex
	records map[string]entity.ProductionRecord
	boxes   map[string][]entity.StockSource // por empresa

	txMu  sync.Mutex      // transacciones y escrituras directas sobre registros
	dirty map[string]bool // solo en la copia de trabajo de una transacción
}

// NewDB construye una base vacía.
func NewDB() *DB {
	return &DB{
		records: make(map[string]entity.ProductionRecord),
		boxes:   make(map[string][]entity.StockSource),
	}
}

// SeedStockBoxes registra cajas de stock disponibles para la empresa.
func (db *DB) SeedStockBoxes(companyID string, boxes ...entity.StockSource) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.boxes[companyID] = append(db.boxes[companyID], boxes...)
}

func (db *DB) markDirty(id string) {
	if db.dirty != nil {
		db.dirty[id] = true
	}
}

var _ production.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta fn sobre una copia de trabajo y aplica los registros modificados solo si fn no falla.
type TxRunner struct {
	db *DB
}

// NewTxRunner construye el runner sobre la base.
func NewTxRunner(db *DB) *TxRunner {
	return &TxRunner{db: db}
}

// Run serializa las transacciones entre sí y con las escrituras directas sobre la base (que también toman
// txMu). La copia de trabajo tiene su propio txMu, así que fn puede escribir sin bloquearse.
func (r *TxRunner) Run(ctx context.Context, fn func(records repository.ProductionRecordRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.db.txMu.Lock()
	defer r.db.txMu.Unlock()

	r.db.mu.RLock()
	work := &DB{
		records: make(map[string]entity.ProductionRecord, len(r.db.records)),
		boxes:   r.db.boxes,
		dirty:   make(map[string]bool),
	}
	for id, rec := range r.db.records {
		work.records[id] = rec.Clone()
	}
	r.db.mu.RUnlock()

	if err := fn(NewRecordRepository(work)); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id := range work.dirty {
		if rec, ok := work.records[id]; ok {
			r.db.records[id] = rec
		} else {
			delete(r.db.records, id)
		}
	}
	return nil
}
