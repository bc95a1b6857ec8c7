package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Motor de trazabilidad y asignación de costos.
	ErrMissingProcessType   = errors.New("el tipo de proceso es obligatorio")
	ErrCycle                = errors.New("la asignación de padre genera un ciclo")
	ErrAllocationIncomplete = errors.New("la asignación de costos no suma 100%")
	ErrSourceTypeMismatch   = errors.New("tipo de origen no permitido para el registro")
	ErrRemoteSync           = errors.New("falló la sincronización con el servidor")
	ErrStaleRollback        = errors.New("rollback descartado: el registro cambió después de la mutación")
)

// CycleError describe una asignación de padre que cerraría un ciclo en el árbol de registros.
// errors.Is(err, ErrCycle) es verdadero.
type CycleError struct {
	RecordID string
	ParentID string
	Path     []string // cadena recorrida hasta detectar el nodo repetido (puede ser vacía)
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: registro %s con padre %s", ErrCycle.Error(), e.RecordID, e.ParentID)
	}
	return fmt.Sprintf("%s: registro %s con padre %s (%s)", ErrCycle.Error(), e.RecordID, e.ParentID, strings.Join(e.Path, " -> "))
}

// Is permite errors.Is(err, ErrCycle).
func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// RemoteSyncError envuelve el error devuelto por el repositorio remoto durante una confirmación
// en segundo plano. Stale indica que el rollback se descartó porque hubo una mutación posterior.
type RemoteSyncError struct {
	Op    string
	Stale bool
	Err   error
}

func (e *RemoteSyncError) Error() string {
	msg := fmt.Sprintf("%s (%s)", ErrRemoteSync.Error(), e.Op)
	if e.Stale {
		msg += ": " + ErrStaleRollback.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is permite errors.Is(err, ErrRemoteSync) y, si es obsoleto, errors.Is(err, ErrStaleRollback).
func (e *RemoteSyncError) Is(target error) bool {
	if target == ErrRemoteSync {
		return true
	}
	return e.Stale && target == ErrStaleRollback
}

func (e *RemoteSyncError) Unwrap() error { return e.Err }
