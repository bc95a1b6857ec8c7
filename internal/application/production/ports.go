package production

import (
	"context"

	"github.com/jhoicas/produccion-pesquera/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando el repositorio atado a esa tx.
// Los reemplazos de líneas (entradas, salidas, fuentes) se aplican completos o no se aplican.
type TxRunner interface {
	Run(ctx context.Context, fn func(records repository.ProductionRecordRepository) error) error
}
