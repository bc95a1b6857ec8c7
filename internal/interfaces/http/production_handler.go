package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/jhoicas/produccion-pesquera/internal/application/dto"
	"github.com/jhoicas/produccion-pesquera/internal/application/production"
)

// ProductionHandler maneja las peticiones HTTP de registros de producción (protegido).
type ProductionHandler struct {
	uc *production.RecordUseCase
}

// NewProductionHandler construye el handler.
func NewProductionHandler(uc *production.RecordUseCase) *ProductionHandler {
	return &ProductionHandler{uc: uc}
}

// ListRecords godoc
// @Summary      Listar registros de una producción
// @Description  Devuelve solo cabeceras (para elegir registro padre).
// @Tags         production-records
// @Security     Bearer
// @Produce      json
// @Param        productionId  path   string  true   "ID de la producción"
// @Param        exclude       query  string  false  "ID de registro a excluir"
// @Success      200  {object}  dto.RecordListResponse
// @Router       /api/productions/{productionId}/records [get]
func (h *ProductionHandler) ListRecords(c *fiber.Ctx) error {
	list, err := h.uc.ListSiblings(c.UserContext(), GetCompanyID(c), param(c, "productionId"), utils.CopyString(c.Query("exclude")))
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.RecordResponse, 0, len(list))
	for _, r := range list {
		items = append(items, dto.ToRecordResponse(r))
	}
	return c.JSON(dto.RecordListResponse{Items: items})
}

// CreateRecord godoc
// @Summary      Crear registro de producción
// @Tags         production-records
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        productionId  path  string                   true  "ID de la producción"
// @Param        body          body  dto.RecordFieldsRequest  true  "Cabecera"
// @Success      201  {object}  dto.RecordResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/productions/{productionId}/records [post]
func (h *ProductionHandler) CreateRecord(c *fiber.Ctx) error {
	var in dto.RecordFieldsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := h.uc.Create(c.UserContext(), GetCompanyID(c), param(c, "productionId"), in.ToFields())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToRecordResponse(*rec))
}

// GetRecord godoc
// @Summary      Obtener registro de producción
// @Tags         production-records
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {object}  dto.RecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/records/{id} [get]
func (h *ProductionHandler) GetRecord(c *fiber.Ctx) error {
	rec, err := h.uc.Get(c.UserContext(), GetCompanyID(c), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToRecordResponse(*rec))
}

// UpdateRecord godoc
// @Summary      Actualizar cabecera del registro
// @Description  Rechaza un padre que cierre un ciclo en el árbol (422 CYCLE).
// @Tags         production-records
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del registro"
// @Param        body  body  dto.RecordFieldsRequest  true  "Cabecera"
// @Success      200  {object}  dto.RecordResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/records/{id} [put]
func (h *ProductionHandler) UpdateRecord(c *fiber.Ctx) error {
	var in dto.RecordFieldsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := h.uc.Update(c.UserContext(), GetCompanyID(c), param(c, "id"), in.ToFields())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToRecordResponse(*rec))
}

// ReplaceInputs godoc
// @Summary      Reemplazar entradas del registro
// @Tags         production-records
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del registro"
// @Param        body  body  dto.ReplaceInputsRequest  true  "Entradas"
// @Success      200  {object}  dto.RecordResponse
// @Router       /api/records/{id}/inputs [put]
func (h *ProductionHandler) ReplaceInputs(c *fiber.Ctx) error {
	var in dto.ReplaceInputsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := h.uc.ReplaceInputs(c.UserContext(), GetCompanyID(c), param(c, "id"), dto.ToInputs(in.Inputs))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToRecordResponse(*rec))
}

// ReplaceOutputs godoc
// @Summary      Reemplazar salidas del registro
// @Description  Cada salida con fuentes explícitas debe sumar 100% (422 ALLOCATION_INCOMPLETE).
// @Tags         production-records
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del registro"
// @Param        body  body  dto.ReplaceOutputsRequest  true  "Salidas"
// @Success      200  {object}  dto.RecordResponse
// @Router       /api/records/{id}/outputs [put]
func (h *ProductionHandler) ReplaceOutputs(c *fiber.Ctx) error {
	var in dto.ReplaceOutputsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := h.uc.ReplaceOutputs(c.UserContext(), GetCompanyID(c), param(c, "id"), dto.ToOutputs(in.Outputs))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToRecordResponse(*rec))
}

// ReplaceConsumptions godoc
// @Summary      Reemplazar consumos de salidas del padre
// @Tags         production-records
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                          true  "ID del registro"
// @Param        body  body  dto.ReplaceConsumptionsRequest  true  "Consumos"
// @Success      200  {object}  dto.RecordResponse
// @Router       /api/records/{id}/consumptions [put]
func (h *ProductionHandler) ReplaceConsumptions(c *fiber.Ctx) error {
	var in dto.ReplaceConsumptionsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := h.uc.ReplaceConsumptions(c.UserContext(), GetCompanyID(c), param(c, "id"), dto.ToConsumptions(in.Consumptions))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToRecordResponse(*rec))
}

// SaveCostSources godoc
// @Summary      Guardar fuentes de costo de una salida
// @Tags         production-records
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id        path  string                      true  "ID del registro"
// @Param        outputId  path  string                      true  "ID de la salida"
// @Param        body      body  dto.SaveCostSourcesRequest  true  "Fuentes"
// @Success      200  {object}  dto.RecordResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/records/{id}/outputs/{outputId}/cost-sources [put]
func (h *ProductionHandler) SaveCostSources(c *fiber.Ctx) error {
	var in dto.SaveCostSourcesRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rec, err := h.uc.SaveCostSources(c.UserContext(), GetCompanyID(c), param(c, "id"), param(c, "outputId"), dto.ToCostSources(in.Sources))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToRecordResponse(*rec))
}

// CostBreakdown godoc
// @Summary      Desglose de costo de una salida
// @Description  Fuentes explícitas o prorrateo automático por peso de los orígenes del registro.
// @Tags         production-records
// @Security     Bearer
// @Produce      json
// @Param        id        path  string  true  "ID del registro"
// @Param        outputId  path  string  true  "ID de la salida"
// @Success      200  {object}  dto.CostBreakdownResponse
// @Router       /api/records/{id}/outputs/{outputId}/cost-breakdown [get]
func (h *ProductionHandler) CostBreakdown(c *fiber.Ctx) error {
	b, err := h.uc.CostBreakdown(c.UserContext(), GetCompanyID(c), param(c, "id"), param(c, "outputId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.CostBreakdownResponse{
		OutputID:      b.OutputID,
		TotalWeightKg: b.TotalWeightKg,
		Automatic:     b.Automatic,
		Sources:       dto.FromCostSources(b.Sources),
	})
}

// StockSources godoc
// @Summary      Cajas de stock elegibles (registro raíz)
// @Tags         production-records
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {array}   dto.StockSourceDTO
// @Router       /api/records/{id}/sources/stock [get]
func (h *ProductionHandler) StockSources(c *fiber.Ctx) error {
	list, err := h.uc.ListStockSources(c.UserContext(), GetCompanyID(c), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromStockSources(list))
}

// ParentOutputSources godoc
// @Summary      Salidas del padre elegibles (registro hijo)
// @Tags         production-records
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {array}   dto.ParentOutputSourceDTO
// @Router       /api/records/{id}/sources/parent-outputs [get]
func (h *ProductionHandler) ParentOutputSources(c *fiber.Ctx) error {
	list, err := h.uc.ListParentOutputSources(c.UserContext(), GetCompanyID(c), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromParentOutputSources(list))
}

// param copia el parámetro de ruta: fiber reutiliza el buffer de la petición y los IDs pueden quedar guardados.
func param(c *fiber.Ctx, name string) string {
	return utils.CopyString(c.Params(name))
}
