package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/produccion-pesquera/internal/application/production"
	"github.com/jhoicas/produccion-pesquera/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	RecordUC  *production.RecordUseCase
	JWTSecret string
}

// Router registra las rutas de la API. Lectura para cualquier rol autenticado; escritura solo admin y produccion.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	canWrite := RequireRole(jwt.RoleAdmin, jwt.RoleProduccion)
	h := NewProductionHandler(deps.RecordUC)

	productions := api.Group("/productions/:productionId/records")
	productions.Get("/", h.ListRecords)
	productions.Post("/", canWrite, h.CreateRecord)

	records := api.Group("/records/:id")
	records.Get("/", h.GetRecord)
	records.Put("/", canWrite, h.UpdateRecord)
	records.Put("/inputs", canWrite, h.ReplaceInputs)
	records.Put("/outputs", canWrite, h.ReplaceOutputs)
	records.Put("/consumptions", canWrite, h.ReplaceConsumptions)
	records.Put("/outputs/:outputId/cost-sources", canWrite, h.SaveCostSources)
	records.Get("/outputs/:outputId/cost-breakdown", h.CostBreakdown)
	records.Get("/sources/stock", h.StockSources)
	records.Get("/sources/parent-outputs", h.ParentOutputSources)
}
