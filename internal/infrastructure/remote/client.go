// Package remote implementa recordstate.RemoteRepository contra la API HTTP de registros.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jhoicas/produccion-pesquera/internal/application/dto"
	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/jhoicas/produccion-pesquera/pkg/config"
)

// Client cliente resty de la API de producción. Seguro para uso concurrente.
type Client struct {
	http *resty.Client
}

// NewClient construye el cliente a partir de la configuración remota y el token Bearer.
func NewClient(cfg config.RemoteConfig, token string) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Solo errores de transporte y 5xx; un 4xx es una respuesta definitiva.
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &Client{http: rc}
}

func (c *Client) GetRecord(ctx context.Context, recordID string) (*entity.ProductionRecord, error) {
	out := new(dto.RecordResponse)
	resp, err := c.request(ctx, out).
		SetPathParam("id", recordID).
		Get("/api/records/{id}")
	if err := check("get_record", resp, err); err != nil {
		return nil, err
	}
	rec := out.ToEntity()
	return &rec, nil
}

func (c *Client) CreateRecord(ctx context.Context, productionID string, fields entity.RecordFields) (*entity.ProductionRecord, error) {
	out := new(dto.RecordResponse)
	resp, err := c.request(ctx, out).
		SetPathParam("productionId", productionID).
		SetBody(dto.NewRecordFieldsRequest(fields)).
		Post("/api/productions/{productionId}/records")
	if err := check("create_record", resp, err); err != nil {
		return nil, err
	}
	rec := out.ToEntity()
	return &rec, nil
}

func (c *Client) UpdateRecord(ctx context.Context, recordID string, fields entity.RecordFields) (*entity.ProductionRecord, error) {
	out := new(dto.RecordResponse)
	resp, err := c.request(ctx, out).
		SetPathParam("id", recordID).
		SetBody(dto.NewRecordFieldsRequest(fields)).
		Put("/api/records/{id}")
	if err := check("update_record", resp, err); err != nil {
		return nil, err
	}
	rec := out.ToEntity()
	return &rec, nil
}

func (c *Client) ListSiblingRecords(ctx context.Context, productionID, excludeRecordID string) ([]entity.ProductionRecord, error) {
	out := new(dto.RecordListResponse)
	req := c.request(ctx, out).SetPathParam("productionId", productionID)
	if excludeRecordID != "" {
		req.SetQueryParam("exclude", excludeRecordID)
	}
	resp, err := req.Get("/api/productions/{productionId}/records")
	if err := check("list_siblings", resp, err); err != nil {
		return nil, err
	}
	list := make([]entity.ProductionRecord, 0, len(out.Items))
	for _, item := range out.Items {
		list = append(list, item.ToEntity())
	}
	return list, nil
}

func (c *Client) ListEligibleStockSources(ctx context.Context, recordID string) ([]entity.StockSource, error) {
	var out []dto.StockSourceDTO
	resp, err := c.request(ctx, &out).
		SetPathParam("id", recordID).
		Get("/api/records/{id}/sources/stock")
	if err := check("list_stock_sources", resp, err); err != nil {
		return nil, err
	}
	return dto.ToStockSources(out), nil
}

func (c *Client) ListEligibleParentOutputSources(ctx context.Context, recordID string) ([]entity.ParentOutputSource, error) {
	var out []dto.ParentOutputSourceDTO
	resp, err := c.request(ctx, &out).
		SetPathParam("id", recordID).
		Get("/api/records/{id}/sources/parent-outputs")
	if err := check("list_parent_output_sources", resp, err); err != nil {
		return nil, err
	}
	return dto.ToParentOutputSources(out), nil
}

func (c *Client) SaveCostSources(ctx context.Context, recordID, outputID string, sources []entity.CostSource) (*entity.ProductionRecord, error) {
	out := new(dto.RecordResponse)
	resp, err := c.request(ctx, out).
		SetPathParams(map[string]string{"id": recordID, "outputId": outputID}).
		SetBody(dto.SaveCostSourcesRequest{Sources: dto.FromCostSources(sources)}).
		Put("/api/records/{id}/outputs/{outputId}/cost-sources")
	if err := check("save_cost_sources", resp, err); err != nil {
		return nil, err
	}
	rec := out.ToEntity()
	return &rec, nil
}

func (c *Client) request(ctx context.Context, result any) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&dto.ErrorResponse{})
}

// check traduce la respuesta a un error de dominio según el código de la API (o el status si no hay cuerpo).
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: %w: %v", op, domain.ErrRemoteSync, err)
	}
	if !resp.IsError() {
		return nil
	}
	var apiErr dto.ErrorResponse
	if e, ok := resp.Error().(*dto.ErrorResponse); ok && e != nil {
		apiErr = *e
	}
	target := errorForCode(apiErr.Code, resp.StatusCode())
	if apiErr.Message == "" {
		return fmt.Errorf("%s: %w (status %d)", op, target, resp.StatusCode())
	}
	return fmt.Errorf("%s: %w: %s", op, target, apiErr.Message)
}

func errorForCode(code string, status int) error {
	switch code {
	case "NOT_FOUND":
		return domain.ErrNotFound
	case "MISSING_PROCESS_TYPE":
		return domain.ErrMissingProcessType
	case "CYCLE":
		return domain.ErrCycle
	case "ALLOCATION_INCOMPLETE":
		return domain.ErrAllocationIncomplete
	case "SOURCE_TYPE_MISMATCH":
		return domain.ErrSourceTypeMismatch
	case "VALIDATION", "INVALID_BODY":
		return domain.ErrInvalidInput
	case "CONFLICT":
		return domain.ErrConflict
	case "FORBIDDEN":
		return domain.ErrForbidden
	case "UNAUTHORIZED":
		return domain.ErrUnauthorized
	}
	switch status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	default:
		return domain.ErrRemoteSync
	}
}
