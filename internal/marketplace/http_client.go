package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"shopops/internal/types"

	"golang.org/x/time/rate"
)

// HTTPClient is the default Client implementation: a thin JSON adapter with
// a client-side rate limiter in front of the upstream's own limits.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPClient creates an HTTPClient from configuration.
func NewHTTPClient(configManager types.ConfigManager) *HTTPClient {
	cfg := configManager.GetMarketplaceConfig()
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
	}
}

// apiEnvelope is the marketplace's uniform response wrapper.
type apiEnvelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope apiEnvelope
	if len(raw) > 0 {
		// Tolerate non-JSON error bodies from intermediaries.
		_ = json.Unmarshal(raw, &envelope)
	}

	if resp.StatusCode >= 400 {
		msg := envelope.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{StatusCode: resp.StatusCode, Code: envelope.Code, Message: msg}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func shopQuery(shopID uint64) url.Values {
	q := url.Values{}
	q.Set("shop_id", strconv.FormatUint(shopID, 10))
	return q
}

// GetCampaignBudget returns the campaign's current daily budget.
func (c *HTTPClient) GetCampaignBudget(ctx context.Context, shopID, campaignID uint64) (int64, error) {
	var data struct {
		DailyBudget int64 `json:"daily_budget"`
	}
	path := fmt.Sprintf("/ads/campaigns/%d/budget", campaignID)
	if err := c.do(ctx, http.MethodGet, path, shopQuery(shopID), nil, &data); err != nil {
		return 0, err
	}
	return data.DailyBudget, nil
}

// SetCampaignBudget replaces the campaign's daily budget.
func (c *HTTPClient) SetCampaignBudget(ctx context.Context, shopID, campaignID uint64, budget int64) error {
	path := fmt.Sprintf("/ads/campaigns/%d/budget", campaignID)
	body := map[string]any{"shop_id": shopID, "daily_budget": budget}
	return c.do(ctx, http.MethodPut, path, nil, body, nil)
}

// CreateFlashSale creates an empty promotion bound to a time slot.
func (c *HTTPClient) CreateFlashSale(ctx context.Context, shopID uint64, timeSlotID int64) (int64, error) {
	var data struct {
		FlashSaleID int64 `json:"flash_sale_id"`
	}
	body := map[string]any{"shop_id": shopID, "time_slot_id": timeSlotID}
	if err := c.do(ctx, http.MethodPost, "/flash_sales", nil, body, &data); err != nil {
		return 0, err
	}
	return data.FlashSaleID, nil
}

// AddFlashSaleItems populates a promotion with an item payload.
func (c *HTTPClient) AddFlashSaleItems(ctx context.Context, shopID uint64, flashSaleID int64, items []FlashSaleItem) error {
	path := fmt.Sprintf("/flash_sales/%d/items", flashSaleID)
	body := map[string]any{"shop_id": shopID, "items": items}
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

// GetFlashSaleItems returns a promotion's item payload.
func (c *HTTPClient) GetFlashSaleItems(ctx context.Context, shopID uint64, flashSaleID int64) ([]FlashSaleItem, error) {
	var data struct {
		Items []FlashSaleItem `json:"items"`
	}
	path := fmt.Sprintf("/flash_sales/%d/items", flashSaleID)
	if err := c.do(ctx, http.MethodGet, path, shopQuery(shopID), nil, &data); err != nil {
		return nil, err
	}
	return data.Items, nil
}

// DeleteFlashSale removes a promotion.
func (c *HTTPClient) DeleteFlashSale(ctx context.Context, shopID uint64, flashSaleID int64) error {
	path := fmt.Sprintf("/flash_sales/%d", flashSaleID)
	return c.do(ctx, http.MethodDelete, path, shopQuery(shopID), nil, nil)
}

// ListCampaigns pages through the shop's campaigns.
func (c *HTTPClient) ListCampaigns(ctx context.Context, shopID uint64, cursor string) ([]CampaignInfo, string, error) {
	var data struct {
		Items      []CampaignInfo `json:"items"`
		NextCursor string         `json:"next_cursor"`
	}
	q := shopQuery(shopID)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if err := c.do(ctx, http.MethodGet, "/ads/campaigns", q, nil, &data); err != nil {
		return nil, "", err
	}
	return data.Items, data.NextCursor, nil
}

// ListFlashSales pages through the shop's flash sales.
func (c *HTTPClient) ListFlashSales(ctx context.Context, shopID uint64, cursor string) ([]FlashSaleInfo, string, error) {
	var data struct {
		Items      []FlashSaleInfo `json:"items"`
		NextCursor string          `json:"next_cursor"`
	}
	q := shopQuery(shopID)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if err := c.do(ctx, http.MethodGet, "/flash_sales", q, nil, &data); err != nil {
		return nil, "", err
	}
	return data.Items, data.NextCursor, nil
}

// GetShopPerformance returns the shop health snapshot.
func (c *HTTPClient) GetShopPerformance(ctx context.Context, shopID uint64) (*PerformanceInfo, error) {
	var data PerformanceInfo
	if err := c.do(ctx, http.MethodGet, "/shop/performance", shopQuery(shopID), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
