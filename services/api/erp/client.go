package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// Method paths exposed by the ERP for the spray plan editor.
const (
	methodScoutingData  = "/api/method/scp.serverscripts.get_scouting_report.getScoutingData"
	methodAllChemicals  = "/api/method/scp.serverscripts.create_bom.getAllChemicals"
	methodChemicalUOM   = "/api/method/scp.serverscripts.create_bom.getChemicalUom"
	methodStockBalances = "/api/method/scp.serverscripts.get_bom_stock_balances.getBomStockBalances"
	methodCreateBOM     = "/api/method/scp.serverscripts.create_bom.createBOM"
	methodValidate      = "/api/method/scp.serverscripts.validate_frac_irac_guidelines.validateGuidelines"
	methodCreateWO      = "/api/method/scp.serverscripts.create_application_work_order.createApplicationWorkOrder"
)

// Client calls the remote ERP collaborators. It owns the chemical UOM
// cache, which deliberately survives session replacement.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	uomCache   *cache.Cache
}

// NewClient builds an ERP client for the given base URL. An empty apiKey
// skips the Authorization header.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		uomCache:   cache.New(cache.NoExpiration, 0),
	}
}

// envelope is the ERP response wrapper: the body of interest arrives under
// "message" or "data" depending on the endpoint.
type envelope struct {
	Message json.RawMessage `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) post(ctx context.Context, method string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "token "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, method)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	payload := env.Message
	if len(payload) == 0 || string(payload) == "null" {
		payload = env.Data
	}
	if len(payload) == 0 || string(payload) == "null" {
		return fmt.Errorf("empty response body from %s", method)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// FetchScoutingData retrieves all scouting entries and related reference
// data for one greenhouse and date.
func (c *Client) FetchScoutingData(ctx context.Context, greenhouse, date string) (ScoutingPayload, error) {
	var payload ScoutingPayload
	req := map[string]string{"greenhouse": greenhouse, "date": date}
	if err := c.post(ctx, methodScoutingData, req, &payload); err != nil {
		return ScoutingPayload{}, err
	}
	payload.AllChemicals = NormalizeChemicalNames(payload.AllChemicals)
	return payload, nil
}

// FetchChemicalCatalog retrieves the full chemical list. Returned names are
// trimmed, deduplicated and sorted; any supplied UOM map primes the cache.
func (c *Client) FetchChemicalCatalog(ctx context.Context) (Catalog, error) {
	var catalog Catalog
	if err := c.post(ctx, methodAllChemicals, map[string]string{}, &catalog); err != nil {
		return Catalog{}, err
	}
	catalog.Chemicals = NormalizeChemicalNames(catalog.Chemicals)
	c.primeUOMs(catalog.ItemUOMMap)
	return catalog, nil
}

// ChemicalUOM resolves the stock unit of measure for one chemical, served
// from cache when previously seen.
func (c *Client) ChemicalUOM(ctx context.Context, chemical string) (string, error) {
	if cached, found := c.uomCache.Get(chemical); found {
		if uom, ok := cached.(string); ok {
			return uom, nil
		}
	}

	var result struct {
		UOM string `json:"uom"`
	}
	if err := c.post(ctx, methodChemicalUOM, map[string]string{"chemical": chemical}, &result); err != nil {
		return "", err
	}
	if result.UOM != "" {
		c.uomCache.Set(chemical, result.UOM, cache.NoExpiration)
	}
	return result.UOM, nil
}

// StockBalances queries per-warehouse availability for the given chemical
// names. The ERP expects the name list double-encoded under "data".
func (c *Client) StockBalances(ctx context.Context, chemicals []string) (StockResult, error) {
	inner, err := json.Marshal(map[string][]string{"chemicals": chemicals})
	if err != nil {
		return StockResult{}, fmt.Errorf("encode request: %w", err)
	}

	var result StockResult
	if err := c.post(ctx, methodStockBalances, map[string]string{"data": string(inner)}, &result); err != nil {
		return StockResult{}, err
	}
	c.primeUOMs(result.ItemUOMMap)
	return result, nil
}

// CreateBOM submits a new BOM template.
func (c *Client) CreateBOM(ctx context.Context, bom BOMRequest) (BOMResult, error) {
	inner, err := json.Marshal(bom)
	if err != nil {
		return BOMResult{}, fmt.Errorf("encode request: %w", err)
	}

	var result BOMResult
	if err := c.post(ctx, methodCreateBOM, map[string]string{"data": string(inner)}, &result); err != nil {
		return BOMResult{}, err
	}
	return result, nil
}

// ValidateGuidelines runs the chemical-combination guideline check for a
// full work order payload.
func (c *Client) ValidateGuidelines(ctx context.Context, payload WorkOrderPayload) (GuidelineResult, error) {
	var result GuidelineResult
	body := map[string]any{"payload": map[string]any{"raw_data": payload}}
	if err := c.post(ctx, methodValidate, body, &result); err != nil {
		return GuidelineResult{}, err
	}
	return result, nil
}

// CreateWorkOrder submits the final work order.
func (c *Client) CreateWorkOrder(ctx context.Context, payload WorkOrderPayload) (WorkOrderResult, error) {
	var result WorkOrderResult
	body := map[string]any{"payload": map[string]any{"raw_data": payload}}
	if err := c.post(ctx, methodCreateWO, body, &result); err != nil {
		return WorkOrderResult{}, err
	}
	return result, nil
}

// CachedUOM returns the cached unit of measure for a chemical, if any.
func (c *Client) CachedUOM(chemical string) (string, bool) {
	if cached, found := c.uomCache.Get(chemical); found {
		if uom, ok := cached.(string); ok {
			return uom, true
		}
	}
	return "", false
}

func (c *Client) primeUOMs(uoms map[string]string) {
	for name, uom := range uoms {
		if name != "" && uom != "" {
			c.uomCache.Set(name, uom, cache.NoExpiration)
		}
	}
}

// NormalizeChemicalNames trims, drops empties, deduplicates (first
// occurrence wins) and sorts a chemical name list.
func NormalizeChemicalNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
