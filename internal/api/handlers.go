package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pricewatch/internal/aggregation"
	"pricewatch/internal/domain"
	"pricewatch/internal/storage"
)

// GroupedResponse is the paginated payload of /api/products/grouped.
type GroupedResponse struct {
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalCount int             `json:"total_count"`
	TotalPages int             `json:"total_pages"`
	Groups     []GroupResponse `json:"groups"`
}

// GroupResponse is one aggregated product group.
type GroupResponse struct {
	GroupKey          string            `json:"group_key"`
	ProductName       string            `json:"product_name"`
	Specification     string            `json:"specification"`
	RecordCount       int               `json:"record_count"`
	CompanyCount      int               `json:"company_count"`
	LatestPrice       float64           `json:"latest_price"`
	LatestDate        time.Time         `json:"latest_date"`
	LatestCompanyName string            `json:"latest_company_name"`
	AvgPrice          float64           `json:"avg_price"`
	MinPrice          float64           `json:"min_price"`
	MaxPrice          float64           `json:"max_price"`
	PriceDeviationPct int               `json:"price_deviation_pct"`
	Companies         []CompanyResponse `json:"companies"`
}

// CompanyResponse is one counterparty's history within a group.
type CompanyResponse struct {
	CompanyID   string          `json:"company_id"`
	CompanyName string          `json:"company_name"`
	LatestPrice float64         `json:"latest_price"`
	LatestDate  time.Time       `json:"latest_date"`
	History     []PriceResponse `json:"history"`
}

// PriceResponse is one historical transaction.
type PriceResponse struct {
	Price          float64   `json:"price"`
	Quantity       string    `json:"quantity"`
	QuantityValue  float64   `json:"quantity_value"`
	Unit           string    `json:"unit"`
	Date           time.Time `json:"date"`
	DocumentID     string    `json:"document_id"`
	DocumentNumber string    `json:"document_number"`
}

// SeriesResponse is the payload of /api/products/series.
type SeriesResponse struct {
	GroupKey      string `json:"group_key"`
	ProductName   string `json:"product_name"`
	Specification string `json:"specification"`
	Mode          string `json:"mode"`
	HasTrend      bool   `json:"has_trend"`

	// Summary mode: three parallel ascending series sharing labels
	Average []PointResponse `json:"average,omitempty"`
	Min     []PointResponse `json:"min,omitempty"`
	Max     []PointResponse `json:"max,omitempty"`

	// By-company mode: one unaggregated ascending series per company
	Companies map[string][]PointResponse `json:"companies,omitempty"`
}

// PointResponse is one chart point.
type PointResponse struct {
	Label string    `json:"label"`
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const (
	modeSummary   = "summary"
	modeByCompany = "by_company"
)

func (a *App) handleGrouped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()

	docTypes, err := parseDocTypes(q.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := aggregation.Filter{
		ProductName: q.Get("product_name"),
		Spec:        q.Get("specification"),
		CompanyName: q.Get("company_name"),
	}
	if filter.MinPrice, err = parseOptionalFloat(q.Get("min_price")); err != nil {
		writeError(w, http.StatusBadRequest, "min_price must be a number")
		return
	}
	if filter.MaxPrice, err = parseOptionalFloat(q.Get("max_price")); err != nil {
		writeError(w, http.StatusBadRequest, "max_price must be a number")
		return
	}

	sortBy, err := parseSortOrder(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := parsePositiveInt(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := parsePositiveInt(q.Get("limit"), a.cfg.PageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	items, err := a.fetchLineItems(r.Context(), docTypes)
	if err != nil {
		a.logger.Printf("fetch line items: %v", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	groups := aggregation.Aggregate(items, aggregation.Options{Filter: filter, SortBy: sortBy})
	total := len(groups)
	pageGroups := aggregation.Paginate(groups, page, limit)

	resp := GroupedResponse{
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: (total + limit - 1) / limit,
		Groups:     make([]GroupResponse, 0, len(pageGroups)),
	}
	for _, g := range pageGroups {
		resp.Groups = append(resp.Groups, toGroupResponse(g))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()

	groupKey := q.Get("group_key")
	if groupKey == "" {
		writeError(w, http.StatusBadRequest, "group_key is required")
		return
	}

	mode := q.Get("mode")
	if mode == "" {
		mode = modeSummary
	}
	if mode != modeSummary && mode != modeByCompany {
		writeError(w, http.StatusBadRequest, "mode must be summary or by_company")
		return
	}

	docTypes, err := parseDocTypes(q.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var items []*domain.TransactionLineItem
	for _, dt := range docTypes {
		got, err := a.lineItems.GetByGroupKey(r.Context(), dt, groupKey)
		if err != nil {
			a.logger.Printf("fetch group %s: %v", groupKey, err)
			writeError(w, http.StatusInternalServerError, "storage unavailable")
			return
		}
		items = append(items, got...)
	}
	if len(items) == 0 {
		writeError(w, http.StatusNotFound, "no line items for group")
		return
	}

	groups := aggregation.Aggregate(items, aggregation.Options{})
	g := groups[0]

	resp := SeriesResponse{
		GroupKey:      g.GroupKey,
		ProductName:   g.Name,
		Specification: g.Spec,
		Mode:          mode,
	}

	switch mode {
	case modeSummary:
		s := aggregation.BuildSummarySeries(g)
		resp.HasTrend = s.HasTrend
		resp.Average = toPointResponses(s.Average)
		resp.Min = toPointResponses(s.Min)
		resp.Max = toPointResponses(s.Max)
	case modeByCompany:
		series := aggregation.BuildPerCompanySeries(g)
		resp.Companies = make(map[string][]PointResponse, len(series))
		for name, points := range series {
			resp.Companies[name] = toPointResponses(points)
			if aggregation.HasTrend(points) {
				resp.HasTrend = true
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// DocumentResponse is the payload of /api/documents/{id}, used by clients to
// open the source document behind a price point.
type DocumentResponse struct {
	ID             string                 `json:"id"`
	DocumentNumber string                 `json:"document_number"`
	Type           string                 `json:"type"`
	Status         string                 `json:"status"`
	CompanyID      string                 `json:"company_id"`
	CompanyName    string                 `json:"company_name"`
	Items          []DocumentItemResponse `json:"items"`
	CreatedAt      time.Time              `json:"created_at"`
}

// DocumentItemResponse is one line on a document.
type DocumentItemResponse struct {
	Name      string  `json:"name"`
	Spec      string  `json:"spec"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  string  `json:"quantity"`
	Unit      string  `json:"unit"`
}

func (a *App) handleDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	doc, err := a.documents.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		a.logger.Printf("fetch document %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	resp := DocumentResponse{
		ID:             doc.ID,
		DocumentNumber: doc.DocumentNumber,
		Type:           doc.Type,
		Status:         doc.Status,
		CompanyID:      doc.CompanyID,
		CompanyName:    doc.CompanyName,
		Items:          make([]DocumentItemResponse, 0, len(doc.Items)),
		CreatedAt:      doc.CreatedAt,
	}
	for _, it := range doc.Items {
		resp.Items = append(resp.Items, DocumentItemResponse{
			Name:      it.Name,
			Spec:      it.Spec,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Unit:      it.Unit,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	StreamClients int    `json:"stream_clients"`
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status: "running",
		Uptime: time.Since(a.started).Round(time.Second).String(),
	}
	if a.hub != nil {
		resp.StreamClients = a.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

// fetchLineItems loads line items for the requested document types, estimates
// before orders so tie-breaks stay deterministic.
func (a *App) fetchLineItems(ctx context.Context, docTypes []string) ([]*domain.TransactionLineItem, error) {
	var items []*domain.TransactionLineItem
	for _, dt := range docTypes {
		got, err := a.lineItems.GetByDocumentType(ctx, dt)
		if err != nil {
			return nil, err
		}
		items = append(items, got...)
	}
	return items, nil
}

func toGroupResponse(g *domain.ProductGroup) GroupResponse {
	resp := GroupResponse{
		GroupKey:          g.GroupKey,
		ProductName:       g.Name,
		Specification:     g.Spec,
		RecordCount:       g.RecordCount,
		CompanyCount:      g.CompanyCount,
		LatestPrice:       g.LatestPrice,
		LatestDate:        g.LatestDate,
		LatestCompanyName: g.LatestCompanyName,
		AvgPrice:          g.AvgPrice,
		MinPrice:          g.MinPrice,
		MaxPrice:          g.MaxPrice,
		PriceDeviationPct: aggregation.PriceDeviationPercent(g.LatestPrice, g.AvgPrice),
		Companies:         make([]CompanyResponse, 0, len(g.Companies)),
	}

	for _, ch := range g.Companies {
		cr := CompanyResponse{
			CompanyID:   ch.CompanyID,
			CompanyName: ch.CompanyName,
			LatestPrice: ch.LatestPrice,
			LatestDate:  ch.LatestDate,
			History:     make([]PriceResponse, 0, len(ch.History)),
		}
		for _, p := range ch.History {
			cr.History = append(cr.History, PriceResponse{
				Price:          p.Price,
				Quantity:       p.Quantity,
				QuantityValue:  p.QuantityValue,
				Unit:           p.Unit,
				Date:           p.Date,
				DocumentID:     p.DocumentID,
				DocumentNumber: p.DocumentNumber,
			})
		}
		resp.Companies = append(resp.Companies, cr)
	}

	return resp
}

func toPointResponses(points []domain.SeriesPoint) []PointResponse {
	out := make([]PointResponse, len(points))
	for i, p := range points {
		out[i] = PointResponse{Label: p.Label, Date: p.Date, Value: p.Value}
	}
	return out
}

// parseDocTypes maps the type query param to concrete document types.
// Empty covers both estimates and orders.
func parseDocTypes(raw string) ([]string, error) {
	switch raw {
	case "":
		return []string{domain.DocumentTypeEstimate, domain.DocumentTypeOrder}, nil
	case domain.DocumentTypeEstimate, domain.DocumentTypeOrder:
		return []string{raw}, nil
	default:
		return nil, fmt.Errorf("type must be %s or %s", domain.DocumentTypeEstimate, domain.DocumentTypeOrder)
	}
}

func parseSortOrder(raw string) (aggregation.SortOrder, error) {
	switch aggregation.SortOrder(raw) {
	case "", aggregation.SortByLatestDate:
		return aggregation.SortByLatestDate, nil
	case aggregation.SortByRecordCount:
		return aggregation.SortByRecordCount, nil
	case aggregation.SortByAvgPrice:
		return aggregation.SortByAvgPrice, nil
	default:
		return "", fmt.Errorf("sort must be one of latest_date, record_count, avg_price")
	}
}

func parseOptionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parsePositiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("not a positive integer: %q", raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
