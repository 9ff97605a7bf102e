/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model (decimal amounts, typed ids) from the
  external API contract: money is rendered as JSON numbers, absent
  metrics as null.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/portfolio-engine/analytics"
	"github.com/warp/portfolio-engine/records"
)

// =============================================================================
// ANALYTICS RESPONSES
// =============================================================================

// KPIResponse is the KPI summary payload. GrossYield and
// OnTimeCollection are null when undefined (no valuations recorded, or
// nothing due in range).
type KPIResponse struct {
	NetCashflow      float64  `json:"netCashflow"`
	GrossYield       *float64 `json:"grossYield"`
	OccupancyRate    float64  `json:"occupancyRate"`
	OnTimeCollection *float64 `json:"onTimeCollection"`
}

type BucketDTO struct {
	Label    string  `json:"label"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}

type CashflowResponse struct {
	Buckets     []BucketDTO `json:"buckets"`
	Granularity string      `json:"granularity"`
}

type BreakdownItemDTO struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

type BreakdownResponse struct {
	Total float64            `json:"total"`
	Items []BreakdownItemDTO `json:"items"`
}

type ComparisonItemDTO struct {
	PropertyID    string  `json:"propertyId"`
	PropertyLabel string  `json:"propertyLabel"`
	Net           float64 `json:"net"`
}

type ComparisonResponse struct {
	Items []ComparisonItemDTO `json:"items"`
}

type OccupancyItemDTO struct {
	PropertyID    string  `json:"propertyId"`
	PropertyLabel string  `json:"propertyLabel"`
	OccupiedDays  int     `json:"occupiedDays"`
	Rate          float64 `json:"rate"`
}

type OccupancyResponse struct {
	PeriodDays    int                `json:"periodDays"`
	PropertyCount int                `json:"propertyCount"`
	OccupiedDays  int                `json:"occupiedDays"`
	Rate          float64            `json:"rate"`
	Items         []OccupancyItemDTO `json:"items"`
}

func toKPIResponse(k analytics.KPISummary) KPIResponse {
	return KPIResponse{
		NetCashflow:      k.NetCashflow.Float64(),
		GrossYield:       k.GrossYield,
		OccupancyRate:    k.OccupancyRate,
		OnTimeCollection: k.OnTimeCollection,
	}
}

func toCashflowResponse(s analytics.CashflowSeries) CashflowResponse {
	buckets := make([]BucketDTO, len(s.Buckets))
	for i, b := range s.Buckets {
		buckets[i] = BucketDTO{
			Label:    b.Label,
			Income:   b.Income.Float64(),
			Expenses: b.Expenses.Float64(),
			Net:      b.Net.Float64(),
		}
	}
	return CashflowResponse{Buckets: buckets, Granularity: s.Granularity}
}

func toBreakdownResponse(b analytics.ExpenseBreakdown) BreakdownResponse {
	items := make([]BreakdownItemDTO, len(b.Items))
	for i, it := range b.Items {
		items[i] = BreakdownItemDTO{Category: it.Category, Value: it.Value.Float64()}
	}
	return BreakdownResponse{Total: b.Total.Float64(), Items: items}
}

func toComparisonResponse(c analytics.PropertyComparison) ComparisonResponse {
	items := make([]ComparisonItemDTO, len(c.Items))
	for i, it := range c.Items {
		items[i] = ComparisonItemDTO{
			PropertyID:    string(it.PropertyID),
			PropertyLabel: it.PropertyLabel,
			Net:           it.Net.Float64(),
		}
	}
	return ComparisonResponse{Items: items}
}

func toOccupancyResponse(o analytics.OccupancySummary) OccupancyResponse {
	items := make([]OccupancyItemDTO, len(o.Items))
	for i, it := range o.Items {
		items[i] = OccupancyItemDTO{
			PropertyID:    string(it.PropertyID),
			PropertyLabel: it.PropertyLabel,
			OccupiedDays:  it.OccupiedDays,
			Rate:          it.Rate,
		}
	}
	return OccupancyResponse{
		PeriodDays:    o.PeriodDays,
		PropertyCount: o.PropertyCount,
		OccupiedDays:  o.OccupiedDays,
		Rate:          o.Rate,
		Items:         items,
	}
}

// =============================================================================
// RECORD DTOS
// =============================================================================

type PropertyDTO struct {
	ID         string   `json:"id"`
	Address    string   `json:"address"`
	WeeklyRent float64  `json:"weeklyRent"`
	LeaseStart *string  `json:"leaseStart,omitempty"`
	LeaseEnd   *string  `json:"leaseEnd,omitempty"`
	Valuation  *float64 `json:"valuation,omitempty"`
	Archived   bool     `json:"archived"`
}

type IncomeDTO struct {
	ID          string  `json:"id"`
	PropertyID  string  `json:"propertyId"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	TenantID    string  `json:"tenantId,omitempty"`
	EvidenceRef string  `json:"evidenceRef,omitempty"`
}

type ExpenseDTO struct {
	ID         string   `json:"id"`
	PropertyID string   `json:"propertyId"`
	Date       string   `json:"date"`
	Category   string   `json:"category"`
	Vendor     string   `json:"vendor,omitempty"`
	Amount     float64  `json:"amount"`
	GST        *float64 `json:"gst,omitempty"`
}

type LedgerEntryDTO struct {
	ID             string  `json:"id"`
	PropertyID     string  `json:"propertyId"`
	TenantID       string  `json:"tenantId,omitempty"`
	DueDate        string  `json:"dueDate"`
	Amount         float64 `json:"amount"`
	Status         string  `json:"status"`
	PaidDate       *string `json:"paidDate,omitempty"`
	Description    string  `json:"description,omitempty"`
	SourceIncomeID string  `json:"sourceIncomeId,omitempty"`
}

func toPropertyDTO(p records.Property) PropertyDTO {
	dto := PropertyDTO{
		ID:         string(p.ID),
		Address:    p.Address,
		WeeklyRent: p.WeeklyRent.Float64(),
		Archived:   p.Archived,
	}
	if p.LeaseStart != nil {
		s := p.LeaseStart.String()
		dto.LeaseStart = &s
	}
	if p.LeaseEnd != nil {
		s := p.LeaseEnd.String()
		dto.LeaseEnd = &s
	}
	if p.Valuation != nil {
		v := p.Valuation.Float64()
		dto.Valuation = &v
	}
	return dto
}

func toIncomeDTO(e records.IncomeEntry) IncomeDTO {
	return IncomeDTO{
		ID:          string(e.ID),
		PropertyID:  string(e.PropertyID),
		Date:        e.Date.String(),
		Category:    e.Category,
		Amount:      e.Amount.Float64(),
		TenantID:    string(e.TenantID),
		EvidenceRef: e.EvidenceRef,
	}
}

func toExpenseDTO(e records.ExpenseEntry) ExpenseDTO {
	dto := ExpenseDTO{
		ID:         string(e.ID),
		PropertyID: string(e.PropertyID),
		Date:       e.Date.String(),
		Category:   e.Category,
		Vendor:     e.Vendor,
		Amount:     e.Amount.Float64(),
	}
	if e.GST != nil {
		g := e.GST.Float64()
		dto.GST = &g
	}
	return dto
}

func toLedgerEntryDTO(e records.RentLedgerEntry) LedgerEntryDTO {
	dto := LedgerEntryDTO{
		ID:          string(e.ID),
		PropertyID:  string(e.PropertyID),
		TenantID:    string(e.TenantID),
		DueDate:     e.DueDate.String(),
		Amount:      e.Amount.Float64(),
		Status:      string(e.Status),
		Description: e.Description,
	}
	if e.PaidDate != nil {
		s := e.PaidDate.String()
		dto.PaidDate = &s
	}
	if e.Link != nil {
		dto.SourceIncomeID = string(e.Link.SourceIncomeID)
	}
	return dto
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

type CreatePropertyRequest struct {
	ID         string   `json:"id"`
	Address    string   `json:"address"`
	WeeklyRent float64  `json:"weeklyRent"`
	LeaseStart string   `json:"leaseStart,omitempty"`
	LeaseEnd   string   `json:"leaseEnd,omitempty"`
	Valuation  *float64 `json:"valuation,omitempty"`
	Archived   bool     `json:"archived"`
}

type CreateIncomeRequest struct {
	ID          string  `json:"id"`
	PropertyID  string  `json:"propertyId"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	TenantID    string  `json:"tenantId,omitempty"`
	EvidenceRef string  `json:"evidenceRef,omitempty"`
}

// UpdateIncomeRequest carries partial updates; nil fields are left
// unchanged.
type UpdateIncomeRequest struct {
	PropertyID  *string  `json:"propertyId,omitempty"`
	Date        *string  `json:"date,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	TenantID    *string  `json:"tenantId,omitempty"`
	EvidenceRef *string  `json:"evidenceRef,omitempty"`
}

type CreateExpenseRequest struct {
	ID         string   `json:"id"`
	PropertyID string   `json:"propertyId"`
	Date       string   `json:"date"`
	Category   string   `json:"category"`
	Vendor     string   `json:"vendor,omitempty"`
	Amount     float64  `json:"amount"`
	GST        *float64 `json:"gst,omitempty"`
}
