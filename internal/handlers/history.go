package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/auth"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/models"
	"gorm.io/gorm"
)

// HistoryHandler serves the read-only views over the ledger. It never
// writes; aggregates may run alongside active submissions.
type HistoryHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewHistoryHandler(db *gorm.DB, authHandler *auth.AuthHandler) *HistoryHandler {
	return &HistoryHandler{db: db, authHandler: authHandler}
}

type ConsumptionRow struct {
	ChildID          uint      `json:"child_id"`
	ChildName        string    `json:"child_name"`
	QuantityConsumed int       `json:"quantity_consumed"`
	Timestamp        time.Time `json:"timestamp"`
	Observations     string    `json:"observations,omitempty"`
	SessionID        string    `json:"session_id"`
}

type DonationHistoryRequest struct {
	auth.AuthInput
	ID        uint   `path:"id"`
	Page      int    `query:"page" minimum:"1" default:"1"`
	Limit     int    `query:"limit" minimum:"1" maximum:"100" default:"20"`
	DateFrom  string `query:"date_from" doc:"Inclusive lower bound, YYYY-MM-DD" required:"false"`
	DateTo    string `query:"date_to" doc:"Inclusive upper bound, YYYY-MM-DD" required:"false"`
	ChildName string `query:"child_name" doc:"Substring match on child name" required:"false"`
}

type DonationHistoryResponse struct {
	Body struct {
		Rows  []ConsumptionRow `json:"rows"`
		Total int64            `json:"total"`
		Page  int              `json:"page"`
		Limit int              `json:"limit"`
	}
}

func (h *HistoryHandler) HandleDonationHistory(ctx context.Context, input *DonationHistoryRequest) (*DonationHistoryResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	var donation models.Donation
	if err := h.db.First(&donation, input.ID).Error; err != nil {
		return nil, huma.Error404NotFound("Donation not found")
	}

	query := h.db.Model(&models.ConsumptionRecord{}).
		Joins("JOIN children ON children.id = consumption_records.child_id").
		Where("consumption_records.donation_id = ? AND consumption_records.present = ?", input.ID, true)

	query, err := applyDateRange(query, "consumption_records.created_at", input.DateFrom, input.DateTo)
	if err != nil {
		return nil, err
	}
	if input.ChildName != "" {
		query = query.Where("children.name LIKE ?", "%"+input.ChildName+"%")
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to count history: " + err.Error())
	}

	var records []models.ConsumptionRecord
	err = query.Preload("Child").
		Order("consumption_records.created_at DESC").
		Offset((input.Page - 1) * input.Limit).
		Limit(input.Limit).
		Find(&records).Error
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load history: " + err.Error())
	}

	res := &DonationHistoryResponse{}
	res.Body.Rows = toConsumptionRows(records)
	res.Body.Total = total
	res.Body.Page = input.Page
	res.Body.Limit = input.Limit
	return res, nil
}

type ChildHistoryRequest struct {
	auth.AuthInput
	ID       uint   `path:"id"`
	Page     int    `query:"page" minimum:"1" default:"1"`
	Limit    int    `query:"limit" minimum:"1" maximum:"100" default:"20"`
	Category string `query:"category" required:"false"`
	DateFrom string `query:"date_from" doc:"Inclusive lower bound, YYYY-MM-DD" required:"false"`
	DateTo   string `query:"date_to" doc:"Inclusive upper bound, YYYY-MM-DD" required:"false"`
	Text     string `query:"text" doc:"Free-text match against donation description and donor" required:"false"`
}

type ChildHistoryRow struct {
	DonationID       uint                    `json:"donation_id"`
	Donor            string                  `json:"donor"`
	Category         models.DonationCategory `json:"category"`
	Description      string                  `json:"description,omitempty"`
	QuantityConsumed int                     `json:"quantity_consumed"`
	Timestamp        time.Time               `json:"timestamp"`
	Observations     string                  `json:"observations,omitempty"`
	SessionID        string                  `json:"session_id"`
}

type ChildHistoryResponse struct {
	Body struct {
		Rows             []ChildHistoryRow `json:"rows"`
		CountsByCategory map[string]int64  `json:"counts_by_category"`
		Total            int64             `json:"total"`
		Page             int               `json:"page"`
		Limit            int               `json:"limit"`
	}
}

func (h *HistoryHandler) HandleChildHistory(ctx context.Context, input *ChildHistoryRequest) (*ChildHistoryResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	var child models.Child
	if err := h.db.First(&child, input.ID).Error; err != nil {
		return nil, huma.Error404NotFound("Child not found")
	}

	base := h.db.Model(&models.ConsumptionRecord{}).
		Joins("JOIN donations ON donations.id = consumption_records.donation_id").
		Where("consumption_records.child_id = ? AND consumption_records.present = ? AND consumption_records.donation_id IS NOT NULL", input.ID, true)

	base, err := applyDateRange(base, "consumption_records.created_at", input.DateFrom, input.DateTo)
	if err != nil {
		return nil, err
	}
	if input.Text != "" {
		like := "%" + input.Text + "%"
		base = base.Where("donations.description LIKE ? OR donations.donor LIKE ?", like, like)
	}
	base = base.Session(&gorm.Session{})

	// Category counts aggregate over everything else the caller filtered,
	// so the category dropdown can show totals before narrowing.
	type categoryCount struct {
		Category string
		Count    int64
	}
	var counts []categoryCount
	err = base.
		Select("donations.category AS category, COUNT(*) AS count").
		Group("donations.category").
		Scan(&counts).Error
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to aggregate history: " + err.Error())
	}

	query := base
	if input.Category != "" {
		query = query.Where("donations.category = ?", input.Category)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to count history: " + err.Error())
	}

	var records []models.ConsumptionRecord
	err = query.Preload("Donation").
		Order("consumption_records.created_at DESC").
		Offset((input.Page - 1) * input.Limit).
		Limit(input.Limit).
		Find(&records).Error
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load history: " + err.Error())
	}

	rows := make([]ChildHistoryRow, 0, len(records))
	for _, record := range records {
		row := ChildHistoryRow{
			Timestamp:    record.CreatedAt,
			Observations: record.Observations,
			SessionID:    record.SessionID,
		}
		if record.QuantityConsumed != nil {
			row.QuantityConsumed = *record.QuantityConsumed
		}
		if record.Donation != nil {
			row.DonationID = record.Donation.ID
			row.Donor = record.Donation.Donor
			row.Category = record.Donation.Category
			row.Description = record.Donation.Description
		}
		rows = append(rows, row)
	}

	countsByCategory := make(map[string]int64, len(counts))
	for _, c := range counts {
		countsByCategory[c.Category] = c.Count
	}

	res := &ChildHistoryResponse{}
	res.Body.Rows = rows
	res.Body.CountsByCategory = countsByCategory
	res.Body.Total = total
	res.Body.Page = input.Page
	res.Body.Limit = input.Limit
	return res, nil
}

type StockSummaryRequest struct {
	auth.AuthInput
}

type StockSummaryResponse struct {
	Body struct {
		DonationsByStatus     map[string]int `json:"donations_by_status"`
		TotalDistributed      int            `json:"total_distributed"`
		RemainingByCategory   map[string]int `json:"remaining_by_category"`
		DistributedByCategory map[string]int `json:"distributed_by_category"`
	}
}

// HandleStockSummary aggregates the whole ledger. Donations and their
// consumed sums are read inside one transaction, so no donation can show a
// negative remainder even while submissions are running.
func (h *HistoryHandler) HandleStockSummary(ctx context.Context, input *StockSummaryRequest) (*StockSummaryResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	byStatus := map[string]int{
		string(models.StatusNotDistributed):       0,
		string(models.StatusPartiallyDistributed): 0,
		string(models.StatusFullyDistributed):     0,
	}
	remainingByCategory := make(map[string]int)
	distributedByCategory := make(map[string]int)
	totalDistributed := 0

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var donations []models.Donation
		if err := tx.Find(&donations).Error; err != nil {
			return err
		}

		type consumedSum struct {
			DonationID uint
			Total      int
		}
		var sums []consumedSum
		err := tx.Model(&models.ConsumptionRecord{}).
			Select("donation_id AS donation_id, COALESCE(SUM(quantity_consumed), 0) AS total").
			Where("present = ? AND donation_id IS NOT NULL", true).
			Group("donation_id").
			Scan(&sums).Error
		if err != nil {
			return err
		}

		consumedByDonation := make(map[uint]int, len(sums))
		for _, s := range sums {
			consumedByDonation[s.DonationID] = s.Total
		}

		for i := range donations {
			donation := &donations[i]
			consumed := consumedByDonation[donation.ID]
			byStatus[string(donation.Status(consumed))]++
			totalDistributed += consumed
			distributedByCategory[string(donation.Category)] += consumed
			if donation.Quantity != nil {
				remainingByCategory[string(donation.Category)] += *donation.Quantity - consumed
			}
		}
		return nil
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to build summary: " + err.Error())
	}

	res := &StockSummaryResponse{}
	res.Body.DonationsByStatus = byStatus
	res.Body.TotalDistributed = totalDistributed
	res.Body.RemainingByCategory = remainingByCategory
	res.Body.DistributedByCategory = distributedByCategory
	return res, nil
}

// applyDateRange parses YYYY-MM-DD bounds and applies them to column. The
// upper bound is inclusive of the whole day.
func applyDateRange(query *gorm.DB, column, from, to string) (*gorm.DB, error) {
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, huma.Error400BadRequest("date_from must be YYYY-MM-DD")
		}
		query = query.Where(column+" >= ?", t)
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, huma.Error400BadRequest("date_to must be YYYY-MM-DD")
		}
		query = query.Where(column+" < ?", t.AddDate(0, 0, 1))
	}
	return query, nil
}

func toConsumptionRows(records []models.ConsumptionRecord) []ConsumptionRow {
	rows := make([]ConsumptionRow, 0, len(records))
	for _, record := range records {
		row := ConsumptionRow{
			ChildID:      record.ChildID,
			ChildName:    record.Child.Name,
			Timestamp:    record.CreatedAt,
			Observations: record.Observations,
			SessionID:    record.SessionID,
		}
		if record.QuantityConsumed != nil {
			row.QuantityConsumed = *record.QuantityConsumed
		}
		rows = append(rows, row)
	}
	return rows
}
