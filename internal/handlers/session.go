package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/auth"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/models"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/notifier"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/stock"
	"gorm.io/gorm"
)

type SessionHandler struct {
	db          *gorm.DB
	notifier    notifier.Notifier
	authHandler *auth.AuthHandler
}

func NewSessionHandler(db *gorm.DB, notifier notifier.Notifier, authHandler *auth.AuthHandler) *SessionHandler {
	return &SessionHandler{db: db, notifier: notifier, authHandler: authHandler}
}

type SessionEntry struct {
	ChildID          uint   `json:"child_id" doc:"Child being checked in" required:"true"`
	Present          bool   `json:"present" doc:"Whether the child attended"`
	DonationID       *uint  `json:"donation_id,omitempty" doc:"Donation to consume from (present children only)"`
	QuantityConsumed *int   `json:"quantity_consumed,omitempty" doc:"Units consumed; defaults to 1 for birthday gifts"`
	Observations     string `json:"observations,omitempty"`
}

type SubmitSessionRequest struct {
	auth.AuthInput
	Body struct {
		LocationID uint           `json:"location_id" doc:"Location of the roll call" required:"true"`
		Entries    []SessionEntry `json:"entries" doc:"One entry per child, present or not" required:"true" minItems:"1"`
	}
}

type SubmitSessionResponse struct {
	Body struct {
		SessionID string `json:"session_id"`
		Recorded  int    `json:"recorded"`
	}
}

// HandleSubmit records one roll call: every entry becomes a consumption
// record sharing a fresh session id, and every consumption is reserved
// against its donation inside the same transaction. Any failure discards
// the whole batch.
func (h *SessionHandler) HandleSubmit(ctx context.Context, input *SubmitSessionRequest) (*SubmitSessionResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	var location models.Location
	if err := h.db.First(&location, input.Body.LocationID).Error; err != nil {
		return nil, huma.Error404NotFound("Location not found")
	}

	if err := validateEntries(input.Body.Entries); err != nil {
		return nil, err
	}

	if err := h.checkChildrenBelong(input.Body.LocationID, input.Body.Entries); err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	presentCount := 0

	err = h.db.Transaction(func(tx *gorm.DB) error {
		presentCount = 0
		for i, entry := range input.Body.Entries {
			record := models.ConsumptionRecord{
				SessionID:    sessionID,
				ChildID:      entry.ChildID,
				LocationID:   input.Body.LocationID,
				Present:      entry.Present,
				Observations: entry.Observations,
				RecordedByID: userID,
			}

			if entry.Present && entry.DonationID != nil {
				qty, err := h.reserveEntry(tx, i, entry)
				if err != nil {
					return err
				}
				record.DonationID = entry.DonationID
				record.QuantityConsumed = &qty
			}
			if entry.Present {
				presentCount++
			}

			// Insert as we go so a later entry's reservation sees this
			// one's consumption when both draw from the same donation.
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, mapStockError(err)
	}

	h.notify(location, input.Body.Entries, presentCount)

	res := &SubmitSessionResponse{}
	res.Body.SessionID = sessionID
	res.Body.Recorded = len(input.Body.Entries)
	return res, nil
}

// reserveEntry runs the stock check for one present entry and returns the
// quantity the consumption record should carry. Birthday gifts go through
// the delivery tracker and always count as 1.
func (h *SessionHandler) reserveEntry(tx *gorm.DB, index int, entry SessionEntry) (int, error) {
	var donation models.Donation
	if err := tx.First(&donation, *entry.DonationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, stock.ErrDonationNotFound
		}
		return 0, err
	}

	if donation.Category == models.CategoryBirthdayGift {
		if entry.QuantityConsumed != nil && *entry.QuantityConsumed != 1 {
			return 0, huma.Error400BadRequest(
				fmt.Sprintf("entries[%d]: a birthday gift is a single delivery; quantity_consumed must be 1 or omitted", index))
		}
		if err := stock.Deliver(tx, donation.ID, entry.ChildID); err != nil {
			return 0, err
		}
		return 1, nil
	}

	if entry.QuantityConsumed == nil {
		return 0, huma.Error400BadRequest(
			fmt.Sprintf("entries[%d]: quantity_consumed is required when consuming from a donation", index))
	}
	if err := stock.Reserve(tx, donation.ID, *entry.QuantityConsumed); err != nil {
		return 0, err
	}
	return *entry.QuantityConsumed, nil
}

// validateEntries enforces the structural rules that don't need the ledger:
// positive quantities, quantity only alongside a donation, and no
// consumption on absent children.
func validateEntries(entries []SessionEntry) error {
	if len(entries) == 0 {
		return huma.Error400BadRequest("entries must not be empty")
	}
	for i, entry := range entries {
		if !entry.Present && (entry.DonationID != nil || entry.QuantityConsumed != nil) {
			return huma.Error400BadRequest(
				fmt.Sprintf("entries[%d]: an absent child cannot consume stock", i))
		}
		if entry.QuantityConsumed != nil && entry.DonationID == nil {
			return huma.Error400BadRequest(
				fmt.Sprintf("entries[%d]: quantity_consumed requires a donation_id", i))
		}
		if entry.QuantityConsumed != nil && *entry.QuantityConsumed <= 0 {
			return huma.Error400BadRequest(
				fmt.Sprintf("entries[%d]: quantity_consumed must be positive", i))
		}
	}
	return nil
}

func (h *SessionHandler) checkChildrenBelong(locationID uint, entries []SessionEntry) error {
	ids := make([]uint, 0, len(entries))
	seen := make(map[uint]bool, len(entries))
	for _, entry := range entries {
		if !seen[entry.ChildID] {
			seen[entry.ChildID] = true
			ids = append(ids, entry.ChildID)
		}
	}

	var count int64
	err := h.db.Model(&models.Child{}).
		Where("id IN ? AND location_id = ?", ids, locationID).
		Count(&count).Error
	if err != nil {
		return huma.Error500InternalServerError("Failed to verify children: " + err.Error())
	}
	if count != int64(len(ids)) {
		return huma.Error400BadRequest("every child in the roll call must belong to the given location")
	}
	return nil
}

// notify reports the roll call and any donation the batch exhausted. Discord
// failures are logged, never surfaced: the ledger is already committed.
func (h *SessionHandler) notify(location models.Location, entries []SessionEntry, presentCount int) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.NotifySession(location, presentCount, len(entries)-presentCount); err != nil {
		log.Printf("Failed to send session notification: %v", err)
	}

	seen := make(map[uint]bool)
	for _, entry := range entries {
		if entry.DonationID == nil || seen[*entry.DonationID] {
			continue
		}
		seen[*entry.DonationID] = true

		var donation models.Donation
		if err := h.db.First(&donation, *entry.DonationID).Error; err != nil {
			continue
		}
		remaining, bounded, err := stock.Remaining(h.db, &donation)
		if err != nil || !bounded || remaining > 0 {
			continue
		}
		if err := h.notifier.NotifyFullyDistributed(donation); err != nil {
			log.Printf("Failed to send distribution notification: %v", err)
		}
	}
}

type DeleteSessionRequest struct {
	auth.AuthInput
	SessionID string `path:"session_id" doc:"Session to delete"`
}

// HandleDelete removes every consumption record sharing the session id in
// one transaction. Consumed totals are derived, so no stock rollback is
// needed; delivered birthday gifts in the session become deliverable again.
func (h *SessionHandler) HandleDelete(ctx context.Context, input *DeleteSessionRequest) (*struct{}, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var records []models.ConsumptionRecord
		if err := tx.Preload("Donation").Where("session_id = ?", input.SessionID).Find(&records).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return gorm.ErrRecordNotFound
		}

		for _, record := range records {
			if !record.Present || record.Donation == nil {
				continue
			}
			if record.Donation.Category == models.CategoryBirthdayGift {
				if err := stock.ResetDelivery(tx, record.Donation.ID); err != nil {
					return err
				}
			}
		}

		return tx.Where("session_id = ?", input.SessionID).Delete(&models.ConsumptionRecord{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("Session not found")
		}
		return nil, huma.Error500InternalServerError("Failed to delete session: " + err.Error())
	}

	return nil, nil
}

// mapStockError translates ledger guard failures into API errors. Anything
// already shaped as a huma error passes through unchanged.
func mapStockError(err error) error {
	var insufficient *stock.InsufficientStockError
	if errors.As(err, &insufficient) {
		return huma.Error409Conflict("insufficient_stock", &huma.ErrorDetail{
			Message:  err.Error(),
			Location: "body.entries",
			Value: map[string]int{
				"available": insufficient.Available,
				"requested": insufficient.Requested,
			},
		})
	}

	var delivered *stock.AlreadyDeliveredError
	if errors.As(err, &delivered) {
		return huma.Error409Conflict("already_delivered", &huma.ErrorDetail{
			Message:  err.Error(),
			Location: "body.entries",
		})
	}

	var wrongRecipient *stock.WrongRecipientError
	if errors.As(err, &wrongRecipient) {
		return huma.Error409Conflict("wrong_recipient", &huma.ErrorDetail{
			Message:  err.Error(),
			Location: "body.entries",
		})
	}

	if errors.Is(err, stock.ErrDonationNotFound) {
		return huma.Error404NotFound("Donation not found")
	}
	if errors.Is(err, stock.ErrInvalidAmount) {
		return huma.Error400BadRequest(err.Error())
	}

	var statusErr huma.StatusError
	if errors.As(err, &statusErr) {
		return err
	}

	return huma.Error500InternalServerError("Failed to process session: " + err.Error())
}
