package handlers

import (
	"context"
	"sync"
	"testing"

	"github.com/ruadoceu33/rua-do-ceu-api/internal/models"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/stock"
)

func submitRequest(env *testEnv, entries []SessionEntry) *SubmitSessionRequest {
	req := &SubmitSessionRequest{AuthInput: env.authInput()}
	req.Body.LocationID = env.location.ID
	req.Body.Entries = entries
	return req
}

func TestHandleSubmit_ScenarioC(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewSessionHandler(env.db, nil, env.authHandler)
	ten := 10
	donation := env.createDonation(t, models.CategoryFood, &ten, "kg")

	req := submitRequest(env, []SessionEntry{
		{ChildID: env.childA.ID, Present: true, DonationID: &donation.ID, QuantityConsumed: intPtr(2)},
		{ChildID: env.childB.ID, Present: false, Observations: "doente"},
	})

	resp, err := handler.HandleSubmit(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleSubmit returned error: %v", err)
	}
	if resp.Body.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if resp.Body.Recorded != 2 {
		t.Errorf("expected 2 recorded entries, got %d", resp.Body.Recorded)
	}

	// Both rows exist, absence included.
	var records []models.ConsumptionRecord
	if err := env.db.Where("session_id = ?", resp.Body.SessionID).Order("child_id asc").Find(&records).Error; err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 consumption records, got %d", len(records))
	}
	if !records[0].Present || records[0].QuantityConsumed == nil || *records[0].QuantityConsumed != 2 {
		t.Errorf("present record malformed: %+v", records[0])
	}
	if records[1].Present || records[1].DonationID != nil || records[1].QuantityConsumed != nil {
		t.Errorf("absent record must not consume: %+v", records[1])
	}

	consumed, err := stock.Consumed(env.db, donation.ID)
	if err != nil {
		t.Fatalf("Consumed failed: %v", err)
	}
	if consumed != 2 {
		t.Errorf("expected consumed 2, got %d", consumed)
	}

	// Deleting the session removes both rows and restores the total.
	delReq := &DeleteSessionRequest{AuthInput: env.authInput(), SessionID: resp.Body.SessionID}
	if _, err := handler.HandleDelete(context.Background(), delReq); err != nil {
		t.Fatalf("HandleDelete returned error: %v", err)
	}

	var count int64
	env.db.Model(&models.ConsumptionRecord{}).Where("session_id = ?", resp.Body.SessionID).Count(&count)
	if count != 0 {
		t.Errorf("expected 0 records after delete, got %d", count)
	}
	consumed, _ = stock.Consumed(env.db, donation.ID)
	if consumed != 0 {
		t.Errorf("expected consumed back to 0 after delete, got %d", consumed)
	}
}

func TestHandleSubmit_ValidationErrors(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewSessionHandler(env.db, nil, env.authHandler)
	ten := 10
	donation := env.createDonation(t, models.CategoryFood, &ten, "kg")

	cases := []struct {
		name    string
		entries []SessionEntry
	}{
		{"empty batch", []SessionEntry{}},
		{"quantity without donation", []SessionEntry{
			{ChildID: env.childA.ID, Present: true, QuantityConsumed: intPtr(2)},
		}},
		{"donation without quantity", []SessionEntry{
			{ChildID: env.childA.ID, Present: true, DonationID: &donation.ID},
		}},
		{"non-positive quantity", []SessionEntry{
			{ChildID: env.childA.ID, Present: true, DonationID: &donation.ID, QuantityConsumed: intPtr(0)},
		}},
		{"absent child consuming", []SessionEntry{
			{ChildID: env.childA.ID, Present: false, DonationID: &donation.ID, QuantityConsumed: intPtr(1)},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := handler.HandleSubmit(context.Background(), submitRequest(env, tc.entries))
			if err == nil {
				t.Fatal("expected a validation error, got nil")
			}

			// A rejected submission leaves the ledger untouched.
			var count int64
			env.db.Model(&models.ConsumptionRecord{}).Count(&count)
			if count != 0 {
				t.Errorf("expected 0 consumption records, got %d", count)
			}
		})
	}
}

func TestHandleSubmit_ChildFromOtherLocation(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewSessionHandler(env.db, nil, env.authHandler)

	other := models.Location{Name: "Centro Norte"}
	if err := env.db.Create(&other).Error; err != nil {
		t.Fatalf("failed to create location: %v", err)
	}
	stranger := models.Child{Name: "Carla", LocationID: other.ID}
	if err := env.db.Create(&stranger).Error; err != nil {
		t.Fatalf("failed to create child: %v", err)
	}

	req := submitRequest(env, []SessionEntry{
		{ChildID: env.childA.ID, Present: true},
		{ChildID: stranger.ID, Present: true},
	})
	if _, err := handler.HandleSubmit(context.Background(), req); err == nil {
		t.Fatal("expected rejection for child outside the location")
	}
}

func TestHandleSubmit_InsufficientStockAbortsWholeBatch(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewSessionHandler(env.db, nil, env.authHandler)
	five := 5
	donation := env.createDonation(t, models.CategoryFood, &five, "kg")

	// childA's row would be fine on its own; childB's overdraws. Nothing
	// may persist.
	req := submitRequest(env, []SessionEntry{
		{ChildID: env.childA.ID, Present: true, DonationID: &donation.ID, QuantityConsumed: intPtr(3)},
		{ChildID: env.childB.ID, Present: true, DonationID: &donation.ID, QuantityConsumed: intPtr(3)},
	})
	if _, err := handler.HandleSubmit(context.Background(), req); err == nil {
		t.Fatal("expected InsufficientStock rejection")
	}

	var count int64
	env.db.Model(&models.ConsumptionRecord{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no orphan records after rejection, got %d", count)
	}
	consumed, _ := stock.Consumed(env.db, donation.ID)
	if consumed != 0 {
		t.Errorf("expected consumed 0 after rejection, got %d", consumed)
	}
}

func TestHandleSubmit_GiftDelivery(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewSessionHandler(env.db, nil, env.authHandler)
	gift := env.createGift(t, env.childA)

	// Quantity may be omitted for a gift; it counts as 1.
	req := submitRequest(env, []SessionEntry{
		{ChildID: env.childA.ID, Present: true, DonationID: &gift.ID},
	})
	resp, err := handler.HandleSubmit(context.Background(), req)
	if err != nil {
		t.Fatalf("gift delivery failed: %v", err)
	}

	var flag models.GiftRecipient
	if err := env.db.Where("donation_id = ?", gift.ID).First(&flag).Error; err != nil {
		t.Fatalf("failed to load recipient: %v", err)
	}
	if !flag.Delivered {
		t.Error("expected delivered flag after session")
	}

	// A second delivery in a new session is a conflict.
	if _, err := handler.HandleSubmit(context.Background(), req); err == nil {
		t.Fatal("expected already_delivered rejection")
	}

	// The wrong child is rejected without flipping anything back.
	wrongReq := submitRequest(env, []SessionEntry{
		{ChildID: env.childB.ID, Present: true, DonationID: &gift.ID},
	})
	if _, err := handler.HandleSubmit(context.Background(), wrongReq); err == nil {
		t.Fatal("expected wrong_recipient rejection")
	}

	// Deleting the delivery session makes the gift deliverable again.
	delReq := &DeleteSessionRequest{AuthInput: env.authInput(), SessionID: resp.Body.SessionID}
	if _, err := handler.HandleDelete(context.Background(), delReq); err != nil {
		t.Fatalf("HandleDelete returned error: %v", err)
	}
	if err := env.db.Where("donation_id = ?", gift.ID).First(&flag).Error; err != nil {
		t.Fatalf("failed to reload recipient: %v", err)
	}
	if flag.Delivered {
		t.Error("expected delivered flag reset after session delete")
	}
	if _, err := handler.HandleSubmit(context.Background(), req); err != nil {
		t.Fatalf("redelivery after session delete failed: %v", err)
	}
}

func TestHandleDelete_UnknownSession(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewSessionHandler(env.db, nil, env.authHandler)

	delReq := &DeleteSessionRequest{AuthInput: env.authInput(), SessionID: "no-such-session"}
	if _, err := handler.HandleDelete(context.Background(), delReq); err == nil {
		t.Fatal("expected not_found for unknown session")
	}
}

func TestHandleSubmit_ConcurrentOverdraw(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewSessionHandler(env.db, nil, env.authHandler)
	five := 5
	donation := env.createDonation(t, models.CategoryFood, &five, "kg")

	// Two concurrent roll calls each want 3 of 5. Exactly one may win.
	makeReq := func(child models.Child) *SubmitSessionRequest {
		return submitRequest(env, []SessionEntry{
			{ChildID: child.ID, Present: true, DonationID: &donation.ID, QuantityConsumed: intPtr(3)},
		})
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, child := range []models.Child{env.childA, env.childB} {
		wg.Add(1)
		go func(i int, child models.Child) {
			defer wg.Done()
			_, err := handler.HandleSubmit(context.Background(), makeReq(child))
			results[i] = err
		}(i, child)
	}
	wg.Wait()

	failures := 0
	for _, err := range results {
		if err != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one failed submission, got %d (errors: %v)", failures, results)
	}

	consumed, err := stock.Consumed(env.db, donation.ID)
	if err != nil {
		t.Fatalf("Consumed failed: %v", err)
	}
	if consumed != 3 {
		t.Errorf("expected total consumed 3, got %d", consumed)
	}
	if consumed > 5 {
		t.Errorf("consumed %d exceeds donated quantity", consumed)
	}
}
