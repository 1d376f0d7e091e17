package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v72"

	"nutriplan/internal/db"
	"nutriplan/internal/models"
)

// CreateCheckout handles POST /api/v1/billing/checkout. It opens a
// Stripe subscription checkout session and returns its redirect URL.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.db.GetUserByID(r.Context(), userID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if user.IsPaid() {
		writeError(w, http.StatusConflict, "subscription is already active")
		return
	}

	sessionID, url, err := h.stripeClient.CreateSubscriptionCheckout(userID)
	if err != nil {
		h.logger.Errorw("failed to create checkout session", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to start checkout")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id":   sessionID,
		"checkout_url": url,
	})
}

// HandleStripeWebhook handles POST /webhook/stripe.
func (h *Handler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	// Only allow POST requests
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Read request body
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Errorw("failed to read webhook body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	// Verify Stripe signature
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		h.logger.Errorw("missing Stripe signature header")
		http.Error(w, "Missing signature", http.StatusBadRequest)
		return
	}

	event, err := h.stripeClient.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Errorw("failed to verify webhook signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	// Process different event types
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			h.logger.Errorw("failed to parse checkout session", "error", err)
			http.Error(w, "Failed to parse event data", http.StatusBadRequest)
			return
		}

		// Validate client reference ID (user ID)
		if session.ClientReferenceID == "" {
			h.logger.Errorw("missing client reference ID", "session_id", session.ID)
			http.Error(w, "Missing client reference ID", http.StatusBadRequest)
			return
		}

		userID, err := strconv.ParseInt(session.ClientReferenceID, 10, 64)
		if err != nil {
			h.logger.Errorw("invalid client reference ID", "error", err, "value", session.ClientReferenceID)
			http.Error(w, "Invalid client reference ID", http.StatusBadRequest)
			return
		}

		// Activate in background to avoid webhook timeout
		go h.activateSubscription(userID, &session)
		h.logger.Infow("subscription activation started", "user_id", userID, "session_id", session.ID)

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			h.logger.Errorw("failed to parse subscription", "error", err)
			break
		}
		go h.syncSubscriptionStatus(&sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			h.logger.Errorw("failed to parse subscription", "error", err)
			break
		}
		go h.cancelSubscription(&sub)

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			h.logger.Errorw("failed to parse invoice", "error", err)
			break
		}
		h.markPaymentFailed(&invoice)
	}

	// Respond with 200 OK to acknowledge receipt
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Webhook received"))
}

func (h *Handler) activateSubscription(userID int64, session *stripe.CheckoutSession) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var customerID, subscriptionID string
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}

	err := h.db.UpdateSubscription(ctx, userID, models.PlanPremium, models.PlanStatusActive, customerID, subscriptionID)
	if err != nil {
		h.logger.Errorw("failed to activate subscription", "user_id", userID, "error", err)
		return
	}

	// Record the invoice in the payments ledger
	payment := &models.Payment{
		UserID:          userID,
		Amount:          int(session.AmountTotal),
		Currency:        string(session.Currency),
		StripePaymentID: session.ID,
		Status:          "succeeded",
	}
	if err := h.db.SavePayment(ctx, payment); err != nil {
		h.logger.Errorw("failed to record payment", "user_id", userID, "error", err)
	}

	h.logger.Infow("subscription activated", "user_id", userID)
}

func (h *Handler) syncSubscriptionStatus(sub *stripe.Subscription) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sub.Customer == nil {
		return
	}
	user, err := h.db.GetUserByStripeCustomer(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Errorw("no user for subscription update", "customer_id", sub.Customer.ID, "error", err)
		return
	}

	status := models.PlanStatusActive
	plan := models.PlanPremium
	switch sub.Status {
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		status = models.PlanStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		status = models.PlanStatusCanceled
		plan = models.PlanFree
	}

	if err := h.db.UpdateSubscription(ctx, user.ID, plan, status, sub.Customer.ID, sub.ID); err != nil {
		h.logger.Errorw("failed to sync subscription status", "user_id", user.ID, "error", err)
		return
	}
	h.logger.Infow("subscription status synced", "user_id", user.ID, "status", status)
}

// markPaymentFailed records a failed subscription invoice in the
// payments ledger. An already-recorded invoice is flipped to failed;
// a first-seen one gets a fresh ledger row attributed via the Stripe
// customer.
func (h *Handler) markPaymentFailed(invoice *stripe.Invoice) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := h.db.UpdatePaymentStatus(ctx, invoice.ID, "failed")
	if errors.Is(err, db.ErrNotFound) {
		if invoice.Customer == nil {
			h.logger.Errorw("payment failure for unknown customer", "invoice_id", invoice.ID)
			return
		}
		user, uerr := h.db.GetUserByStripeCustomer(ctx, invoice.Customer.ID)
		if uerr != nil {
			h.logger.Errorw("no user for failed invoice", "invoice_id", invoice.ID, "customer_id", invoice.Customer.ID, "error", uerr)
			return
		}
		err = h.db.SavePayment(ctx, &models.Payment{
			UserID:          user.ID,
			Amount:          int(invoice.AmountDue),
			Currency:        string(invoice.Currency),
			StripePaymentID: invoice.ID,
			Status:          "failed",
		})
	}
	if err != nil {
		h.logger.Errorw("failed to record payment failure", "invoice_id", invoice.ID, "error", err)
		return
	}
	h.logger.Warnw("subscription payment failed", "invoice_id", invoice.ID)
}

func (h *Handler) cancelSubscription(sub *stripe.Subscription) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sub.Customer == nil {
		return
	}
	user, err := h.db.GetUserByStripeCustomer(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Errorw("no user for subscription cancel", "customer_id", sub.Customer.ID, "error", err)
		return
	}

	if err := h.db.UpdateSubscription(ctx, user.ID, models.PlanFree, models.PlanStatusCanceled, sub.Customer.ID, ""); err != nil {
		h.logger.Errorw("failed to cancel subscription", "user_id", user.ID, "error", err)
		return
	}
	h.logger.Infow("subscription canceled", "user_id", user.ID)
}
