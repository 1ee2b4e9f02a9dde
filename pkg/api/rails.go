package api

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/darve-social/darve-server/types"
)

// stripeWebhookBody is the narrow subset of a Stripe payment_intent event
// this surface needs, after the (out of scope, per spec §1) signature
// verification middleware has already authenticated the envelope.
// payment_intent.metadata.gateway_tx carries the GatewayTransaction.ID this
// rail correlates to, set at InitDeposit/InitWithdraw time.
type stripeWebhookBody struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Metadata struct {
				GatewayTx string `json:"gateway_tx"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// handleStripeWebhook translates a verified Stripe payment_intent event
// into a types.RailWebhookEvent and hands it to the gateway, per spec §6.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body stripeWebhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
		return
	}

	outcome, ok := stripeOutcome(body.Type)
	if !ok {
		// Events this gateway does not act on (e.g. payment_intent.created)
		// are acknowledged without error so Stripe does not retry them.
		WriteSuccess(w)
		return
	}

	gatewayTxID, err := types.ParseID(body.Data.Object.Metadata.GatewayTx)
	if err != nil {
		writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
		return
	}

	event := types.RailWebhookEvent{
		Rail:       "stripe",
		ExternalID: body.Data.Object.ID,
		GatewayTx:  gatewayTxID,
		Outcome:    outcome,
	}
	if err := s.gateway.HandleWebhook(r.Context(), event); err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w)
}

func stripeOutcome(eventType string) (types.RailOutcome, bool) {
	switch eventType {
	case "payment_intent.succeeded":
		return types.RailSucceeded, true
	case "payment_intent.payment_failed", "payment_intent.canceled":
		return types.RailFailed, true
	default:
		return "", false
	}
}

// paypalWebhookBody is the narrow subset of a PayPal PAYOUTS-ITEM event
// this surface needs. sender_batch_id is set to the GatewayTransaction.ID
// at InitWithdraw time, per spec §6.
type paypalWebhookBody struct {
	EventType string `json:"event_type"`
	Resource  struct {
		PayoutItemID  string `json:"payout_item_id"`
		PayoutBatchID string `json:"payout_batch_id"`
		PayoutItem    struct {
			SenderBatchID string `json:"sender_item_id"`
		} `json:"payout_item"`
	} `json:"resource"`
}

// handlePaypalWebhook translates a verified PayPal payouts event into a
// types.RailWebhookEvent and hands it to the gateway, per spec §6.
func (s *Server) handlePaypalWebhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body paypalWebhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
		return
	}

	outcome, ok := paypalOutcome(body.EventType)
	if !ok {
		WriteSuccess(w)
		return
	}

	gatewayTxID, err := types.ParseID(body.Resource.PayoutItem.SenderBatchID)
	if err != nil {
		writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
		return
	}

	event := types.RailWebhookEvent{
		Rail:       "paypal",
		ExternalID: body.Resource.PayoutItemID,
		GatewayTx:  gatewayTxID,
		Outcome:    outcome,
	}
	if err := s.gateway.HandleWebhook(r.Context(), event); err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w)
}

func paypalOutcome(eventType string) (types.RailOutcome, bool) {
	switch eventType {
	case "PAYMENT.PAYOUTS-ITEM.SUCCEEDED":
		return types.RailSucceeded, true
	case "PAYMENT.PAYOUTS-ITEM.FAILED", "PAYMENT.PAYOUTS-ITEM.DENIED", "PAYMENT.PAYOUTS-ITEM.CANCELED":
		return types.RailFailed, true
	default:
		return "", false
	}
}
