package types

import "time"

// GatewayTransactionType classifies a GatewayTransaction, per spec §3.
type GatewayTransactionType string

const (
	GatewayDeposit  GatewayTransactionType = "Deposit"
	GatewayWithdraw GatewayTransactionType = "Withdraw"
	GatewayFee      GatewayTransactionType = "Fee"
)

// GatewayTransactionStatus is the forward-only status set from spec §4.3,
// except for the Pending->Failed revert path.
type GatewayTransactionStatus string

const (
	GatewayPending   GatewayTransactionStatus = "Pending"
	GatewayCompleted GatewayTransactionStatus = "Completed"
	GatewayFailed    GatewayTransactionStatus = "Failed"
)

// GatewayTransaction records money crossing the external trust boundary,
// per spec §3/§4.3. Its ID is also the idempotency/correlation key handed
// to the external rail (Stripe metadata, PayPal sender_batch_id).
type GatewayTransaction struct {
	ID                ID                       `json:"id" storm:"id"`
	User              ID                       `json:"user" storm:"index"`
	Type              GatewayTransactionType   `json:"type"`
	Status            GatewayTransactionStatus `json:"status" storm:"index"`
	Amount            Amount                   `json:"amount"`
	Currency          Currency                 `json:"currency"`
	ExternalTxID      string                   `json:"external_tx_id,omitempty"`
	ExternalAccountID string                   `json:"external_account_id,omitempty"`
	FeeTx             *ID                      `json:"fee_tx,omitempty"`
	LockID            *ID                      `json:"lock_id,omitempty"`
	RevertReason      string                   `json:"revert_reason,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// RailOutcome is the verified, rail-agnostic outcome of a webhook event
// (Stripe payment_intent.succeeded / PayPal PAYOUTS-ITEM.*), per spec §6.
// Signature/envelope verification happens upstream of this type — out of
// scope per spec §1.
type RailOutcome string

const (
	RailSucceeded RailOutcome = "Succeeded"
	RailFailed    RailOutcome = "Failed"
)

// RailWebhookEvent is the narrow contract the gateway needs from an already
// signature-verified Stripe/PayPal webhook handler (external collaborator,
// spec §1/§6).
type RailWebhookEvent struct {
	Rail       string
	ExternalID string
	GatewayTx  ID
	Outcome    RailOutcome
}
