package types

import "encoding/json"

// Currency is the closed three-member currency enum from spec §3. There is
// no conversion between currencies — each is tracked independently at its
// own fixed number of decimals (§1 Non-goals).
type Currency string

const (
	USD  Currency = "USD"
	REEF Currency = "REEF"
	ETH  Currency = "ETH"
)

// Decimals returns the fixed decimal precision an Amount of this currency is
// denominated in (e.g. USD amounts are integer cents).
func (c Currency) Decimals() int {
	switch c {
	case USD:
		return 2
	case REEF:
		return 6
	case ETH:
		return 18
	default:
		return 0
	}
}

// Valid reports whether c is one of the recognized currencies.
func (c Currency) Valid() bool {
	switch c {
	case USD, REEF, ETH:
		return true
	default:
		return false
	}
}

// Amount is an integer quantity of a Currency at its fixed decimals (e.g.
// USD cents). A persisted balance is never negative except on the
// AppGatewayWalletID chain; spec §8 "Non-negativity" is enforced at the
// ledger layer, not here.
type Amount int64

// MarshalJSON renders Amount as a JSON number, matching how every other
// example wallet/ledger service in the retrieved pack represents fixed-point
// money (an integer minor-unit count, not a float).
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(a))
}

// Balances is the combined per-currency balance view spec §4.2 calls a
// "{usd, reef, eth}" summary.
type Balances map[Currency]Amount

// SpendableLocked is the {spendable, locked} pair spec §4.2 emits when both
// views of a user's wallets are requested together.
type SpendableLocked struct {
	Spendable Balances `json:"spendable"`
	Locked    Balances `json:"locked"`
}
