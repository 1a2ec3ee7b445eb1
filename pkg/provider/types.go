package provider

import (
	"fmt"
	"strings"
	"time"
)

// Balances carries the balance sub-structure of a provider account.
// Every field is optional; some account types report none of them.
type Balances struct {
	Available       *float64 `json:"available"`
	Current         *float64 `json:"current"`
	Limit           *float64 `json:"limit"`
	ISOCurrencyCode *string  `json:"iso_currency_code"`
}

// Account is an account descriptor as reported by the provider
type Account struct {
	AccountID    string    `json:"account_id"`
	Name         string    `json:"name"`
	OfficialName *string   `json:"official_name"`
	Mask         *string   `json:"mask"`
	Type         string    `json:"type"`
	Subtype      *string   `json:"subtype"`
	Balances     *Balances `json:"balances"`
}

// PersonalFinanceCategory is the provider's coarse category hint for a transaction
type PersonalFinanceCategory struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

// Transaction is a transaction record from a delta page. Amount is signed the
// provider's way: positive for outflow, negative for inflow.
type Transaction struct {
	TransactionID           string                   `json:"transaction_id"`
	AccountID               string                   `json:"account_id"`
	PendingTransactionID    *string                  `json:"pending_transaction_id"`
	Amount                  float64                  `json:"amount"`
	ISOCurrencyCode         *string                  `json:"iso_currency_code"`
	MerchantName            *string                  `json:"merchant_name"`
	Name                    *string                  `json:"name"`
	PersonalFinanceCategory *PersonalFinanceCategory `json:"personal_finance_category"`
	AuthorizedDate          *Date                    `json:"authorized_date"`
	Date                    *Date                    `json:"date"`
	Pending                 bool                     `json:"pending"`
}

// RemovedTransaction identifies a transaction the provider reports as removed
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
}

// DeltaPage is one page of the provider's incremental transactions feed
type DeltaPage struct {
	Added      []Transaction
	Modified   []Transaction
	Removed    []RemovedTransaction
	NextCursor string
	HasMore    bool
}

const dateLayout = "2006-01-02"

// Date is a civil date (no time component) encoded as "YYYY-MM-DD" on the wire
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// UnmarshalJSON parses a "YYYY-MM-DD" JSON string; null yields the zero Date
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// MarshalJSON renders the date as a "YYYY-MM-DD" JSON string
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}
