package syncer

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gochippr/backend/pkg/ledgerstore"
	"github.com/gochippr/backend/pkg/provider"
)

// MapAccount translates a provider account descriptor into canonical account
// fields. Absent sub-structures (balances) map to nil fields; inputs are
// never mutated.
func MapAccount(userID, itemID uuid.UUID, acct provider.Account) ledgerstore.AccountUpsert {
	out := ledgerstore.AccountUpsert{
		UserID:            userID,
		LinkedItemID:      itemID,
		ExternalAccountID: acct.AccountID,
		OfficialName:      acct.OfficialName,
		Mask:              acct.Mask,
		Subtype:           acct.Subtype,
	}

	if acct.Name != "" {
		name := acct.Name
		out.Name = &name
	}
	if acct.Type != "" {
		accountType := acct.Type
		out.Type = &accountType
	}

	if b := acct.Balances; b != nil {
		out.Currency = b.ISOCurrencyCode
		if b.Current != nil {
			current := decimal.NewFromFloat(*b.Current)
			out.CurrentBalance = &current
		}
		if b.Available != nil {
			available := decimal.NewFromFloat(*b.Available)
			out.AvailableBalance = &available
		}
	}

	return out
}

// ClassifyAmount infers debit vs credit from the provider's signed amount.
// The provider reports positive amounts for outflow and negative for inflow.
// A signed zero falls back to the coarse category hint: an INCOME-like hint
// means credit, anything else defaults to debit.
func ClassifyAmount(amount float64, hint *provider.PersonalFinanceCategory) ledgerstore.TransactionType {
	if amount < 0 {
		return ledgerstore.TypeCredit
	}
	if amount > 0 {
		return ledgerstore.TypeDebit
	}
	if hint != nil && strings.Contains(strings.ToUpper(hint.Primary), "INCOME") {
		return ledgerstore.TypeCredit
	}
	return ledgerstore.TypeDebit
}

// MapTransaction translates a provider transaction into a canonical record
// for the given account. The stored amount is the non-negative magnitude;
// the sign goes into the type.
func MapTransaction(accountID uuid.UUID, txn provider.Transaction) ledgerstore.NewTransaction {
	out := ledgerstore.NewTransaction{
		AccountID:     accountID,
		ExternalTxnID: txn.TransactionID,
		Amount:        decimal.NewFromFloat(txn.Amount).Abs(),
		Type:          ClassifyAmount(txn.Amount, txn.PersonalFinanceCategory),
		Currency:      txn.ISOCurrencyCode,
		MerchantName:  txn.MerchantName,
		Description:   txn.Name,
		Pending:       txn.Pending,
	}

	// Category stays empty here; the categorization service assigns it
	// outside the sync path.
	out.AuthorizedDate = mapDate(txn.AuthorizedDate)
	out.PostedDate = mapDate(txn.Date)

	return out
}

// PatchFromTransaction builds the mutable-field patch applied when the
// provider reports a transaction as modified.
func PatchFromTransaction(txn provider.Transaction) ledgerstore.TransactionPatch {
	amount := decimal.NewFromFloat(txn.Amount).Abs()
	txnType := ClassifyAmount(txn.Amount, txn.PersonalFinanceCategory)
	pending := txn.Pending

	return ledgerstore.TransactionPatch{
		Amount:         &amount,
		Type:           &txnType,
		Currency:       txn.ISOCurrencyCode,
		MerchantName:   txn.MerchantName,
		Description:    txn.Name,
		AuthorizedDate: mapDate(txn.AuthorizedDate),
		PostedDate:     mapDate(txn.Date),
		Pending:        &pending,
	}
}

func mapDate(d *provider.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
