package payment

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OutcomeCode classifies what a reconciliation attempt did.
// Outcomes are values: the gateway cannot act on errors, only on acknowledgments.
type OutcomeCode string

const (
	OutcomeNoMatch            OutcomeCode = "NO_MATCH"
	OutcomeUnknownTransaction OutcomeCode = "UNKNOWN_TRANSACTION"
	OutcomeAlreadySettled     OutcomeCode = "ALREADY_SETTLED"
	OutcomeNotPayable         OutcomeCode = "NOT_PAYABLE"
	OutcomeInsufficientFunds  OutcomeCode = "INSUFFICIENT_FUNDS"
	OutcomeSettled            OutcomeCode = "SETTLED"
	// OutcomeSettledRefundDue settled the transaction, but some of its bills had
	// already been paid another way and their share is owed back to the resident
	OutcomeSettledRefundDue OutcomeCode = "SETTLED_REFUND_DUE"
	// OutcomeIgnored marks gateway notifications that are not incoming transfers
	OutcomeIgnored OutcomeCode = "IGNORED"
)

// ReconcileOutcome is the structured acknowledgment of an inbound payment
type ReconcileOutcome struct {
	Code          OutcomeCode       `json:"outcome"`
	TransactionID int64             `json:"transaction_id,omitempty"`
	Status        TransactionStatus `json:"status,omitempty"`
	Expected      decimal.Decimal   `json:"expected"`
	Received      decimal.Decimal   `json:"received"`
	RefundBillIDs []int64           `json:"refund_bill_ids,omitempty"`
	Message       string            `json:"message"`
}

// Settled reports whether the transaction is (now or already) paid
func (o *ReconcileOutcome) Settled() bool {
	return o.Code == OutcomeSettled || o.Code == OutcomeSettledRefundDue || o.Code == OutcomeAlreadySettled
}

// NoMatchOutcome is returned when the memo carries no correlation code
func NoMatchOutcome() *ReconcileOutcome {
	return &ReconcileOutcome{Code: OutcomeNoMatch, Message: "no correlation code found in memo"}
}

// IgnoredOutcome is returned for notifications the reconciler has no business with
func IgnoredOutcome(reason string) *ReconcileOutcome {
	return &ReconcileOutcome{Code: OutcomeIgnored, Message: reason}
}

// UnknownTransactionOutcome is returned when the code resolves to nothing
func UnknownTransactionOutcome(id int64) *ReconcileOutcome {
	return &ReconcileOutcome{
		Code:          OutcomeUnknownTransaction,
		TransactionID: id,
		Message:       fmt.Sprintf("transaction %d not found", id),
	}
}

// AlreadySettledOutcome is returned for replays against a SUCCESS transaction
func AlreadySettledOutcome(t *PaymentTransaction) *ReconcileOutcome {
	return &ReconcileOutcome{
		Code:          OutcomeAlreadySettled,
		TransactionID: t.ID,
		Status:        TransactionStatusSuccess,
		Expected:      t.Amount,
		Message:       fmt.Sprintf("transaction %d already settled", t.ID),
	}
}

// NotPayableOutcome is returned for FAILED or EXPIRED transactions, which are never resurrected
func NotPayableOutcome(t *PaymentTransaction, status TransactionStatus) *ReconcileOutcome {
	return &ReconcileOutcome{
		Code:          OutcomeNotPayable,
		TransactionID: t.ID,
		Status:        status,
		Expected:      t.Amount,
		Message:       fmt.Sprintf("transaction %d is %s", t.ID, status),
	}
}

// InsufficientFundsOutcome is returned when the transfer is short; the transaction stays PENDING
func InsufficientFundsOutcome(t *PaymentTransaction, received decimal.Decimal) *ReconcileOutcome {
	return &ReconcileOutcome{
		Code:          OutcomeInsufficientFunds,
		TransactionID: t.ID,
		Status:        TransactionStatusPending,
		Expected:      t.Amount,
		Received:      received,
		Message:       fmt.Sprintf("received %s, expected %s", received.String(), t.Amount.String()),
	}
}

// SettledOutcome is returned when this call settled the transaction
func SettledOutcome(t *PaymentTransaction, received decimal.Decimal) *ReconcileOutcome {
	return &ReconcileOutcome{
		Code:          OutcomeSettled,
		TransactionID: t.ID,
		Status:        TransactionStatusSuccess,
		Expected:      t.Amount,
		Received:      received,
		Message:       fmt.Sprintf("transaction %d settled", t.ID),
	}
}

// SettledRefundDueOutcome is returned when this call settled the transaction while
// alreadyPaid bills had been collected another way in the meantime
func SettledRefundDueOutcome(t *PaymentTransaction, received decimal.Decimal, alreadyPaid []int64) *ReconcileOutcome {
	o := SettledOutcome(t, received)
	o.Code = OutcomeSettledRefundDue
	o.RefundBillIDs = alreadyPaid
	o.Message = fmt.Sprintf("transaction %d settled; %d bill(s) were already paid, %s is due back",
		t.ID, len(alreadyPaid), t.AmountFor(alreadyPaid).String())
	return o
}
