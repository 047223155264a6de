package shared

// TransactionType defines possible posting kinds
type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "deposit"
	TransactionTypeWithdrawal  TransactionType = "withdrawal"
	TransactionTypeTransferOut TransactionType = "transfer-out"
	TransactionTypeTransferIn  TransactionType = "transfer-in"
)

// IsCredit reports whether the type increases the account balance.
func (t TransactionType) IsCredit() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeTransferIn
}

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransferOut, TransactionTypeTransferIn:
		return true
	}
	return false
}

// TransferState tracks a single transfer through the posting engine.
// Only TransferStateCommitted is ever externally visible.
type TransferState string

const (
	TransferStateValidated     TransferState = "VALIDATED"
	TransferStateDebitReserved TransferState = "DEBIT_RESERVED"
	TransferStateCreditApplied TransferState = "CREDIT_APPLIED"
	TransferStateCommitted     TransferState = "COMMITTED"
	TransferStateAborted       TransferState = "ABORTED"
)

// KYCStatus is the identity verification state reported by the KYC provider
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusVerified KYCStatus = "verified"
	KYCStatusFailed   KYCStatus = "failed"
)

func (s KYCStatus) Valid() bool {
	return s == KYCStatusPending || s == KYCStatusVerified || s == KYCStatusFailed
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
