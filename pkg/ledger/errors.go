package ledger

import "errors"

var (
	// ErrLoanNotApproved is returned when a repayment is attempted against a
	// loan that is not in the approved state.
	ErrLoanNotApproved = errors.New("cannot repay non-approved loan")

	// ErrInvalidAmount is returned for a zero or negative amount. The check
	// runs before any state is touched.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrLoanProcessed is returned when approving or rejecting a loan that
	// has already left the pending state.
	ErrLoanProcessed = errors.New("loan has already been processed")

	// ErrNoAccount is returned when a loan operation needs the member's
	// savings account and none exists.
	ErrNoAccount = errors.New("member account not found")
)
