package ledger

import "errors"

// Validation errors: the request is malformed regardless of state.
var (
	ErrInvalidTier   = errors.New("invalid tier")
	ErrZeroAmount    = errors.New("amount must be positive")
	ErrBelowMinimum  = errors.New("stake below tier minimum")
	ErrBatchSize     = errors.New("claim batch size out of range")
	ErrInvalidBoost  = errors.New("invalid boost parameters")
	ErrInvalidConfig = errors.New("invalid ledger config")
)

// Precondition errors: the request is well formed but the state forbids it.
var (
	ErrPositionNotFound = errors.New("position not found")
	ErrPositionExists   = errors.New("live position already exists")
	ErrPositionNotAlive = errors.New("position is not alive")
	ErrLockWindow       = errors.New("withdrawal locked before scan")
	ErrDoomed           = errors.New("position is doomed in the active scan")
	ErrScanActive       = errors.New("scan already active")
	ErrScanNotDue       = errors.New("scan interval not elapsed")
	ErrNoActiveScan     = errors.New("no active scan")
	ErrWindowOpen       = errors.New("submission window still open")
	ErrResetNotDue      = errors.New("reset deadline not reached")
	ErrEmptyTier        = errors.New("tier has no stake")
	ErrNothingToClaim   = errors.New("nothing to claim")
	ErrTooManyBoosts    = errors.New("boost limit reached")
	ErrReentrant        = errors.New("reentrant call")
)

// Authorization errors: the caller or its credentials are not accepted.
var (
	ErrUnauthorized = errors.New("caller not authorized")
	ErrSignerNotSet = errors.New("boost signer not configured")
	ErrBadSignature = errors.New("invalid boost signature")
	ErrBoostExpired = errors.New("boost expired")
	ErrNonceUsed    = errors.New("boost nonce already used")
)

// Consistency errors: a claim disagrees with what the ledger can recompute.
var (
	ErrNotEligible     = errors.New("position not eligible for scan")
	ErrWrongTier       = errors.New("position belongs to another tier")
	ErrVerdictMismatch = errors.New("verdict does not match claim")
)

// ErrorClass is the taxonomy bucket of a ledger error.
type ErrorClass string

const (
	ClassNone          ErrorClass = ""
	ClassValidation    ErrorClass = "validation"
	ClassPrecondition  ErrorClass = "precondition"
	ClassAuthorization ErrorClass = "authorization"
	ClassConsistency   ErrorClass = "consistency"
	ClassExternal      ErrorClass = "external"
)

var classes = map[error]ErrorClass{
	ErrInvalidTier:   ClassValidation,
	ErrZeroAmount:    ClassValidation,
	ErrBelowMinimum:  ClassValidation,
	ErrBatchSize:     ClassValidation,
	ErrInvalidBoost:  ClassValidation,
	ErrInvalidConfig: ClassValidation,

	ErrPositionNotFound: ClassPrecondition,
	ErrPositionExists:   ClassPrecondition,
	ErrPositionNotAlive: ClassPrecondition,
	ErrLockWindow:       ClassPrecondition,
	ErrDoomed:           ClassPrecondition,
	ErrScanActive:       ClassPrecondition,
	ErrScanNotDue:       ClassPrecondition,
	ErrNoActiveScan:     ClassPrecondition,
	ErrWindowOpen:       ClassPrecondition,
	ErrResetNotDue:      ClassPrecondition,
	ErrEmptyTier:        ClassPrecondition,
	ErrNothingToClaim:   ClassPrecondition,
	ErrTooManyBoosts:    ClassPrecondition,
	ErrReentrant:        ClassPrecondition,

	ErrUnauthorized: ClassAuthorization,
	ErrSignerNotSet: ClassAuthorization,
	ErrBadSignature: ClassAuthorization,
	ErrBoostExpired: ClassAuthorization,
	ErrNonceUsed:    ClassAuthorization,

	ErrNotEligible:     ClassConsistency,
	ErrWrongTier:       ClassConsistency,
	ErrVerdictMismatch: ClassConsistency,
}

// Class maps err to its taxonomy bucket. Errors raised by collaborators
// (for example an insufficient token balance) classify as ClassExternal.
func Class(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	for sentinel, class := range classes {
		if errors.Is(err, sentinel) {
			return class
		}
	}
	return ClassExternal
}
