package errors

// Shared sentinels. Compare with errors.Is; copy with WithDetails or
// WithMessage before attaching request data.
var (
	ErrMissingFields     = Validation("MISSING_FIELDS", "missing required fields")
	ErrInvalidAmount     = Validation("INVALID_AMOUNT", "amount must be a positive number")
	ErrInvalidPrecision  = Validation("INVALID_PRECISION", "amount must have at most 2 decimal places")
	ErrMaxLimitExceeded  = Validation("MAX_LIMIT_EXCEEDED", "maximum deposit limit exceeded")
	ErrInvalidCurrency   = Validation("INVALID_CURRENCY", "invalid currency")
	ErrInvalidPinFormat  = Validation("INVALID_PIN_FORMAT", "PIN must be exactly 4 digits")
	ErrInvalidEmail      = Validation("INVALID_EMAIL", "invalid email format")
	ErrInvalidUsername   = Validation("INVALID_USERNAME", "username must be 3-20 characters and contain only letters, numbers, and underscores")
	ErrInvalidIdentifier = Validation("INVALID_IDENTIFIER", "provide exactly one of email or username")
	ErrSelfTransfer      = Validation("SELF_TRANSFER", "cannot transfer to yourself")
	ErrSameCurrency      = Validation("SAME_CURRENCY", "cannot convert a currency to itself")
	ErrUnsupportedPair   = Validation("UNSUPPORTED_PAIR", "unsupported currency pair")
	ErrPairLabelMismatch = Validation("PAIR_LABEL_MISMATCH", "currency pair does not match the selected currencies")

	ErrUnauthorized     = Unauthorized("UNAUTHORIZED", "unauthorized")
	ErrPinNotConfigured = Unauthorized("PIN_NOT_CONFIGURED", "transaction PIN not set, please set up your PIN first")
	ErrInvalidPin       = Unauthorized("INVALID_PIN", "invalid transaction PIN")

	ErrUserNotFound          = NotFound("USER_NOT_FOUND", "user not found")
	ErrAccountNotFound       = NotFound("ACCOUNT_NOT_FOUND", "account not found")
	ErrRecipientNotFound     = NotFound("RECIPIENT_NOT_FOUND", "recipient not found")
	ErrNoSenderAccount       = NotFound("NO_SENDER_ACCOUNT", "sender account not found for this currency")
	ErrNoRecipientAccount    = NotFound("NO_RECIPIENT_ACCOUNT", "recipient does not have an account in this currency")
	ErrSourceAccountNotFound = NotFound("SOURCE_ACCOUNT_NOT_FOUND", "source account not found")
	ErrTargetAccountNotFound = NotFound("TARGET_ACCOUNT_NOT_FOUND", "target account not found")

	ErrConflict   = Conflict("CONFLICT", "the request conflicted with a concurrent change, please retry")
	ErrUserExists = Conflict("USER_EXISTS", "a user with this email or username already exists")

	ErrInsufficientFunds = New(KindInsufficientFunds, "INSUFFICIENT_FUNDS", "insufficient funds")

	ErrRateMismatch   = New(KindMismatch, "RATE_MISMATCH", "exchange rate mismatch")
	ErrAmountMismatch = New(KindMismatch, "AMOUNT_MISMATCH", "converted amount mismatch")
)
