package apperror

import (
	"fmt"
	"net/http"
)

// Normalized response codes shared with clients. Two-character strings;
// the same set the provider adapters fold native codes into.
const (
	CodeSuccess         = "00"
	CodeTxnNotFound     = "01"
	CodeInvalidPayload  = "02"
	CodeNoDataFound     = "03"
	CodeDomainError     = "04"
	CodeDailyLimit      = "05"
	CodeProcessingError = "06"
	CodeAuthError       = "07"
	CodeInvalidMSISDN   = "08"
	CodePending         = "80"
	CodeProviderFailed  = "90"
	CodeNotImplemented  = "99"
)

// AppError is a structured error that maps to the response envelope.
type AppError struct {
	Code       string `json:"response_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (01 / 02 / 03) ----

func Validation(message string) *AppError {
	return New(CodeInvalidPayload, message, http.StatusBadRequest)
}

func ErrNoDataFound(message string) *AppError {
	return New(CodeNoDataFound, message, http.StatusOK)
}

func ErrTransactionNotFound() *AppError {
	return New(CodeTxnNotFound, "Transaction not found", http.StatusOK)
}

// ErrNotFound is the generic 01 lookup failure for non-transaction records.
func ErrNotFound(message string) *AppError {
	return New(CodeTxnNotFound, message, http.StatusOK)
}

// ---- Ledger / domain (04, 05) ----

func ErrInsufficientFunds(message string) *AppError {
	return New(CodeDomainError, message, http.StatusOK)
}

func ErrInvalidAmount() *AppError {
	return New(CodeDomainError, "Amount must be greater than 0", http.StatusOK)
}

func ErrDailyLimitExceeded() *AppError {
	return New(CodeDailyLimit, "Your daily transaction limit is exceeded", http.StatusBadRequest)
}

// ---- Processing (06) ----

func ErrDuplicateReference() *AppError {
	return New(CodeProcessingError, "Duplicate transaction, please try again", http.StatusConflict)
}

func ErrProcessing(message string) *AppError {
	return New(CodeProcessingError, message, http.StatusOK)
}

// InternalError wraps an internal error as a 06 processing error.
func InternalError(err error) *AppError {
	return Wrap(CodeProcessingError, "Unable to process transaction, please try again", http.StatusInternalServerError, err)
}

// ---- Authentication (07) ----

func ErrAuthentication(message string) *AppError {
	return New(CodeAuthError, message, http.StatusUnauthorized)
}

func ErrInvalidMerchant() *AppError {
	return ErrAuthentication("Invalid merchant code or merchant is inactive")
}

func ErrInvalidSignature() *AppError {
	return ErrAuthentication("Invalid signature")
}

func ErrRequestExpired() *AppError {
	return ErrAuthentication("Request has expired")
}

func ErrUnauthorizedIP() *AppError {
	return ErrAuthentication("Unauthorized IP")
}
