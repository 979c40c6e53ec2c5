package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the caller may not act on the named tenant's data.
var ErrForbidden = errors.New("forbidden")

// ErrLimitExceeded indicates a conversion would cross a tier or volume cap.
// The transaction is never claimed; the caller is informed synchronously.
var ErrLimitExceeded = errors.New("volume limit exceeded")

// ErrConcurrencyConflict indicates a claim race was lost or a cancel arrived
// after the claim. Duplicate webhook deliveries resolve through this and are
// reported to the caller as success with the prior result.
var ErrConcurrencyConflict = errors.New("concurrent modification conflict")

// ErrExchangeUnavailable indicates a health-check failure or transient
// exchange error. Retried with backoff before the transaction fails.
var ErrExchangeUnavailable = errors.New("exchange unavailable")

// ErrExchangeRejected indicates the exchange refused the request outright
// (bad credentials, insufficient balance). Never retried.
var ErrExchangeRejected = errors.New("exchange rejected request")

// ErrAccountingInconsistency indicates lot selection cannot satisfy a
// disposal, e.g. SPECIFIC_ID lots with insufficient remaining balance.
// Surfaced as-is; never silently substituted with another method.
var ErrAccountingInconsistency = errors.New("accounting inconsistency")
