package client

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/Sternrassler/catalog-audit/pkg/catalog"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted marks errors returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled marks errors returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrMissingCredentials is returned by New when account, app key or app token is empty.
	ErrMissingCredentials = errors.New("missing catalog credentials")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport failures and malformed bodies.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnexpected represents any other non-200 status.
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// CatalogError is a non-200 response from the catalog API.
type CatalogError struct {
	StatusCode int
	ErrorClass ErrorClass
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog %s error (status %d) on %s: %s: %v",
			e.ErrorClass, e.StatusCode, e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("catalog %s error (status %d) on %s: %s",
		e.ErrorClass, e.StatusCode, e.Endpoint, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// FetchExhaustedError is returned by FetchSKU when every attempt failed.
type FetchExhaustedError struct {
	SKU      catalog.SKUID
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("failed to fetch SKU %s after %d attempts: %v", e.SKU, e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error, which is marked with ErrRetryExhausted.
func (e *FetchExhaustedError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-200 status code onto an ErrorClass.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}

// shouldRetry determines if an error class is worth another attempt.
func shouldRetry(errorClass ErrorClass, cfg RetryConfig) bool {
	switch errorClass {
	case ErrorClassClient:
		// permanent unless explicitly configured otherwise
		return cfg.RetryClientErrors
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork, ErrorClassUnexpected:
		return true
	default:
		return false
	}
}
