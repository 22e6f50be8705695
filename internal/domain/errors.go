package domain

import (
	"errors"
	"net/http"
)

var (
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorStoreError signals a vector store connection or search failure.
	ErrVectorStoreError = errors.New("vector store error")
	// ErrContentUnavailable signals that matched content could not be read.
	ErrContentUnavailable = errors.New("content unavailable")
	// ErrBodyTooLarge signals a request body over the configured limit.
	ErrBodyTooLarge = errors.New("body too big")
	// ErrInvalidJSON signals a request body that is not a valid query document.
	ErrInvalidJSON = errors.New("invalid json body")
)

// ErrorKind classifies the outcome of a request. The set is closed: every
// response carries exactly one kind and the router derives the HTTP status from it.
type ErrorKind int

const (
	// KindNone is a successful outcome.
	KindNone ErrorKind = iota
	// KindNoMatch is a normal KO outcome: no candidate or a weak one.
	KindNoMatch
	// KindBodyTooLarge is a request rejected on its declared or actual size.
	KindBodyTooLarge
	// KindInvalidJSON is a request body that failed to decode.
	KindInvalidJSON
	// KindAdapterFailure is an embedding or vector store failure.
	KindAdapterFailure
	// KindContentUnavailable is a confident match whose file could not be read.
	KindContentUnavailable
	// KindUnauthorized is a request rejected by bearer auth.
	KindUnauthorized
	// KindNotFound is an unknown method+path.
	KindNotFound
)

var kindNames = map[ErrorKind]string{
	KindNone:               "none",
	KindNoMatch:            "no_match",
	KindBodyTooLarge:       "body_too_large",
	KindInvalidJSON:        "invalid_json",
	KindAdapterFailure:     "adapter_failure",
	KindContentUnavailable: "content_unavailable",
	KindUnauthorized:       "unauthorized",
	KindNotFound:           "not_found",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// HTTPStatus maps the kind to the status code of the public API.
// Resolver KO outcomes (no match, adapter and content failures) all map to 500.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindNone:
		return http.StatusOK
	case KindBodyTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindInvalidJSON:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
