package domain

import (
	"fmt"
	"strconv"
)

// Status is the outcome tag of a response.
type Status string

const (
	// StatusOK marks a resolved query.
	StatusOK Status = "OK"
	// StatusKO marks any other outcome.
	StatusKO Status = "KO"
)

// Fixed response messages.
const (
	MsgRefinePrompt       = "I could not find any related info, please refine your prompt"
	MsgServiceUp          = "service is up"
	MsgUseQueryEndpoint   = "ensure you post to the /query endpoint with valid json"
	MsgBodyTooBig         = "body too big"
	MsgInvalidJSON        = "invalid json body"
	MsgQueryRequired      = "query is required"
	MsgContentUnavailable = "content unavailable"
	MsgUnauthorized       = "unauthorized"
	MsgInternalError      = "internal error"
)

// ZeroScore is the score rendered for every response without a confident match.
const ZeroScore = "0.0"

// Response is the only externally visible entity. It is built fresh per request.
type Response struct {
	Status Status  `json:"status"`
	Query  *string `json:"query"`
	Data   string  `json:"data"`
	Score  string  `json:"score"`

	// Kind is the outcome classification used for status mapping; never serialized.
	Kind ErrorKind `json:"-"`
}

// OK builds a successful response carrying the matched content.
func OK(query string, score float64, data string) Response {
	return Response{
		Status: StatusOK,
		Query:  &query,
		Data:   data,
		Score:  FormatScore(score),
		Kind:   KindNone,
	}
}

// NoMatch builds the advisory KO returned for empty and below-threshold matches.
func NoMatch(query string) Response {
	return Response{
		Status: StatusKO,
		Query:  &query,
		Data:   MsgRefinePrompt,
		Score:  ZeroScore,
		Kind:   KindNoMatch,
	}
}

// AdapterFailure builds a KO embedding the diagnostic of a failed external call.
func AdapterFailure(adapter string, err error) Response {
	return Response{
		Status: StatusKO,
		Data:   fmt.Sprintf("%s %v", adapter, err),
		Score:  ZeroScore,
		Kind:   KindAdapterFailure,
	}
}

// ContentUnavailable builds the KO returned when a confident match cannot be loaded.
func ContentUnavailable(query string) Response {
	return Response{
		Status: StatusKO,
		Query:  &query,
		Data:   MsgContentUnavailable,
		Score:  ZeroScore,
		Kind:   KindContentUnavailable,
	}
}

// Failure builds a KO without a query, for requests rejected before resolution.
func Failure(kind ErrorKind, msg string) Response {
	return Response{
		Status: StatusKO,
		Data:   msg,
		Score:  ZeroScore,
		Kind:   kind,
	}
}

// Alive builds the liveness payload.
func Alive() Response {
	return Response{
		Status: StatusOK,
		Data:   MsgServiceUp,
		Score:  ZeroScore,
		Kind:   KindNone,
	}
}

// FormatScore renders a similarity score with the shortest representation
// that round-trips at full float64 precision.
func FormatScore(score float64) string {
	if score == 0 {
		return ZeroScore
	}
	return strconv.FormatFloat(score, 'f', -1, 64)
}
