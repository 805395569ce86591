package domain

import "encoding/json"

// MessageRef identifies a localized message. It is resolved by the consumer,
// never by the feed.
type MessageRef string

// DefaultErrorMessage is the message reference used for generic failures.
const DefaultErrorMessage MessageRef = "default_error_text"

// Result is the outcome published by the feed.
// Implementations: Success, ErrorRes, ServerError, Error.
type Result interface {
	isResult()
}

// Success carries a fetched or fallback fact.
type Success struct {
	Fact Fact
}

// ErrorRes carries a message reference for generic failures.
type ErrorRes struct {
	Message MessageRef
}

// ServerError reports that the remote host could not be resolved or reached.
type ServerError struct{}

// Error carries a literal message.
type Error struct {
	Message string
}

func (Success) isResult()     {}
func (ErrorRes) isResult()    {}
func (ServerError) isResult() {}
func (Error) isResult()       {}

type ResultKind string

const (
	KindSuccess     ResultKind = "success"
	KindErrorRes    ResultKind = "error_res"
	KindServerError ResultKind = "server_error"
	KindError       ResultKind = "error"
	KindNone        ResultKind = "none"
)

// KindOf returns the variant name of r. A nil Result is KindNone.
func KindOf(r Result) ResultKind {
	switch r.(type) {
	case Success, *Success:
		return KindSuccess
	case ErrorRes, *ErrorRes:
		return KindErrorRes
	case ServerError, *ServerError:
		return KindServerError
	case Error, *Error:
		return KindError
	default:
		return KindNone
	}
}

// ResultView is the flat JSON form of a Result.
type ResultView struct {
	Kind    ResultKind `json:"kind"`
	Fact    string     `json:"fact,omitempty"`
	Message string     `json:"message,omitempty"`
}

// ViewOf flattens r for rendering.
func ViewOf(r Result) ResultView {
	v := ResultView{Kind: KindOf(r)}
	switch res := r.(type) {
	case Success:
		v.Fact = res.Fact.Text
	case ErrorRes:
		v.Message = string(res.Message)
	case Error:
		v.Message = res.Message
	}
	return v
}

// MarshalResult encodes r as a ResultView.
func MarshalResult(r Result) ([]byte, error) {
	return json.Marshal(ViewOf(r))
}

// ResultFromView rebuilds a Result from its flat form.
func ResultFromView(v ResultView) Result {
	switch v.Kind {
	case KindSuccess:
		return Success{Fact: NewFact(v.Fact)}
	case KindErrorRes:
		return ErrorRes{Message: MessageRef(v.Message)}
	case KindServerError:
		return ServerError{}
	case KindError:
		return Error{Message: v.Message}
	default:
		return nil
	}
}
