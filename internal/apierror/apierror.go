// Package apierror normalizes the backend's error bodies into a single
// human-readable message.
//
// The backend answers failures in two historical shapes, {"detail": ...} and
// {"error": {"message": ...}}. Both are resolved once, at the boundary, into a
// Body whose Kind says which shape matched.
package apierror

import (
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/iqautojobs/jobboard-bff/internal/ioutil"
	"github.com/iqautojobs/jobboard-bff/internal/log"
)

// FallbackMessage is returned when the body cannot be interpreted at all.
const FallbackMessage = "An unexpected error occurred."

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 1 << 20

// Kind discriminates the shapes a backend error body can take.
type Kind int

const (
	// KindUnparseable means the body was empty or not JSON.
	KindUnparseable Kind = iota
	// KindUnknown means the body was JSON but matched no known shape.
	KindUnknown
	// KindDetail is {"detail": "..."}.
	KindDetail
	// KindNested is {"error": {"message": "..."}}.
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindDetail:
		return "detail"
	case KindNested:
		return "nested"
	case KindUnknown:
		return "unknown"
	default:
		return "unparseable"
	}
}

// Body is a resolved backend error body.
type Body struct {
	Kind    Kind
	Message string
}

// MessageOr returns the user-visible message for b.
// Unknown shapes yield defaultMessage, unparseable bodies yield FallbackMessage.
func (b Body) MessageOr(defaultMessage string) string {
	switch b.Kind {
	case KindDetail, KindNested:
		return b.Message
	case KindUnknown:
		return defaultMessage
	default:
		return FallbackMessage
	}
}

// Parse resolves raw into a Body. detail wins over error.message.
func Parse(raw []byte) Body {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Body{Kind: KindUnparseable}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return Body{Kind: KindUnknown}
	}

	if msg := detailMessage(obj["detail"]); msg != "" {
		return Body{Kind: KindDetail, Message: msg}
	}

	if nested, ok := obj["error"].(map[string]any); ok {
		if msg, ok := nested["message"].(string); ok && msg != "" {
			return Body{Kind: KindNested, Message: msg}
		}
	}

	return Body{Kind: KindUnknown}
}

// detailMessage accepts a plain string or the validation-error list the
// backend emits for malformed payloads ([{"msg": "..."}, ...]).
func detailMessage(v any) string {
	switch d := v.(type) {
	case string:
		return d
	case []any:
		var msgs []string
		for _, item := range d {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if msg, ok := entry["msg"].(string); ok && msg != "" {
				msgs = append(msgs, msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// Message resolves raw and returns its user-visible message.
func Message(raw []byte, defaultMessage string) string {
	body := Parse(raw)
	if body.Kind == KindUnparseable {
		log.LogWarnWithFields("apierror", "Failed to parse JSON error response", map[string]any{
			"raw": ioutil.ReadLimited(strings.NewReader(string(raw)), 512),
		})
	}
	return body.MessageOr(defaultMessage)
}

// FromResponse reads resp.Body and returns its user-visible message.
// The caller still owns closing resp.Body.
func FromResponse(resp *http.Response, defaultMessage string) string {
	raw, err := ioutil.ReadBody(resp.Body, maxErrorBody)
	if err != nil {
		log.LogWarnWithFields("apierror", "Failed to read error response", map[string]any{
			"status": resp.StatusCode,
			"error":  err.Error(),
		})
		return FallbackMessage
	}
	return Message(raw, defaultMessage)
}
