package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// SubscriberEvent is one leaf subscription of an audit ADD event for the
// target offer.
type SubscriberEvent struct {
	BAN           string
	SubscriberID  string
	EffectiveDate time.Time
	ExpiryDate    time.Time
}

// Window is a closed interval; both bounds are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// Repository runs the audit pipeline against the store.
type Repository interface {
	FindSubscribers(ctx context.Context, offerName string, window Window) ([]SubscriberEvent, error)
}

// Reader is what the report job consumes.
type Reader interface {
	Subscribers(ctx context.Context, window Window) ([]SubscriberEvent, error)
}

var (
	ErrInvalidWindow    = errors.New("invalid_audit_window")
	ErrMissingOfferName = errors.New("missing_offer_name")
	ErrInvalidEvent     = errors.New("invalid_audit_event")
)

// NormalizeSubscriberID unwraps ids stored as an equality expression, such as
// {'$eq': '6'} or {"$eq": "6"}, into the plain value. Anything that does not
// look like that shape is returned trimmed and unchanged.
func NormalizeSubscriberID(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return s
	}
	body := strings.TrimSpace(s[1 : len(s)-1])

	key, rest, ok := strings.Cut(body, ":")
	if !ok {
		return s
	}
	if unquote(strings.TrimSpace(key)) != "$eq" {
		return s
	}
	value := strings.TrimSpace(rest)
	if unquoted := unquote(value); unquoted != value {
		return unquoted
	}
	if value == "" || strings.ContainsAny(value, "{}[],:'\"") {
		return s
	}
	return value
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' || first == '"') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
