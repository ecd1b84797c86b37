// Package domain contains the overage usage records read from the usage nodes.
package domain

import "time"

// UsageType is the only usage class the report reads.
const UsageType = "OVER"

// UsageRecord is one overage document. Byte counts are raw bytes.
type UsageRecord struct {
	ExtSubID string
	MDN      string
	BAN      string
	Start    time.Time
	End      time.Time
	BytesIn  int64
	BytesOut int64
}

// Lookup selects one subscriber's overage whose end falls inside [From, To].
type Lookup struct {
	SubscriberID string
	From         time.Time
	To           time.Time
}
