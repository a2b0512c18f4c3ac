package storage

import (
	"encoding/json"
	"time"
)

// Envelope is the persisted wire format for one key. Field order is part
// of the format: encoded envelopes are byte-for-byte reproducible.
type Envelope struct {
	Value     any   `json:"value"`
	WrittenAt int64 `json:"writtenAt"`
	ExpiresAt int64 `json:"expiresAt,omitempty"`
}

// expired reports whether the envelope's expiry, if any, has passed.
func (e Envelope) expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.UnixMilli() >= e.ExpiresAt
}

func encodeEnvelope(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}

// joinKey builds the stored key: "<namespace>:<key>" when a namespace is
// configured, the bare key otherwise.
func joinKey(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}
