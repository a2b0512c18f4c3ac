package storage

import "context"

// Info describes a namespace for diagnostics. Non-authoritative: sizes are
// whatever the backend reports at the moment of the call.
type Info struct {
	// Key is the stored-key prefix the namespace occupies in the backend.
	Key       string  `json:"key"`
	Namespace string  `json:"namespace"`
	Backend   string  `json:"backend"`
	Exists    bool    `json:"exists"`
	Keys      int     `json:"keys"`
	SizeBytes int64   `json:"sizeBytes"`
	SizeKB    float64 `json:"sizeKB"`
}

// Exists reports whether the namespace currently holds any keys. Reads the
// backend directly and never creates tracking side effects.
func Exists(ctx context.Context, r *Reactive) bool {
	keys, err := r.backend.Keys(ctx, joinKey(r.namespace, ""))
	return err == nil && len(keys) > 0
}

// Inspect gathers diagnostic information about the namespace: key count
// and total stored bytes. Like Exists, it bypasses dependency tracking
// entirely, so it is safe to call from anywhere, including effects that
// must not pick up spurious subscriptions.
func Inspect(ctx context.Context, r *Reactive) (Info, error) {
	info := Info{
		Key:       joinKey(r.namespace, ""),
		Namespace: r.namespace,
		Backend:   r.backend.Name(),
	}

	keys, err := r.backend.Keys(ctx, joinKey(r.namespace, ""))
	if err != nil {
		return info, err
	}

	info.Exists = len(keys) > 0
	info.Keys = len(keys)

	for _, k := range keys {
		data, err := r.backend.Get(ctx, k)
		if err != nil {
			return info, err
		}
		info.SizeBytes += int64(len(data))
	}
	info.SizeKB = float64(info.SizeBytes) / 1024

	return info, nil
}
