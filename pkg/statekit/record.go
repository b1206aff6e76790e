package statekit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/statekit/statekit/pkg/statekit/journal"
)

// Record journals every value delivered for the cell under a stable key.
// The snapshot is written from a subscriber callback, so a failing store
// surfaces through the batch's *NotificationError like any other
// subscriber failure. Returns the handle for the journaling subscriber;
// pass it to Scheduler.Unsubscribe to stop recording.
func Record[T any](c *Cell[T], key string, store journal.Store) (Handle, error) {
	if key == "" {
		return "", errors.New("journal key is required")
	}
	if store == nil {
		return "", errors.New("journal store is required")
	}
	return Subscribe(c, func(_ T, cur T) error {
		data, err := json.Marshal(cur)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if err := store.Save(key, c.Version(), data); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		return nil
	})
}

// Restore seeds the cell from the latest snapshot under key. It reports
// whether a snapshot existed. Restoring goes through Set, so subscribers
// are notified of the restored value.
func Restore[T any](c *Cell[T], key string, store journal.Store) (bool, error) {
	snap, err := store.Load(key)
	if errors.Is(err, journal.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var v T
	if err := json.Unmarshal(snap.Data, &v); err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}
	if _, err := c.Set(v); err != nil {
		return false, err
	}
	return true, nil
}
