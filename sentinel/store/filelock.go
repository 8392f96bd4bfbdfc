package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

const (
	lockFile        = "sentinel.lock"
	lockTimeout     = 5 * time.Second
	lockRetryPeriod = 100 * time.Millisecond
)

// acquireLock takes the store's exclusive file lock. A second process
// opening the same root blocks for up to lockTimeout, then fails.
func acquireLock(root string) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(root, lockFile))
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, lockRetryPeriod)
	if err != nil {
		return nil, types.NewError(types.CodeIO, fmt.Sprintf("locking store at %s", root), err)
	}
	if !locked {
		return nil, types.Errorf(types.CodeIO, "store at %s is locked by another process", root)
	}
	return fl, nil
}
