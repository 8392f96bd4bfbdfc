package storage

import (
	"sync"
)

// OperationType tells the LockManager whether an operation reads or writes.
type OperationType int

const (
	// ReadOperation acquires a shared lock; reads run concurrently.
	ReadOperation OperationType = iota
	// WriteOperation acquires an exclusive lock.
	WriteOperation
)

// LockManager centralizes a collection's locking strategy: concurrent
// readers, exclusive writers. Funnelling every operation through Execute
// keeps lock acquisition and release in one place instead of scattering
// lock/unlock pairs across the CRUD paths.
type LockManager struct {
	mu sync.RWMutex
}

// NewLockManager returns a ready-to-use lock manager.
func NewLockManager() *LockManager {
	return &LockManager{}
}

// Execute runs fn under the lock kind that matches the operation type.
// The lock is released when fn returns, panics included.
func (lm *LockManager) Execute(op OperationType, fn func() error) error {
	if op == ReadOperation {
		lm.mu.RLock()
		defer lm.mu.RUnlock()
	} else {
		lm.mu.Lock()
		defer lm.mu.Unlock()
	}
	return fn()
}
