package escrow

// LockEntries reports how many per-project locks the ledger holds.
func LockEntries(l *Ledger) int {
	l.locks.mu.Lock()
	defer l.locks.mu.Unlock()
	return len(l.locks.locks)
}
