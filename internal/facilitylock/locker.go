package facilitylock

import "sync"

// Locker hands out one mutex per facility id. Entries are reference counted and
// removed once no goroutine holds or waits on them, so the map only grows with the
// number of facilities being worked on concurrently.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{locks: make(map[int64]*entry)}
}

// Lock blocks until the caller owns the facility and returns the release func.
func (l *Locker) Lock(facilityID int64) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[facilityID]
	if !ok {
		e = &entry{}
		l.locks[facilityID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.locks, facilityID)
			}
			l.mu.Unlock()
		})
	}
}

// Len returns the number of facilities currently locked or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
