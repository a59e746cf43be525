package session

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// keyPrefix scopes persisted records to this subsystem; the device ID is
// appended so one backend can serve many devices.
const keyPrefix = "stepcounter:session:"

// Store owns the in-memory session record and mirrors it to a Storage
// backend. The in-memory record is the single source of truth for the
// running session: persistence failures are logged, never propagated.
type Store struct {
	storage Storage
	key     string
	now     func() time.Time

	mu  sync.Mutex
	rec Record

	writes sync.WaitGroup
}

// NewStore returns a store for the given device. now may be nil, in
// which case time.Now is used; tests inject a fixed clock to drive day
// rollover.
func NewStore(storage Storage, deviceID string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{storage: storage, key: keyPrefix + deviceID, now: now}
}

// Load reads the persisted record for this device. A missing record, a
// record from an earlier calendar day, and a record that fails to parse
// all yield a fresh zero-count session.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	fresh := Record{SessionStart: ts, LastUpdate: ts, SensorType: SensorNone}

	data, err := s.storage.Load(s.key)
	if err != nil {
		log.Printf("session: load %s: %v, starting from zero", s.key, err)
		s.rec = fresh
		return
	}
	if data == nil {
		s.rec = fresh
		return
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("session: corrupt record for %s, starting from zero: %v", s.key, err)
		s.rec = fresh
		return
	}
	if !sameDay(rec.SessionStart, ts) {
		s.rec = fresh
		return
	}
	// A crash while active must not leave a stale active flag.
	rec.IsActive = false
	s.rec = rec
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IncrementStep counts one accepted step and persists asynchronously.
func (s *Store) IncrementStep() Record {
	s.mu.Lock()
	s.rec.Steps++
	s.rec.LastUpdate = s.now()
	snap := s.rec
	s.mu.Unlock()

	s.persistAsync(snap)
	return snap
}

// Reset zeroes the counter and persists synchronously.
func (s *Store) Reset() Record {
	s.mu.Lock()
	s.rec.Steps = 0
	s.rec.LastUpdate = s.now()
	snap := s.rec
	s.mu.Unlock()

	if err := s.persist(snap); err != nil {
		log.Printf("session: persist on reset: %v", err)
	}
	return snap
}

// Update applies fn to the record under lock (start/stop/permission
// flags) and persists asynchronously.
func (s *Store) Update(fn func(*Record)) Record {
	s.mu.Lock()
	fn(&s.rec)
	s.rec.LastUpdate = s.now()
	snap := s.rec
	s.mu.Unlock()

	s.persistAsync(snap)
	return snap
}

// Snapshot returns a copy of the current record.
func (s *Store) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

func (s *Store) persist(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.storage.Save(s.key, data)
}

func (s *Store) persistAsync(rec Record) {
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		if err := s.persist(rec); err != nil {
			log.Printf("session: persist failed, in-memory record stays authoritative: %v", err)
		}
	}()
}

// Flush blocks until all outstanding asynchronous writes have finished.
func (s *Store) Flush() { s.writes.Wait() }
