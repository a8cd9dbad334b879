package memstore

import (
	"sync"

	"instaweb/internal/core/domain"
)

// Store implements ports.JobStore with a map guarded by a single mutex.
// Every operation is an in-memory field mutation, so one coarse lock is
// enough; it is never held across I/O.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

// New creates an empty Store.
func New() *Store {
	return &Store{jobs: make(map[string]*domain.Job)}
}

// Create inserts job.
func (s *Store) Create(job domain.Job) error {
	return s.CreateLimited(job, 0)
}

// CreateLimited inserts job unless the client is at its active cap.
func (s *Store) CreateLimited(job domain.Job, maxActive int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return domain.ErrJobExists
	}
	if maxActive > 0 && s.countActiveLocked(job.ClientID) >= maxActive {
		return domain.ErrTooManyActive
	}

	j := job
	s.jobs[job.ID] = &j
	return nil
}

// Get returns a copy of the job.
func (s *Store) Get(id string) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return *j, true
}

// Update applies fn to the stored job under the lock.
func (s *Store) Update(id string, fn func(*domain.Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(j)
	return true
}

// Delete removes the job if present.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

// CountActive counts the client's queued and running jobs.
func (s *Store) CountActive(clientID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countActiveLocked(clientID)
}

func (s *Store) countActiveLocked(clientID string) int {
	count := 0
	for _, j := range s.jobs {
		if j.ClientID == clientID && j.Status.IsActive() {
			count++
		}
	}
	return count
}

// DeleteWhere removes every job matching fn.
func (s *Store) DeleteWhere(fn func(domain.Job) bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, j := range s.jobs {
		if fn(*j) {
			delete(s.jobs, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Len returns the number of stored jobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
