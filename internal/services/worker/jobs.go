package worker

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
)

// JobStore keeps report job records in memory. Records live as long as the
// process; the files they point to are the durable output.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.ReportJob
	now  func() time.Time
}

// NewJobStore creates an empty store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*models.ReportJob), now: time.Now}
}

// Create records a pending job and returns a copy of it.
func (s *JobStore) Create(actorID string, plan models.ReportPlan) models.ReportJob {
	now := s.now()
	j := &models.ReportJob{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Status:    models.JobPending,
		Plan:      plan,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()
	return *j
}

// Get returns a copy of the job.
func (s *JobStore) Get(id string) (models.ReportJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return models.ReportJob{}, false
	}
	return *j, true
}

// Update applies fn to the stored job under the lock.
func (s *JobStore) Update(id string, fn func(*models.ReportJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(j)
	j.UpdatedAt = s.now()
	return true
}

// Delete removes a job record.
func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}
