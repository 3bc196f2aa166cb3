package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"remindly/model"
	repo "remindly/repository"
)

type JobStorage struct {
	jobs map[string]*model.ReminderJob
	mtx  *sync.Mutex
}

func NewJobStorage() *JobStorage {
	return &JobStorage{
		jobs: make(map[string]*model.ReminderJob),
		mtx:  &sync.Mutex{},
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *model.ReminderJob) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	c := *job
	s.jobs[job.TaskID] = &c
	return nil
}

func (s *JobStorage) FindJob(ctx context.Context, taskID string) (*model.ReminderJob, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	job, ok := s.jobs[taskID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *job
	return &c, nil
}

func (s *JobStorage) ClaimJob(ctx context.Context, taskID string, dueAt time.Time) (*model.ReminderJob, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	job, ok := s.jobs[taskID]
	if !ok || job.Status != model.JobPending || !job.DueAt.Equal(dueAt) {
		return nil, nil
	}
	job.Status = model.JobFiring
	c := *job
	return &c, nil
}

func (s *JobStorage) FinishJob(ctx context.Context, taskID string, from, to model.JobStatus, at time.Time, reason string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	job, ok := s.jobs[taskID]
	if !ok || job.Status != from {
		return nil
	}
	job.Status = to
	job.FinishedAt = &at
	if reason != "" {
		job.Error = reason
	}
	return nil
}

func (s *JobStorage) ListJobs(ctx context.Context, status model.JobStatus) ([]*model.ReminderJob, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	jobs := []*model.ReminderJob{}
	for _, job := range s.jobs {
		if status == "" || job.Status == status {
			c := *job
			jobs = append(jobs, &c)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].DueAt.Before(jobs[j].DueAt)
	})
	return jobs, nil
}
