package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"remindly/model"
	repo "remindly/repository"
	"remindly/utils"
)

type UserStorage struct {
	byID map[string]*model.User
	mtx  *sync.RWMutex
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		byID: make(map[string]*model.User),
		mtx:  &sync.RWMutex{},
	}
}

func (s *UserStorage) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *user
	return &c, nil
}

func (s *UserStorage) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if user := s.byEmail(utils.NormalizeEmail(email)); user != nil {
		c := *user
		return &c, nil
	}
	return nil, repo.ErrNotFound
}

func (s *UserStorage) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	email := utils.NormalizeEmail(user.Email)
	if email == "" {
		return nil, errors.New("user email is required")
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	now := time.Now()
	stored := s.byEmail(email)
	if stored == nil {
		id := user.UserID
		if id == "" {
			id = utils.NewID()
		}
		stored = &model.User{UserID: id, Email: email, CreatedAt: now}
		s.byID[id] = stored
	}
	if user.Name != "" {
		stored.Name = user.Name
	}
	if user.GoogleID != "" {
		stored.GoogleID = user.GoogleID
	}
	stored.UpdatedAt = now

	c := *stored
	return &c, nil
}

func (s *UserStorage) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	users := make([]*model.User, 0, len(s.byID))
	for _, u := range s.byID {
		c := *u
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *UserStorage) CountUsers(ctx context.Context) (int64, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return int64(len(s.byID)), nil
}

func (s *UserStorage) DeleteUser(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *UserStorage) byEmail(email string) *model.User {
	for _, u := range s.byID {
		if u.Email == email {
			return u
		}
	}
	return nil
}
