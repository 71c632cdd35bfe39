package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/moxuan/socialbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryUserStore is an in-process UserStore used by unit tests and
// local experiments. It enforces the same email uniqueness the mongo
// index provides.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User // keyed by hex id
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*models.User)}
}

func (s *MemoryUserStore) Insert(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	clone := *user
	s.users[user.ID.Hex()] = &clone
	return nil
}

func (s *MemoryUserStore) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id.Hex()]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) FindByIDs(_ context.Context, ids []bson.ObjectID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id.Hex()]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) FindByOpenID(_ context.Context, openID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.OpenID == openID && u.Platform == models.PlatformGoogle {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) FindByRefreshToken(_ context.Context, refreshToken string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.RefreshToken != "" && u.RefreshToken == refreshToken {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID.Hex()]
	if !ok {
		return ErrNotFound
	}
	for _, u := range s.users {
		if u.ID != user.ID && strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now().UTC()

	clone := *user
	s.users[user.ID.Hex()] = &clone
	return nil
}

func (s *MemoryUserStore) SetRefreshToken(_ context.Context, id bson.ObjectID, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id.Hex()]
	if !ok {
		return ErrNotFound
	}
	u.RefreshToken = refreshToken
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryUserStore) RotateRefreshToken(_ context.Context, id bson.ObjectID, old, new string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id.Hex()]
	if !ok || u.RefreshToken != old {
		return ErrStale
	}
	u.RefreshToken = new
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryUserStore) ClearRefreshTokenByValue(_ context.Context, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.RefreshToken != "" && u.RefreshToken == refreshToken {
			u.RefreshToken = ""
			u.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryUserStore) List(_ context.Context, filter ListUsersFilter) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]models.User, 0)
	for _, u := range s.users {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(u.Username), search) &&
				!strings.Contains(strings.ToLower(u.Email), search) {
				continue
			}
		}
		if filter.Role != "" && string(u.Role) != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, *u)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	matched = paginate(matched, filter.Skip, filter.Limit)
	return matched, total, nil
}

func (s *MemoryUserStore) CountAdmins(_ context.Context, activeOnly bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, u := range s.users {
		if u.Role != models.RoleAdmin {
			continue
		}
		if activeOnly && !u.IsActive {
			continue
		}
		count++
	}
	return count, nil
}

type memoryEdge struct {
	edge models.Follow
	seq  int64
}

// MemoryFollowStore is the in-process FollowStore counterpart. Edge
// ordering ties on createdAt are broken by insertion order, matching
// the behavior of a createdAt-desc index scan closely enough for tests.
type MemoryFollowStore struct {
	mu    sync.Mutex
	edges []memoryEdge
	seq   int64
}

func NewMemoryFollowStore() *MemoryFollowStore {
	return &MemoryFollowStore{}
}

func (s *MemoryFollowStore) Insert(_ context.Context, edge *models.Follow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.edges {
		if e.edge.Follower == edge.Follower && e.edge.Following == edge.Following {
			return ErrDuplicate
		}
	}
	if edge.ID.IsZero() {
		edge.ID = bson.NewObjectID()
	}
	edge.CreatedAt = time.Now().UTC()
	s.seq++
	s.edges = append(s.edges, memoryEdge{edge: *edge, seq: s.seq})
	return nil
}

func (s *MemoryFollowStore) Delete(_ context.Context, follower, following bson.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.edges {
		if e.edge.Follower == follower && e.edge.Following == following {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryFollowStore) ListByFollower(_ context.Context, follower bson.ObjectID, skip, limit int64) ([]models.Follow, error) {
	return s.list(func(e models.Follow) bool { return e.Follower == follower }, skip, limit), nil
}

func (s *MemoryFollowStore) ListByFollowing(_ context.Context, following bson.ObjectID, skip, limit int64) ([]models.Follow, error) {
	return s.list(func(e models.Follow) bool { return e.Following == following }, skip, limit), nil
}

func (s *MemoryFollowStore) list(match func(models.Follow) bool, skip, limit int64) []models.Follow {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]memoryEdge, 0)
	for _, e := range s.edges {
		if match(e.edge) {
			matched = append(matched, e)
		}
	}
	// newest first
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	edges := make([]models.Follow, 0, len(matched))
	for _, e := range matched {
		edges = append(edges, e.edge)
	}
	return paginate(edges, skip, limit)
}

func (s *MemoryFollowStore) CountByFollower(_ context.Context, follower bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, e := range s.edges {
		if e.edge.Follower == follower {
			count++
		}
	}
	return count, nil
}

func (s *MemoryFollowStore) CountByFollowing(_ context.Context, following bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, e := range s.edges {
		if e.edge.Following == following {
			count++
		}
	}
	return count, nil
}

func (s *MemoryFollowStore) Exists(_ context.Context, follower, following bson.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.edges {
		if e.edge.Follower == follower && e.edge.Following == following {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryFollowStore) FollowingIDSet(_ context.Context, follower bson.ObjectID) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]struct{})
	for _, e := range s.edges {
		if e.edge.Follower == follower {
			set[e.edge.Following.Hex()] = struct{}{}
		}
	}
	return set, nil
}

// MemoryArticleStore backs article handler tests.
type MemoryArticleStore struct {
	mu       sync.Mutex
	articles []models.Article
	seq      int64
}

func NewMemoryArticleStore() *MemoryArticleStore {
	return &MemoryArticleStore{}
}

func (s *MemoryArticleStore) Insert(_ context.Context, article *models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if article.ID.IsZero() {
		article.ID = bson.NewObjectID()
	}
	now := time.Now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now
	s.articles = append(s.articles, *article)
	return nil
}

func (s *MemoryArticleStore) FindByID(_ context.Context, id bson.ObjectID) (*models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.articles {
		if a.ID == id && !a.IsDeleted {
			clone := a
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryArticleStore) List(_ context.Context, skip, limit int64) ([]models.Article, int64, error) {
	return s.listFiltered(func(a models.Article) bool { return !a.IsDeleted }, skip, limit)
}

func (s *MemoryArticleStore) ListByAuthor(_ context.Context, author bson.ObjectID, skip, limit int64) ([]models.Article, int64, error) {
	return s.listFiltered(func(a models.Article) bool { return !a.IsDeleted && a.UserID == author }, skip, limit)
}

func (s *MemoryArticleStore) listFiltered(match func(models.Article) bool, skip, limit int64) ([]models.Article, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]models.Article, 0)
	for i := len(s.articles) - 1; i >= 0; i-- {
		if match(s.articles[i]) {
			matched = append(matched, s.articles[i])
		}
	}
	total := int64(len(matched))
	return paginate(matched, skip, limit), total, nil
}

func (s *MemoryArticleStore) SoftDelete(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.articles {
		if s.articles[i].ID == id {
			s.articles[i].IsDeleted = true
			s.articles[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func paginate[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

var (
	_ UserStore    = (*MemoryUserStore)(nil)
	_ FollowStore  = (*MemoryFollowStore)(nil)
	_ ArticleStore = (*MemoryArticleStore)(nil)
)
