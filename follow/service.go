// Package follow maintains the directed follow graph and answers
// paginated, viewer-relative relationship queries.
package follow

import (
	"context"
	"errors"

	"github.com/moxuan/socialbackend/apperr"
	"github.com/moxuan/socialbackend/models"
	"github.com/moxuan/socialbackend/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrSelfFollow       = apperr.Conflict("cannot follow yourself")
	ErrAlreadyFollowing = apperr.Conflict("already following this user")
	ErrUserNotFound     = apperr.NotFound("user not found")
	ErrInvalidUserID    = apperr.Validation("invalid user id")
)

type Service struct {
	follows store.FollowStore
	users   store.UserStore
}

func NewService(follows store.FollowStore, users store.UserStore) *Service {
	return &Service{follows: follows, users: users}
}

// Follow creates the (follower -> following) edge. Duplicate detection
// relies on the store's unique index, never on a check-then-insert.
func (s *Service) Follow(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	follower, following, err := parsePair(followerID, followingID)
	if err != nil {
		return nil, err
	}
	if follower == following {
		return nil, ErrSelfFollow
	}

	if _, err := s.users.FindByID(ctx, follower); err != nil {
		return nil, translateLookup(err)
	}
	if _, err := s.users.FindByID(ctx, following); err != nil {
		return nil, translateLookup(err)
	}

	edge := &models.Follow{Follower: follower, Following: following}
	if err := s.follows.Insert(ctx, edge); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyFollowing
		}
		return nil, apperr.Internal("failed to create follow", err)
	}
	return edge, nil
}

// Unfollow removes the edge and reports whether one existed. Removing
// a non-existent edge is not an error.
func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	follower, following, err := parsePair(followerID, followingID)
	if err != nil {
		return false, err
	}

	removed, err := s.follows.Delete(ctx, follower, following)
	if err != nil {
		return false, apperr.Internal("failed to remove follow", err)
	}
	return removed, nil
}

// Page is one page of relationship results. Total is the unfiltered
// match count so callers can compute total pages.
type Page struct {
	Users []models.PublicUser
	Total int64
}

// Following lists the accounts userID follows, newest edge first.
// When viewerID names a valid account, every row is annotated with
// whether the viewer follows that account.
func (s *Service) Following(ctx context.Context, userID string, page, limit int, viewerID string) (*Page, error) {
	return s.listPage(ctx, userID, page, limit, viewerID, true)
}

// Followers lists the accounts following userID, newest edge first.
func (s *Service) Followers(ctx context.Context, userID string, page, limit int, viewerID string) (*Page, error) {
	return s.listPage(ctx, userID, page, limit, viewerID, false)
}

func (s *Service) listPage(ctx context.Context, userID string, page, limit int, viewerID string, outgoing bool) (*Page, error) {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	skip := int64(page-1) * int64(limit)

	var (
		edges []models.Follow
		total int64
	)
	if outgoing {
		edges, err = s.follows.ListByFollower(ctx, id, skip, int64(limit))
		if err == nil {
			total, err = s.follows.CountByFollower(ctx, id)
		}
	} else {
		edges, err = s.follows.ListByFollowing(ctx, id, skip, int64(limit))
		if err == nil {
			total, err = s.follows.CountByFollowing(ctx, id)
		}
	}
	if err != nil {
		return nil, apperr.Internal("failed to list follows", err)
	}

	ids := make([]bson.ObjectID, 0, len(edges))
	for _, edge := range edges {
		if outgoing {
			ids = append(ids, edge.Following)
		} else {
			ids = append(ids, edge.Follower)
		}
	}

	loaded, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("failed to load accounts", err)
	}
	byID := make(map[string]*models.User, len(loaded))
	for i := range loaded {
		byID[loaded[i].ID.Hex()] = &loaded[i]
	}

	// Viewer annotation uses one set lookup for the whole page, not a
	// query per row.
	var viewerSet map[string]struct{}
	if viewer, err := bson.ObjectIDFromHex(viewerID); err == nil {
		viewerSet, err = s.follows.FollowingIDSet(ctx, viewer)
		if err != nil {
			return nil, apperr.Internal("failed to load viewer follows", err)
		}
	}

	users := make([]models.PublicUser, 0, len(ids))
	for _, uid := range ids {
		u, ok := byID[uid.Hex()]
		if !ok {
			continue // edge endpoint since deleted
		}
		pub := u.Public()
		if viewerSet != nil {
			followed := false
			if _, ok := viewerSet[uid.Hex()]; ok {
				followed = true
			}
			pub.IsFollowing = &followed
		}
		users = append(users, pub)
	}

	return &Page{Users: users, Total: total}, nil
}

// Status reports both directions between two accounts. Mutual-follow
// detection needs both, so both are always computed.
type Status struct {
	IsFollowing bool `json:"isFollowing"`
	IsFollower  bool `json:"isFollower"`
}

func (s *Service) Status(ctx context.Context, userID, targetID string) (*Status, error) {
	user, target, err := parsePair(userID, targetID)
	if err != nil {
		return nil, err
	}

	isFollowing, err := s.follows.Exists(ctx, user, target)
	if err != nil {
		return nil, apperr.Internal("failed to check follow status", err)
	}
	isFollower, err := s.follows.Exists(ctx, target, user)
	if err != nil {
		return nil, apperr.Internal("failed to check follow status", err)
	}
	return &Status{IsFollowing: isFollowing, IsFollower: isFollower}, nil
}

// Counts derives both tallies from edge existence at call time; there
// are no denormalized counters to drift.
type Counts struct {
	Following int64 `json:"following"`
	Followers int64 `json:"followers"`
}

func (s *Service) Counts(ctx context.Context, userID string) (*Counts, error) {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrInvalidUserID
	}

	following, err := s.follows.CountByFollower(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to count follows", err)
	}
	followers, err := s.follows.CountByFollowing(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to count follows", err)
	}
	return &Counts{Following: following, Followers: followers}, nil
}

func parsePair(a, b string) (bson.ObjectID, bson.ObjectID, error) {
	first, err := bson.ObjectIDFromHex(a)
	if err != nil {
		return bson.ObjectID{}, bson.ObjectID{}, ErrInvalidUserID
	}
	second, err := bson.ObjectIDFromHex(b)
	if err != nil {
		return bson.ObjectID{}, bson.ObjectID{}, ErrInvalidUserID
	}
	return first, second, nil
}

func translateLookup(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return apperr.Internal("failed to load account", err)
}
