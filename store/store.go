package store

import (
	"context"
	"errors"

	"github.com/moxuan/socialbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// ErrNotFound means no document matched the lookup.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate means a unique index rejected the write.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrStale means a conditional write found the expected previous
	// value already gone (somebody else won the race).
	ErrStale = errors.New("store: stale conditional write")
)

// ListUsersFilter narrows the admin user listing.
type ListUsersFilter struct {
	Search   string // matches username or email, case-insensitive
	Role     string
	IsActive *bool
	Skip     int64
	Limit    int64
}

type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByOpenID(ctx context.Context, openID string) (*models.User, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error

	// SetRefreshToken unconditionally overwrites the stored refresh
	// token (login: last session wins).
	SetRefreshToken(ctx context.Context, id bson.ObjectID, refreshToken string) error
	// RotateRefreshToken replaces old with new only while old is still
	// the stored value; returns ErrStale otherwise. This conditional
	// write is what makes concurrent rotations admit one winner.
	RotateRefreshToken(ctx context.Context, id bson.ObjectID, old, new string) error
	// ClearRefreshTokenByValue logs out whichever account holds the
	// exact value; returns ErrNotFound when nobody does.
	ClearRefreshTokenByValue(ctx context.Context, refreshToken string) error

	List(ctx context.Context, filter ListUsersFilter) ([]models.User, int64, error)
	CountAdmins(ctx context.Context, activeOnly bool) (int64, error)
}

type FollowStore interface {
	// Insert returns ErrDuplicate when the (follower, following) pair
	// already exists; uniqueness lives in the index, not in app code.
	Insert(ctx context.Context, edge *models.Follow) error
	Delete(ctx context.Context, follower, following bson.ObjectID) (bool, error)
	ListByFollower(ctx context.Context, follower bson.ObjectID, skip, limit int64) ([]models.Follow, error)
	ListByFollowing(ctx context.Context, following bson.ObjectID, skip, limit int64) ([]models.Follow, error)
	CountByFollower(ctx context.Context, follower bson.ObjectID) (int64, error)
	CountByFollowing(ctx context.Context, following bson.ObjectID) (int64, error)
	Exists(ctx context.Context, follower, following bson.ObjectID) (bool, error)
	// FollowingIDSet returns every id the given account follows, as
	// hex strings, for viewer-relative annotation of a whole page.
	FollowingIDSet(ctx context.Context, follower bson.ObjectID) (map[string]struct{}, error)
}

type ArticleStore interface {
	Insert(ctx context.Context, article *models.Article) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Article, error)
	List(ctx context.Context, skip, limit int64) ([]models.Article, int64, error)
	ListByAuthor(ctx context.Context, author bson.ObjectID, skip, limit int64) ([]models.Article, int64, error)
	SoftDelete(ctx context.Context, id bson.ObjectID) error
}
