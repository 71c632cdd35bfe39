package follow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/moxuan/socialbackend/apperr"
	"github.com/moxuan/socialbackend/models"
	"github.com/moxuan/socialbackend/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryUserStore, *store.MemoryFollowStore) {
	t.Helper()
	users := store.NewMemoryUserStore()
	follows := store.NewMemoryFollowStore()
	return NewService(follows, users), users, follows
}

func seedUsers(t *testing.T, users *store.MemoryUserStore, names ...string) map[string]*models.User {
	t.Helper()
	seeded := make(map[string]*models.User, len(names))
	for _, name := range names {
		user := &models.User{
			Username: name,
			Email:    fmt.Sprintf("%s@example.com", name),
			Role:     models.RoleUser,
			IsActive: true,
			Platform: models.PlatformLocal,
		}
		if err := users.Insert(context.Background(), user); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		seeded[name] = user
	}
	return seeded
}

func TestFollowCreatesEdge(t *testing.T) {
	svc, users, follows := newTestService(t)
	seeded := seedUsers(t, users, "alice", "bob")
	ctx := context.Background()

	edge, err := svc.Follow(ctx, seeded["alice"].ID.Hex(), seeded["bob"].ID.Hex())
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if edge.Follower != seeded["alice"].ID || edge.Following != seeded["bob"].ID {
		t.Errorf("edge endpoints wrong: %+v", edge)
	}

	exists, err := follows.Exists(ctx, seeded["alice"].ID, seeded["bob"].ID)
	if err != nil || !exists {
		t.Errorf("edge not persisted (exists=%v, err=%v)", exists, err)
	}
}

func TestSelfFollowRejected(t *testing.T) {
	svc, users, follows := newTestService(t)
	seeded := seedUsers(t, users, "alice")
	ctx := context.Background()

	id := seeded["alice"].ID.Hex()
	if _, err := svc.Follow(ctx, id, id); !errors.Is(err, ErrSelfFollow) {
		t.Errorf("self follow: got %v, want ErrSelfFollow", err)
	}

	count, err := follows.CountByFollower(ctx, seeded["alice"].ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("self follow created %d edges", count)
	}
}

func TestFollowValidatesIDs(t *testing.T) {
	svc, users, _ := newTestService(t)
	seeded := seedUsers(t, users, "alice")

	for _, bad := range []string{"", "nothex", "123"} {
		if _, err := svc.Follow(context.Background(), seeded["alice"].ID.Hex(), bad); !errors.Is(err, ErrInvalidUserID) {
			t.Errorf("Follow with id %q: got %v, want ErrInvalidUserID", bad, err)
		}
	}
}

func TestFollowUnknownUser(t *testing.T) {
	svc, users, _ := newTestService(t)
	seeded := seedUsers(t, users, "alice")

	ghost := "64b000000000000000000000"
	if _, err := svc.Follow(context.Background(), seeded["alice"].ID.Hex(), ghost); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("follow of missing user: got %v, want ErrUserNotFound", err)
	}
	if _, err := svc.Follow(context.Background(), ghost, seeded["alice"].ID.Hex()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("follow by missing user: got %v, want ErrUserNotFound", err)
	}
}

func TestDuplicateFollow(t *testing.T) {
	svc, users, follows := newTestService(t)
	seeded := seedUsers(t, users, "alice", "bob")
	ctx := context.Background()

	if _, err := svc.Follow(ctx, seeded["alice"].ID.Hex(), seeded["bob"].ID.Hex()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Follow(ctx, seeded["alice"].ID.Hex(), seeded["bob"].ID.Hex()); !errors.Is(err, ErrAlreadyFollowing) {
		t.Errorf("duplicate follow: got %v, want ErrAlreadyFollowing", err)
	}

	count, err := follows.CountByFollower(ctx, seeded["alice"].ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("duplicate follow left %d edges, want 1", count)
	}
}

func TestConcurrentFollowSingleEdge(t *testing.T) {
	svc, users, follows := newTestService(t)
	seeded := seedUsers(t, users, "alice", "bob")
	ctx := context.Background()

	const attempts = 8
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := svc.Follow(ctx, seeded["alice"].ID.Hex(), seeded["bob"].ID.Hex())
			results <- err
		}()
	}

	var created, rejected int
	for i := 0; i < attempts; i++ {
		err := <-results
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrAlreadyFollowing):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("%d edges created, want exactly 1", created)
	}
	if rejected != attempts-1 {
		t.Errorf("%d AlreadyFollowing rejections, want %d", rejected, attempts-1)
	}

	count, err := follows.CountByFollower(ctx, seeded["alice"].ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("store holds %d edges, want 1", count)
	}
}

func TestUnfollowIdempotent(t *testing.T) {
	svc, users, _ := newTestService(t)
	seeded := seedUsers(t, users, "alice", "bob")
	ctx := context.Background()

	alice, bob := seeded["alice"].ID.Hex(), seeded["bob"].ID.Hex()

	// unfollow before any follow succeeds with removed=false
	removed, err := svc.Unfollow(ctx, alice, bob)
	if err != nil {
		t.Fatalf("unfollow of nonexistent edge errored: %v", err)
	}
	if removed {
		t.Error("removed=true for nonexistent edge")
	}

	if _, err := svc.Follow(ctx, alice, bob); err != nil {
		t.Fatal(err)
	}

	removed, err = svc.Unfollow(ctx, alice, bob)
	if err != nil || !removed {
		t.Errorf("unfollow of existing edge: removed=%v err=%v", removed, err)
	}

	removed, err = svc.Unfollow(ctx, alice, bob)
	if err != nil {
		t.Errorf("second unfollow errored: %v", err)
	}
	if removed {
		t.Error("second unfollow reported removed=true")
	}
}

func TestFollowingOrderAndPagination(t *testing.T) {
	svc, users, _ := newTestService(t)
	seeded := seedUsers(t, users, "u", "a", "b", "c", "d", "e")
	ctx := context.Background()

	u := seeded["u"].ID.Hex()
	order := []string{"a", "b", "c", "d", "e"}
	for _, name := range order {
		if _, err := svc.Follow(ctx, u, seeded[name].ID.Hex()); err != nil {
			t.Fatal(err)
		}
	}

	page, err := svc.Following(ctx, u, 1, 2, "")
	if err != nil {
		t.Fatalf("Following: %v", err)
	}
	if page.Total != 5 {
		t.Errorf("total = %d, want 5", page.Total)
	}
	if len(page.Users) != 2 {
		t.Fatalf("page 1 has %d users, want 2", len(page.Users))
	}
	// most recent edge first
	if page.Users[0].Username != "e" || page.Users[1].Username != "d" {
		t.Errorf("page 1 order = %s, %s; want e, d", page.Users[0].Username, page.Users[1].Username)
	}

	last, err := svc.Following(ctx, u, 3, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if last.Total != 5 {
		t.Errorf("total on page 3 = %d, want 5 (total must be page-independent)", last.Total)
	}
	if len(last.Users) != 1 || last.Users[0].Username != "a" {
		t.Errorf("page 3 = %+v, want just a", last.Users)
	}

	empty, err := svc.Following(ctx, u, 4, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Users) != 0 || empty.Total != 5 {
		t.Errorf("past-the-end page: %d users, total %d", len(empty.Users), empty.Total)
	}
}

func TestViewerEnrichment(t *testing.T) {
	svc, users, _ := newTestService(t)
	seeded := seedUsers(t, users, "u", "v", "a", "b", "c")
	ctx := context.Background()

	u := seeded["u"].ID.Hex()
	v := seeded["v"].ID.Hex()

	// u's followers: a, b, c
	for _, name := range []string{"a", "b", "c"} {
		if _, err := svc.Follow(ctx, seeded[name].ID.Hex(), u); err != nil {
			t.Fatal(err)
		}
	}
	// viewer v follows b and c
	for _, name := range []string{"b", "c"} {
		if _, err := svc.Follow(ctx, v, seeded[name].ID.Hex()); err != nil {
			t.Fatal(err)
		}
	}

	page, err := svc.Followers(ctx, u, 1, 20, v)
	if err != nil {
		t.Fatalf("Followers: %v", err)
	}
	if len(page.Users) != 3 {
		t.Fatalf("follower page has %d users, want 3", len(page.Users))
	}

	marked := make(map[string]bool)
	for _, pu := range page.Users {
		if pu.IsFollowing == nil {
			t.Fatalf("user %s missing viewer annotation", pu.Username)
		}
		marked[pu.Username] = *pu.IsFollowing
	}
	if marked["a"] || !marked["b"] || !marked["c"] {
		t.Errorf("viewer annotation wrong: %v (want only b and c true)", marked)
	}
}

func TestNoViewerNoAnnotation(t *testing.T) {
	svc, users, _ := newTestService(t)
	seeded := seedUsers(t, users, "u", "a")
	ctx := context.Background()

	if _, err := svc.Follow(ctx, seeded["a"].ID.Hex(), seeded["u"].ID.Hex()); err != nil {
		t.Fatal(err)
	}

	page, err := svc.Followers(ctx, seeded["u"].ID.Hex(), 1, 20, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, pu := range page.Users {
		if pu.IsFollowing != nil {
			t.Errorf("anonymous listing carries viewer annotation for %s", pu.Username)
		}
	}
}

func TestStatusBothDirections(t *testing.T) {
	svc, users, _ := newTestService(t)
	seeded := seedUsers(t, users, "alice", "bob")
	ctx := context.Background()

	alice, bob := seeded["alice"].ID.Hex(), seeded["bob"].ID.Hex()

	if _, err := svc.Follow(ctx, alice, bob); err != nil {
		t.Fatal(err)
	}

	status, err := svc.Status(ctx, alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsFollowing || status.IsFollower {
		t.Errorf("Status(alice, bob) = %+v, want following only", status)
	}

	reverse, err := svc.Status(ctx, bob, alice)
	if err != nil {
		t.Fatal(err)
	}
	if reverse.IsFollowing || !reverse.IsFollower {
		t.Errorf("Status(bob, alice) = %+v, want follower only", reverse)
	}

	// mutual
	if _, err := svc.Follow(ctx, bob, alice); err != nil {
		t.Fatal(err)
	}
	mutual, err := svc.Status(ctx, alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if !mutual.IsFollowing || !mutual.IsFollower {
		t.Errorf("mutual Status = %+v, want both true", mutual)
	}
}

func TestCounts(t *testing.T) {
	svc, users, _ := newTestService(t)
	seeded := seedUsers(t, users, "u", "a", "b", "c")
	ctx := context.Background()

	u := seeded["u"].ID.Hex()

	// u follows a; b and c follow u
	if _, err := svc.Follow(ctx, u, seeded["a"].ID.Hex()); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b", "c"} {
		if _, err := svc.Follow(ctx, seeded[name].ID.Hex(), u); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := svc.Counts(ctx, u)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Following != 1 || counts.Followers != 2 {
		t.Errorf("Counts = %+v, want following=1 followers=2", counts)
	}

	// counts are derived, so unfollow shows up immediately
	if _, err := svc.Unfollow(ctx, seeded["b"].ID.Hex(), u); err != nil {
		t.Fatal(err)
	}
	counts, err = svc.Counts(ctx, u)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Followers != 1 {
		t.Errorf("followers after unfollow = %d, want 1", counts.Followers)
	}
}

func TestStatusValidatesIDs(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Status(context.Background(), "bad", "alsobad"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("Status with bad ids: got %v, want validation error", err)
	}
	if _, err := svc.Counts(context.Background(), "bad"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("Counts with bad id: got %v, want validation error", err)
	}
}
