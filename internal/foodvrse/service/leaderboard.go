package service

import (
	"context"
	"iter"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/25x8/foodvrse/internal/foodvrse/models"
	"github.com/25x8/foodvrse/internal/foodvrse/repository"
)

const progressFanout = 8

// FriendGraphProvider is the source of friend relationships and display identities
type FriendGraphProvider interface {
	Friends(ctx context.Context, userID string) ([]models.Profile, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
}

// RepoFriendGraph reads friendships from the repository
type RepoFriendGraph struct {
	repo repository.Repository
}

func NewRepoFriendGraph(repo repository.Repository) *RepoFriendGraph {
	return &RepoFriendGraph{repo: repo}
}

func (g *RepoFriendGraph) Friends(ctx context.Context, userID string) ([]models.Profile, error) {
	return g.repo.GetFriendProfiles(ctx, userID)
}

func (g *RepoFriendGraph) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := g.repo.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}
	return &models.Profile{UserID: user.ID, DisplayName: user.DisplayName, AvatarURL: user.AvatarURL}, nil
}

// LeaderboardService ranks a user and their friends by meals saved
type LeaderboardService struct {
	graph    FriendGraphProvider
	progress *ProgressService
	store    storeCaller
}

func NewLeaderboardService(graph FriendGraphProvider, progress *ProgressService, timeout time.Duration) *LeaderboardService {
	return &LeaderboardService{
		graph:    graph,
		progress: progress,
		store:    storeCaller{timeout: timeout, log: progress.log.With("service", "LeaderboardService")},
	}
}

// ListFriendsProgress yields the ranked leaderboard of userID and their friends.
// Every range over the returned sequence fetches fresh data; a failure is
// yielded once as the error of the only element.
func (s *LeaderboardService) ListFriendsProgress(ctx context.Context, userID string) iter.Seq2[models.FriendProgress, error] {
	return func(yield func(models.FriendProgress, error) bool) {
		rows, err := s.rank(ctx, userID)
		if err != nil {
			yield(models.FriendProgress{}, err)
			return
		}
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

func (s *LeaderboardService) members(ctx context.Context, userID string) ([]models.Profile, error) {
	var friends []models.Profile
	var self *models.Profile
	err := s.store.call(ctx, "list friends", true, func(ctx context.Context) error {
		var err error
		if friends, err = s.graph.Friends(ctx, userID); err != nil {
			return err
		}
		self, err = s.graph.Profile(ctx, userID)
		return err
	})
	if err != nil {
		return nil, &PersistenceError{Op: "list friends", Err: err}
	}

	if self == nil {
		self = &models.Profile{UserID: userID}
	}
	seen := map[string]bool{userID: true}
	members := []models.Profile{*self}
	for _, f := range friends {
		if seen[f.UserID] {
			continue
		}
		seen[f.UserID] = true
		members = append(members, f)
	}
	return members, nil
}

func (s *LeaderboardService) rank(ctx context.Context, userID string) ([]models.FriendProgress, error) {
	members, err := s.members(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows := make([]models.FriendProgress, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(progressFanout)
	for i, m := range members {
		g.Go(func() error {
			p, err := s.progress.GetProgress(gctx, m.UserID)
			if err != nil {
				return err
			}
			row := models.FriendProgress{
				DisplayName: m.DisplayName,
				AvatarURL:   m.AvatarURL,
				Progress:    models.UserProgress{UserID: m.UserID, Level: 1},
			}
			if p != nil {
				row.Progress = *p
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].Progress, rows[j].Progress
		if a.TotalMealsSaved != b.TotalMealsSaved {
			return a.TotalMealsSaved > b.TotalMealsSaved
		}
		return a.UserID < b.UserID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}
