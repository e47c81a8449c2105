package anilist

import (
	"context"
	"errors"
	"strconv"
)

// ErrUserNotFound is returned when no AniList profile matches the username.
var ErrUserNotFound = errors.New("anilist: user not found")

// UserStats holds watch/read statistics of a profile.
type UserStats struct {
	Anime struct {
		Count          int     `json:"count"`
		MeanScore      float64 `json:"meanScore"`
		MinutesWatched int     `json:"minutesWatched"`
	} `json:"anime"`
	Manga struct {
		Count        int     `json:"count"`
		MeanScore    float64 `json:"meanScore"`
		ChaptersRead int     `json:"chaptersRead"`
	} `json:"manga"`
}

// Activity is one list activity entry (watched/read progress updates).
type Activity struct {
	ID       int    `json:"id"`
	Status   string `json:"status"`
	Progress string `json:"progress"`
	Media    *struct {
		Title MediaTitle `json:"title"`
	} `json:"media"`
}

// UserID resolves a profile id by username.
func (c *Client) UserID(ctx context.Context, username string) (int, error) {
	query := `query ($username: String) {
  User(name: $username) { id }
}`
	var out struct {
		User *struct {
			ID int `json:"id"`
		} `json:"User"`
	}
	if err := c.do(ctx, "user_id", query, map[string]any{"username": username}, &out); err != nil {
		return 0, err
	}
	if out.User == nil {
		return 0, ErrUserNotFound
	}
	return out.User.ID, nil
}

// UserStats fetches anime/manga statistics of a profile.
func (c *Client) UserStats(ctx context.Context, userID int) (UserStats, error) {
	query := `query ($userId: Int) {
  User(id: $userId) {
    statistics {
      anime { count meanScore minutesWatched }
      manga { count meanScore chaptersRead }
    }
  }
}`
	var out struct {
		User *struct {
			Statistics UserStats `json:"statistics"`
		} `json:"User"`
	}
	if err := c.do(ctx, "user_stats", query, map[string]any{"userId": userID}, &out); err != nil {
		return UserStats{}, err
	}
	if out.User == nil {
		return UserStats{}, ErrUserNotFound
	}
	return out.User.Statistics, nil
}

// RecentActivity returns the latest list activities of a profile.
func (c *Client) RecentActivity(ctx context.Context, userID int) ([]Activity, error) {
	query := `query ($userId: Int) {
  Page(page: 1, perPage: 10) {
    activities(userId: $userId, sort: ID_DESC) {
      ... on ListActivity {
        id
        status
        progress
        media { title { romaji english native } }
      }
    }
  }
}`
	var out struct {
		Page struct {
			Activities []Activity `json:"activities"`
		} `json:"Page"`
	}
	if err := c.do(ctx, "recent_activity", query, map[string]any{"userId": userID}, &out); err != nil {
		return nil, err
	}
	return out.Page.Activities, nil
}

// ProfileCardURL returns the rendered profile image for a user id.
func ProfileCardURL(userID int) string {
	return "https://img.anili.st/user/" + strconv.Itoa(userID)
}

// MediaCardURL returns the rendered cover card for a media id.
func MediaCardURL(mediaID int) string {
	return "https://img.anili.st/media/" + strconv.Itoa(mediaID)
}
