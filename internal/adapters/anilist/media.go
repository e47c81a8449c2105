package anilist

import (
	"context"
	"errors"
	"math/rand"
)

// ErrNotFound is returned when a search yields no media.
var ErrNotFound = errors.New("anilist: media not found")

// MediaTitle holds the title variants of a media entry.
type MediaTitle struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

// Preferred returns the best available title.
func (t MediaTitle) Preferred() string {
	switch {
	case t.English != "":
		return t.English
	case t.Romaji != "":
		return t.Romaji
	default:
		return t.Native
	}
}

// FuzzyDate is AniList's partial date.
type FuzzyDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// RelationEdge links a media entry to a prequel/sequel/adaptation.
type RelationEdge struct {
	RelationType string `json:"relationType"`
	Node         struct {
		ID    int        `json:"id"`
		Title MediaTitle `json:"title"`
	} `json:"node"`
}

// Media is the subset of AniList media fields the bot renders.
type Media struct {
	ID           int        `json:"id"`
	Title        MediaTitle `json:"title"`
	Type         string     `json:"type"`
	Format       string     `json:"format"`
	Status       string     `json:"status"`
	Description  string     `json:"description"`
	StartDate    FuzzyDate  `json:"startDate"`
	EndDate      FuzzyDate  `json:"endDate"`
	Season       string     `json:"season"`
	SeasonYear   int        `json:"seasonYear"`
	Episodes     int        `json:"episodes"`
	Chapters     int        `json:"chapters"`
	Volumes      int        `json:"volumes"`
	Genres       []string   `json:"genres"`
	AverageScore int        `json:"averageScore"`
	Popularity   int        `json:"popularity"`
	Relations    struct {
		Edges []RelationEdge `json:"edges"`
	} `json:"relations"`
}

// PageInfo is AniList's pagination block.
type PageInfo struct {
	Total       int  `json:"total"`
	LastPage    int  `json:"lastPage"`
	HasNextPage bool `json:"hasNextPage"`
}

// MediaPage is one page of a media list query.
type MediaPage struct {
	PageInfo PageInfo
	Media    []Media
}

const mediaFields = `
id
title { romaji english native }
type
format
status
description
startDate { year month day }
endDate { year month day }
season
seasonYear
episodes
chapters
volumes
genres
averageScore
popularity
relations {
  edges {
    relationType(version: 2)
    node { id title { romaji english native } }
  }
}
`

// SearchMedia finds the closest media entry by title.
func (c *Client) SearchMedia(ctx context.Context, title, mediaType string) (Media, error) {
	query := `query ($title: String, $type: MediaType) {
  Media(search: $title, type: $type) {` + mediaFields + `}
}`
	var out struct {
		Media *Media `json:"Media"`
	}
	err := c.do(ctx, "media_search", query, map[string]any{"title": title, "type": mediaType}, &out)
	if err != nil {
		return Media{}, err
	}
	if out.Media == nil {
		return Media{}, ErrNotFound
	}
	return *out.Media, nil
}

// ListOptions filter a ranked media list.
type ListOptions struct {
	Type             string // ANIME | MANGA
	Sort             string
	Genre            string
	Page             int
	PerPage          int
	StartDateGreater int // YYYYMMDD, exclusive
	StartDateLesser  int // YYYYMMDD, exclusive
}

// MediaList returns one page of a ranked list with optional genre and start-date window.
func (c *Client) MediaList(ctx context.Context, opts ListOptions) (MediaPage, error) {
	if opts.PerPage <= 0 {
		opts.PerPage = 15
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Sort == "" {
		opts.Sort = "SCORE_DESC"
	}

	query := `query ($type: MediaType, $sort: [MediaSort], $genre: String, $page: Int, $perPage: Int, $sdGreater: FuzzyDateInt, $sdLesser: FuzzyDateInt) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { total lastPage hasNextPage }
    media(type: $type, sort: $sort, genre: $genre, startDate_greater: $sdGreater, startDate_lesser: $sdLesser) {
      id
      title { romaji english native }
    }
  }
}`
	variables := map[string]any{
		"type":    opts.Type,
		"sort":    []string{opts.Sort},
		"page":    opts.Page,
		"perPage": opts.PerPage,
	}
	if opts.Genre != "" {
		variables["genre"] = opts.Genre
	}
	if opts.StartDateGreater > 0 {
		variables["sdGreater"] = opts.StartDateGreater
	}
	if opts.StartDateLesser > 0 {
		variables["sdLesser"] = opts.StartDateLesser
	}

	var out struct {
		Page struct {
			PageInfo PageInfo `json:"pageInfo"`
			Media    []Media  `json:"media"`
		} `json:"Page"`
	}
	if err := c.do(ctx, "media_list", query, variables, &out); err != nil {
		return MediaPage{}, err
	}
	return MediaPage{PageInfo: out.Page.PageInfo, Media: out.Page.Media}, nil
}

// Seasonal returns a season's media sorted by the given criterion.
func (c *Client) Seasonal(ctx context.Context, year int, season, sort string, perPage int) ([]Media, error) {
	if perPage <= 0 {
		perPage = 20
	}
	query := `query ($type: MediaType, $sort: [MediaSort], $year: Int, $season: MediaSeason, $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    media(type: $type, sort: $sort, season: $season, seasonYear: $year) {
      id
      title { romaji english native }
      startDate { year month day }
      popularity
    }
  }
}`
	var out struct {
		Page struct {
			Media []Media `json:"media"`
		} `json:"Page"`
	}
	variables := map[string]any{
		"type":    "ANIME",
		"sort":    []string{sort},
		"year":    year,
		"season":  season,
		"perPage": perPage,
	}
	if err := c.do(ctx, "seasonal", query, variables, &out); err != nil {
		return nil, err
	}
	return out.Page.Media, nil
}

// RandomAnime picks a random entry from a large popularity-sorted page.
func (c *Client) RandomAnime(ctx context.Context) (Media, error) {
	query := `query ($perPage: Int) {
  Page(perPage: $perPage) {
    media(type: ANIME, sort: POPULARITY_DESC) {` + mediaFields + `}
  }
}`
	var out struct {
		Page struct {
			Media []Media `json:"media"`
		} `json:"Page"`
	}
	if err := c.do(ctx, "random_anime", query, map[string]any{"perPage": 500}, &out); err != nil {
		return Media{}, err
	}
	if len(out.Page.Media) == 0 {
		return Media{}, ErrNotFound
	}
	return out.Page.Media[rand.Intn(len(out.Page.Media))], nil
}
