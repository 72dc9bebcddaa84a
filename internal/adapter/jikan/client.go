// Package jikan is the MyAnimeList (Jikan v4) adapter.
package jikan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/xiaot623/entertainbot/internal/adapter/httpclient"
	"github.com/xiaot623/entertainbot/internal/domain"
)

// MaxLimit is the largest page size Jikan accepts.
const MaxLimit = 25

// Client queries the Jikan API.
type Client struct {
	http *httpclient.Client
}

// New wraps hc as a Jikan client.
func New(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

type named struct {
	Name string `json:"name"`
}

type images struct {
	JPG struct {
		ImageURL      string `json:"image_url"`
		LargeImageURL string `json:"large_image_url"`
	} `json:"jpg"`
}

type rawAnime struct {
	MalID         int      `json:"mal_id"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english"`
	TitleJapanese string   `json:"title_japanese"`
	Synopsis      string   `json:"synopsis"`
	Score         *float64 `json:"score"`
	ScoredBy      *int     `json:"scored_by"`
	Rank          *int     `json:"rank"`
	Popularity    *int     `json:"popularity"`
	Episodes      *int     `json:"episodes"`
	Chapters      *int     `json:"chapters"`
	Volumes       *int     `json:"volumes"`
	Status        string   `json:"status"`
	Type          string   `json:"type"`
	Rating        string   `json:"rating"`
	Source        string   `json:"source"`
	Duration      string   `json:"duration"`
	Season        string   `json:"season"`
	Year          *int     `json:"year"`
	Genres        []named  `json:"genres"`
	Studios       []named  `json:"studios"`
	Themes        []named  `json:"themes"`
	Authors       []named  `json:"authors"`
	URL           string   `json:"url"`
	Images        images   `json:"images"`
	Trailer       *struct {
		URL string `json:"url"`
	} `json:"trailer"`
}

type listResponse struct {
	Data []rawAnime `json:"data"`
}

type itemResponse struct {
	Data *rawAnime `json:"data"`
}

// SearchAnime searches anime by title or keyword.
func (c *Client) SearchAnime(ctx context.Context, query string, limit int) ([]domain.Anime, error) {
	params := url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(clamp(limit))},
		"sfw":   {"true"},
	}
	items, err := c.list(ctx, "/anime", params)
	if err != nil {
		return nil, err
	}
	return toAnime(items), nil
}

// GetAnimeByID returns full details for one anime, or nil when absent.
func (c *Client) GetAnimeByID(ctx context.Context, id int) (*domain.Anime, error) {
	raw, err := c.item(ctx, fmt.Sprintf("/anime/%d/full", id))
	if err != nil || raw == nil {
		return nil, err
	}
	a := parseAnime(*raw)
	return &a, nil
}

// GetTopAnime lists top anime. filter is one of airing, upcoming,
// bypopularity or favorite.
func (c *Client) GetTopAnime(ctx context.Context, filter string, limit int) ([]domain.Anime, error) {
	if filter == "" {
		filter = "bypopularity"
	}
	items, err := c.list(ctx, "/top/anime", url.Values{
		"filter": {filter},
		"limit":  {strconv.Itoa(clamp(limit))},
	})
	if err != nil {
		return nil, err
	}
	return toAnime(items), nil
}

// GetSeasonalAnime lists anime airing in season of year.
func (c *Client) GetSeasonalAnime(ctx context.Context, year int, season string, limit int) ([]domain.Anime, error) {
	items, err := c.list(ctx, fmt.Sprintf("/seasons/%d/%s", year, url.PathEscape(season)), url.Values{
		"limit": {strconv.Itoa(clamp(limit))},
	})
	if err != nil {
		return nil, err
	}
	return toAnime(items), nil
}

// GetAnimeCharacters returns the first ten credited characters.
func (c *Client) GetAnimeCharacters(ctx context.Context, id int) ([]domain.AnimeCharacter, error) {
	body, err := c.http.Get(ctx, fmt.Sprintf("/anime/%d/characters", id), nil, true)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []struct {
			Role      string `json:"role"`
			Character struct {
				Name   string `json:"name"`
				Images images `json:"images"`
			} `json:"character"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode characters: %w", err)
	}

	out := make([]domain.AnimeCharacter, 0, 10)
	for i, ch := range resp.Data {
		if i == 10 {
			break
		}
		out = append(out, domain.AnimeCharacter{
			Name:     orUnknown(ch.Character.Name),
			Role:     ch.Role,
			ImageURL: ch.Character.Images.JPG.ImageURL,
		})
	}
	return out, nil
}

// GetAnimeRecommendations returns the five most voted recommendations.
func (c *Client) GetAnimeRecommendations(ctx context.Context, id int) ([]domain.AnimeRecommendation, error) {
	body, err := c.http.Get(ctx, fmt.Sprintf("/anime/%d/recommendations", id), nil, true)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []struct {
			Votes int `json:"votes"`
			Entry struct {
				MalID  int    `json:"mal_id"`
				Title  string `json:"title"`
				URL    string `json:"url"`
				Images images `json:"images"`
			} `json:"entry"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}

	out := make([]domain.AnimeRecommendation, 0, 5)
	for i, r := range resp.Data {
		if i == 5 {
			break
		}
		out = append(out, domain.AnimeRecommendation{
			MalID:    r.Entry.MalID,
			Title:    orUnknown(r.Entry.Title),
			URL:      r.Entry.URL,
			ImageURL: r.Entry.Images.JPG.ImageURL,
			Votes:    r.Votes,
		})
	}
	return out, nil
}

// SearchManga searches manga by title or keyword.
func (c *Client) SearchManga(ctx context.Context, query string, limit int) ([]domain.Manga, error) {
	items, err := c.list(ctx, "/manga", url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(clamp(limit))},
		"sfw":   {"true"},
	})
	if err != nil {
		return nil, err
	}
	return toManga(items), nil
}

// GetMangaByID returns full details for one manga, or nil when absent.
func (c *Client) GetMangaByID(ctx context.Context, id int) (*domain.Manga, error) {
	raw, err := c.item(ctx, fmt.Sprintf("/manga/%d/full", id))
	if err != nil || raw == nil {
		return nil, err
	}
	m := parseManga(*raw)
	return &m, nil
}

// GetTopManga lists top manga. filter is one of publishing, upcoming,
// bypopularity or favorite.
func (c *Client) GetTopManga(ctx context.Context, filter string, limit int) ([]domain.Manga, error) {
	if filter == "" {
		filter = "bypopularity"
	}
	items, err := c.list(ctx, "/top/manga", url.Values{
		"filter": {filter},
		"limit":  {strconv.Itoa(clamp(limit))},
	})
	if err != nil {
		return nil, err
	}
	return toManga(items), nil
}

// HealthCheck performs an uncached search.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.http.Get(ctx, "/anime", url.Values{"q": {"test"}, "limit": {"1"}}, false)
	return err
}

func (c *Client) list(ctx context.Context, endpoint string, params url.Values) ([]rawAnime, error) {
	body, err := c.http.Get(ctx, endpoint, params, true)
	if err != nil {
		return nil, err
	}
	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	return resp.Data, nil
}

func (c *Client) item(ctx context.Context, endpoint string) (*rawAnime, error) {
	body, err := c.http.Get(ctx, endpoint, nil, true)
	if err != nil {
		return nil, err
	}
	var resp itemResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	return resp.Data, nil
}

func toAnime(items []rawAnime) []domain.Anime {
	out := make([]domain.Anime, 0, len(items))
	for _, raw := range items {
		out = append(out, parseAnime(raw))
	}
	return out
}

func toManga(items []rawAnime) []domain.Manga {
	out := make([]domain.Manga, 0, len(items))
	for _, raw := range items {
		out = append(out, parseManga(raw))
	}
	return out
}

func parseAnime(raw rawAnime) domain.Anime {
	a := domain.Anime{
		MalID:         raw.MalID,
		Title:         orUnknown(raw.Title),
		TitleEnglish:  raw.TitleEnglish,
		TitleJapanese: raw.TitleJapanese,
		Synopsis:      raw.Synopsis,
		Score:         raw.Score,
		ScoredBy:      raw.ScoredBy,
		Rank:          raw.Rank,
		Popularity:    raw.Popularity,
		Episodes:      raw.Episodes,
		Status:        raw.Status,
		Rating:        raw.Rating,
		Source:        raw.Source,
		Duration:      raw.Duration,
		Season:        raw.Season,
		Year:          raw.Year,
		Genres:        names(raw.Genres),
		Studios:       names(raw.Studios),
		Themes:        names(raw.Themes),
		URL:           raw.URL,
		ImageURL:      raw.Images.JPG.LargeImageURL,
	}
	if raw.Trailer != nil {
		a.TrailerURL = raw.Trailer.URL
	}
	return a
}

func parseManga(raw rawAnime) domain.Manga {
	return domain.Manga{
		MalID:         raw.MalID,
		Title:         orUnknown(raw.Title),
		TitleEnglish:  raw.TitleEnglish,
		TitleJapanese: raw.TitleJapanese,
		Synopsis:      raw.Synopsis,
		Score:         raw.Score,
		ScoredBy:      raw.ScoredBy,
		Rank:          raw.Rank,
		Popularity:    raw.Popularity,
		Chapters:      raw.Chapters,
		Volumes:       raw.Volumes,
		Status:        raw.Status,
		Type:          raw.Type,
		Genres:        names(raw.Genres),
		Authors:       names(raw.Authors),
		Themes:        names(raw.Themes),
		URL:           raw.URL,
		ImageURL:      raw.Images.JPG.LargeImageURL,
	}
}

func names(in []named) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		out = append(out, n.Name)
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func clamp(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
