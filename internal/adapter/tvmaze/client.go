// Package tvmaze is the TV Maze adapter.
package tvmaze

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/xiaot623/entertainbot/internal/adapter/httpclient"
	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/sanitize"
)

// Client queries the TV Maze API.
type Client struct {
	http *httpclient.Client
}

// New wraps hc as a TV Maze client.
func New(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

type image struct {
	Medium string `json:"medium"`
}

type rawShow struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Summary   string   `json:"summary"`
	Genres    []string `json:"genres"`
	Status    string   `json:"status"`
	Premiered string   `json:"premiered"`
	Ended     string   `json:"ended"`
	Rating    *struct {
		Average *float64 `json:"average"`
	} `json:"rating"`
	Network *struct {
		Name string `json:"name"`
	} `json:"network"`
	Schedule *struct {
		Time string   `json:"time"`
		Days []string `json:"days"`
	} `json:"schedule"`
	Runtime  *int   `json:"runtime"`
	Language string `json:"language"`
	Type     string `json:"type"`
	URL      string `json:"url"`
	Image    *image `json:"image"`
	Embedded *struct {
		Episodes []rawEpisode `json:"episodes"`
		Cast     []rawCast    `json:"cast"`
	} `json:"_embedded"`
}

type rawEpisode struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Season  int    `json:"season"`
	Number  *int   `json:"number"`
	Airdate string `json:"airdate"`
	Airtime string `json:"airtime"`
	Runtime *int   `json:"runtime"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
	Show    *struct {
		Name    string `json:"name"`
		Network *struct {
			Name string `json:"name"`
		} `json:"network"`
	} `json:"show"`
}

type rawCast struct {
	Person struct {
		Name  string `json:"name"`
		Image *image `json:"image"`
	} `json:"person"`
	Character struct {
		Name string `json:"name"`
	} `json:"character"`
}

// SearchShows fuzzy-searches shows and returns the ten best matches.
func (c *Client) SearchShows(ctx context.Context, query string) ([]domain.TVShow, error) {
	var results []struct {
		Show rawShow `json:"show"`
	}
	if err := c.get(ctx, "/search/shows", url.Values{"q": {query}}, &results); err != nil {
		return nil, err
	}
	out := make([]domain.TVShow, 0, 10)
	for i, r := range results {
		if i == 10 {
			break
		}
		out = append(out, parseShow(r.Show))
	}
	return out, nil
}

// GetShow returns one show, or nil when the body is empty.
func (c *Client) GetShow(ctx context.Context, id int) (*domain.TVShow, error) {
	var raw *rawShow
	if err := c.get(ctx, fmt.Sprintf("/shows/%d", id), nil, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	show := parseShow(*raw)
	return &show, nil
}

// GetShowWithDetails returns a show with its first 20 episodes and 10 cast
// members.
func (c *Client) GetShowWithDetails(ctx context.Context, id int) (*domain.TVShowDetails, error) {
	var raw rawShow
	params := url.Values{"embed[]": {"episodes", "cast"}}
	if err := c.get(ctx, fmt.Sprintf("/shows/%d", id), params, &raw); err != nil {
		return nil, err
	}

	details := &domain.TVShowDetails{
		Show:     parseShow(raw),
		Episodes: []domain.TVEpisode{},
		Cast:     []domain.TVCastMember{},
	}
	if raw.Embedded != nil {
		for i, ep := range raw.Embedded.Episodes {
			if i == 20 {
				break
			}
			details.Episodes = append(details.Episodes, parseEpisode(ep))
		}
		for i, member := range raw.Embedded.Cast {
			if i == 10 {
				break
			}
			details.Cast = append(details.Cast, parseCast(member))
		}
	}
	return details, nil
}

// GetShowEpisodes returns up to 50 episodes of a show.
func (c *Client) GetShowEpisodes(ctx context.Context, id int) ([]domain.TVEpisode, error) {
	var raw []rawEpisode
	if err := c.get(ctx, fmt.Sprintf("/shows/%d/episodes", id), nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.TVEpisode, 0, min(len(raw), 50))
	for i, ep := range raw {
		if i == 50 {
			break
		}
		out = append(out, parseEpisode(ep))
	}
	return out, nil
}

// GetEpisodeByNumber returns one episode by season and number.
func (c *Client) GetEpisodeByNumber(ctx context.Context, showID, season, number int) (*domain.TVEpisode, error) {
	var raw *rawEpisode
	params := url.Values{
		"season": {strconv.Itoa(season)},
		"number": {strconv.Itoa(number)},
	}
	if err := c.get(ctx, fmt.Sprintf("/shows/%d/episodebynumber", showID), params, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	ep := parseEpisode(*raw)
	return &ep, nil
}

// GetShowCast returns up to 15 cast members.
func (c *Client) GetShowCast(ctx context.Context, id int) ([]domain.TVCastMember, error) {
	var raw []rawCast
	if err := c.get(ctx, fmt.Sprintf("/shows/%d/cast", id), nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.TVCastMember, 0, min(len(raw), 15))
	for i, member := range raw {
		if i == 15 {
			break
		}
		out = append(out, parseCast(member))
	}
	return out, nil
}

// GetSchedule returns the first 20 airings for country on date. An empty
// date means today.
func (c *Client) GetSchedule(ctx context.Context, country, date string) ([]domain.TVScheduleEntry, error) {
	if country == "" {
		country = "US"
	}
	params := url.Values{"country": {country}}
	if date != "" {
		params.Set("date", date)
	}

	var raw []rawEpisode
	if err := c.get(ctx, "/schedule", params, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.TVScheduleEntry, 0, min(len(raw), 20))
	for i, ep := range raw {
		if i == 20 {
			break
		}
		entry := domain.TVScheduleEntry{
			ShowName:    "Unknown",
			EpisodeName: ep.Name,
			Season:      intPtr(ep.Season),
			Number:      ep.Number,
			Airtime:     ep.Airtime,
		}
		if ep.Show != nil {
			entry.ShowName = orUnknown(ep.Show.Name)
			if ep.Show.Network != nil {
				entry.Network = ep.Show.Network.Name
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// SearchPeople searches actors and crew and returns the ten best matches.
func (c *Client) SearchPeople(ctx context.Context, query string) ([]domain.TVPerson, error) {
	var results []struct {
		Person struct {
			ID       int    `json:"id"`
			Name     string `json:"name"`
			Birthday string `json:"birthday"`
			URL      string `json:"url"`
			Image    *image `json:"image"`
			Country  *struct {
				Name string `json:"name"`
			} `json:"country"`
		} `json:"person"`
	}
	if err := c.get(ctx, "/search/people", url.Values{"q": {query}}, &results); err != nil {
		return nil, err
	}
	out := make([]domain.TVPerson, 0, 10)
	for i, r := range results {
		if i == 10 {
			break
		}
		p := domain.TVPerson{
			ID:       r.Person.ID,
			Name:     orUnknown(r.Person.Name),
			Birthday: r.Person.Birthday,
			URL:      r.Person.URL,
		}
		if r.Person.Country != nil {
			p.Country = r.Person.Country.Name
		}
		if r.Person.Image != nil {
			p.ImageURL = r.Person.Image.Medium
		}
		out = append(out, p)
	}
	return out, nil
}

// HealthCheck fetches a well-known show without caching.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.http.Get(ctx, "/shows/1", nil, false)
	return err
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	body, err := c.http.Get(ctx, endpoint, params, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	return nil
}

func parseShow(raw rawShow) domain.TVShow {
	show := domain.TVShow{
		ID:           raw.ID,
		Name:         orUnknown(raw.Name),
		Summary:      sanitize.StripHTML(raw.Summary),
		Genres:       nonNil(raw.Genres),
		Status:       raw.Status,
		Premiered:    raw.Premiered,
		Ended:        raw.Ended,
		ScheduleDays: []string{},
		Runtime:      raw.Runtime,
		Language:     raw.Language,
		Type:         raw.Type,
		URL:          raw.URL,
	}
	if raw.Rating != nil {
		show.Rating = raw.Rating.Average
	}
	if raw.Network != nil {
		show.Network = raw.Network.Name
	}
	if raw.Schedule != nil {
		show.ScheduleTime = raw.Schedule.Time
		show.ScheduleDays = nonNil(raw.Schedule.Days)
	}
	if raw.Image != nil {
		show.ImageURL = raw.Image.Medium
	}
	return show
}

func parseEpisode(raw rawEpisode) domain.TVEpisode {
	return domain.TVEpisode{
		ID:      raw.ID,
		Name:    orUnknown(raw.Name),
		Season:  raw.Season,
		Number:  raw.Number,
		Airdate: raw.Airdate,
		Runtime: raw.Runtime,
		Summary: sanitize.StripHTML(raw.Summary),
		URL:     raw.URL,
	}
}

func parseCast(raw rawCast) domain.TVCastMember {
	member := domain.TVCastMember{
		PersonName:    orUnknown(raw.Person.Name),
		CharacterName: raw.Character.Name,
	}
	if raw.Person.Image != nil {
		member.PersonImageURL = raw.Person.Image.Medium
	}
	return member
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func intPtr(v int) *int {
	return &v
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
