package jikan

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/entertainbot/internal/adapter/httpclient"
)

const narutoJSON = `{
	"mal_id": 20,
	"title": "Naruto",
	"title_english": "Naruto",
	"title_japanese": "ナルト",
	"synopsis": "Ninja story.",
	"score": 8.0,
	"episodes": 220,
	"year": null,
	"genres": [{"name": "Action"}, {"name": "Adventure"}],
	"studios": [{"name": "Pierrot"}],
	"themes": [],
	"url": "https://myanimelist.net/anime/20/Naruto",
	"images": {"jpg": {"image_url": "small.jpg", "large_image_url": "large.jpg"}},
	"trailer": {"url": "https://youtube.com/x"}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(httpclient.New(httpclient.Config{
		Name:       "Jikan",
		BaseURL:    server.URL,
		Timeout:    time.Second,
		MaxRetries: 1,
		CacheTTL:   time.Minute,
		CacheSize:  8,
	}))
}

func TestSearchAnime(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/anime", r.URL.Path)
		assert.Equal(t, "Naruto", r.URL.Query().Get("q"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "true", r.URL.Query().Get("sfw"))
		fmt.Fprintf(w, `{"data":[%s]}`, narutoJSON)
	})

	results, err := c.SearchAnime(context.Background(), "Naruto", 50)
	require.NoError(t, err)
	require.Len(t, results, 1)

	a := results[0]
	assert.Equal(t, 20, a.MalID)
	assert.Equal(t, "Naruto", a.Title)
	assert.Equal(t, []string{"Action", "Adventure"}, a.Genres)
	assert.Equal(t, []string{"Pierrot"}, a.Studios)
	assert.Equal(t, []string{}, a.Themes)
	assert.Equal(t, "large.jpg", a.ImageURL)
	assert.Equal(t, "https://youtube.com/x", a.TrailerURL)
	assert.Nil(t, a.Year)
	require.NotNil(t, a.Episodes)
	assert.Equal(t, 220, *a.Episodes)
}

func TestGetAnimeByIDMissingData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/anime/99/full", r.URL.Path)
		fmt.Fprint(w, `{}`)
	})

	a, err := c.GetAnimeByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestGetTopAnimeDefaultsFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top/anime", r.URL.Path)
		assert.Equal(t, "bypopularity", r.URL.Query().Get("filter"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"data":[]}`)
	})

	results, err := c.GetTopAnime(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetSeasonalAnime(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/seasons/2024/spring", r.URL.Path)
		fmt.Fprintf(w, `{"data":[%s]}`, narutoJSON)
	})

	results, err := c.GetSeasonalAnime(context.Background(), 2024, "spring", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestGetMangaByID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga/13/full", r.URL.Path)
		fmt.Fprint(w, `{"data":{"mal_id":13,"title":"One Piece","chapters":null,"authors":[{"name":"Oda, Eiichiro"}],"type":"Manga"}}`)
	})

	m, err := c.GetMangaByID(context.Background(), 13)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "One Piece", m.Title)
	assert.Equal(t, []string{"Oda, Eiichiro"}, m.Authors)
	assert.Nil(t, m.Chapters)
	assert.Equal(t, "Manga", m.Type)
}

func TestGetAnimeCharactersCapsAtTen(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[`)
		for i := 0; i < 12; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"role":"Main","character":{"name":"C%d"}}`, i)
		}
		fmt.Fprint(w, `]}`)
	})

	chars, err := c.GetAnimeCharacters(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, chars, 10)
	assert.Equal(t, "C0", chars[0].Name)
}

func TestHealthCheck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	assert.Error(t, c.HealthCheck(context.Background()))
}
