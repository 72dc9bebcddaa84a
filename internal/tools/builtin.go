package tools

import (
	"context"

	"github.com/xiaot623/entertainbot/internal/domain"
)

// AnimeSource is the subset of the Jikan adapter the tools use.
type AnimeSource interface {
	SearchAnime(ctx context.Context, query string, limit int) ([]domain.Anime, error)
	GetAnimeByID(ctx context.Context, id int) (*domain.Anime, error)
	GetTopAnime(ctx context.Context, filter string, limit int) ([]domain.Anime, error)
	GetSeasonalAnime(ctx context.Context, year int, season string, limit int) ([]domain.Anime, error)
	SearchManga(ctx context.Context, query string, limit int) ([]domain.Manga, error)
	GetMangaByID(ctx context.Context, id int) (*domain.Manga, error)
}

// TVSource is the subset of the TV Maze adapter the tools use.
type TVSource interface {
	SearchShows(ctx context.Context, query string) ([]domain.TVShow, error)
	GetShowWithDetails(ctx context.Context, id int) (*domain.TVShowDetails, error)
	GetEpisodeByNumber(ctx context.Context, showID, season, number int) (*domain.TVEpisode, error)
	GetSchedule(ctx context.Context, country, date string) ([]domain.TVScheduleEntry, error)
}

// BookSource is the subset of the Open Library adapter the tools use.
type BookSource interface {
	SearchBooks(ctx context.Context, query string, limit int) ([]domain.Book, error)
	GetEditionByISBN(ctx context.Context, isbn string) (*domain.BookEdition, error)
	SearchAuthors(ctx context.Context, query string, limit int) ([]domain.Author, error)
}

// Builtin returns the 13 content tools bound to the given adapters.
func Builtin(anime AnimeSource, tv TVSource, books BookSource) []Tool {
	return []Tool{
		{
			Name:   "search_anime",
			Client: domain.ClientJikan,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				query, err := a.RequiredString("query")
				if err != nil {
					return Result{}, err
				}
				limit, err := a.Int("limit", 5)
				if err != nil {
					return Result{}, err
				}
				items, err := anime.SearchAnime(ctx, query, limit)
				return List(items), err
			},
		},
		{
			Name:   "get_anime_details",
			Client: domain.ClientJikan,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				id, err := a.RequiredInt("anime_id")
				if err != nil {
					return Result{}, err
				}
				item, err := anime.GetAnimeByID(ctx, id)
				return Item(item), err
			},
		},
		{
			Name:    "get_top_anime",
			Client:  domain.ClientJikan,
			Renames: map[string]string{"filter": "filter_type"},
			Exec: func(ctx context.Context, a Args) (Result, error) {
				filter, err := a.String("filter_type", "bypopularity")
				if err != nil {
					return Result{}, err
				}
				limit, err := a.Int("limit", 10)
				if err != nil {
					return Result{}, err
				}
				items, err := anime.GetTopAnime(ctx, filter, limit)
				return List(items), err
			},
		},
		{
			Name:   "get_seasonal_anime",
			Client: domain.ClientJikan,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				year, err := a.RequiredInt("year")
				if err != nil {
					return Result{}, err
				}
				season, err := a.RequiredString("season")
				if err != nil {
					return Result{}, err
				}
				items, err := anime.GetSeasonalAnime(ctx, year, season, 10)
				return List(items), err
			},
		},
		{
			Name:   "search_manga",
			Client: domain.ClientJikan,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				query, err := a.RequiredString("query")
				if err != nil {
					return Result{}, err
				}
				limit, err := a.Int("limit", 5)
				if err != nil {
					return Result{}, err
				}
				items, err := anime.SearchManga(ctx, query, limit)
				return List(items), err
			},
		},
		{
			Name:   "get_manga_details",
			Client: domain.ClientJikan,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				id, err := a.RequiredInt("manga_id")
				if err != nil {
					return Result{}, err
				}
				item, err := anime.GetMangaByID(ctx, id)
				return Item(item), err
			},
		},
		{
			Name:   "search_tv_shows",
			Client: domain.ClientTVMaze,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				query, err := a.RequiredString("query")
				if err != nil {
					return Result{}, err
				}
				items, err := tv.SearchShows(ctx, query)
				return List(items), err
			},
		},
		{
			Name:   "get_tv_show_details",
			Client: domain.ClientTVMaze,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				id, err := a.RequiredInt("show_id")
				if err != nil {
					return Result{}, err
				}
				item, err := tv.GetShowWithDetails(ctx, id)
				return Item(item), err
			},
		},
		{
			Name:   "get_tv_episode",
			Client: domain.ClientTVMaze,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				showID, err := a.RequiredInt("show_id")
				if err != nil {
					return Result{}, err
				}
				season, err := a.RequiredInt("season")
				if err != nil {
					return Result{}, err
				}
				episode, err := a.RequiredInt("episode")
				if err != nil {
					return Result{}, err
				}
				item, err := tv.GetEpisodeByNumber(ctx, showID, season, episode)
				return Item(item), err
			},
		},
		{
			Name:   "get_tv_schedule",
			Client: domain.ClientTVMaze,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				country, err := a.String("country", "US")
				if err != nil {
					return Result{}, err
				}
				date, err := a.String("date", "")
				if err != nil {
					return Result{}, err
				}
				items, err := tv.GetSchedule(ctx, country, date)
				return List(items), err
			},
		},
		{
			Name:   "search_books",
			Client: domain.ClientOpenLibrary,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				query, err := a.RequiredString("query")
				if err != nil {
					return Result{}, err
				}
				limit, err := a.Int("limit", 5)
				if err != nil {
					return Result{}, err
				}
				items, err := books.SearchBooks(ctx, query, limit)
				return List(items), err
			},
		},
		{
			Name:   "get_book_by_isbn",
			Client: domain.ClientOpenLibrary,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				isbn, err := a.RequiredString("isbn")
				if err != nil {
					return Result{}, err
				}
				item, err := books.GetEditionByISBN(ctx, isbn)
				return Item(item), err
			},
		},
		{
			Name:   "search_authors",
			Client: domain.ClientOpenLibrary,
			Exec: func(ctx context.Context, a Args) (Result, error) {
				query, err := a.RequiredString("query")
				if err != nil {
					return Result{}, err
				}
				items, err := books.SearchAuthors(ctx, query, 5)
				return List(items), err
			},
		},
	}
}
