package domain

// Normalized records returned by the content adapters. Optional scalars are
// pointers or omitempty strings so that absent upstream values are dropped
// when a record is serialized for the model.

// Anime is a normalized MyAnimeList anime entry.
type Anime struct {
	MalID         int      `json:"mal_id"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english,omitempty"`
	TitleJapanese string   `json:"title_japanese,omitempty"`
	Synopsis      string   `json:"synopsis,omitempty"`
	Score         *float64 `json:"score,omitempty"`
	ScoredBy      *int     `json:"scored_by,omitempty"`
	Rank          *int     `json:"rank,omitempty"`
	Popularity    *int     `json:"popularity,omitempty"`
	Episodes      *int     `json:"episodes,omitempty"`
	Status        string   `json:"status,omitempty"`
	Rating        string   `json:"rating,omitempty"`
	Source        string   `json:"source,omitempty"`
	Duration      string   `json:"duration,omitempty"`
	Season        string   `json:"season,omitempty"`
	Year          *int     `json:"year,omitempty"`
	Genres        []string `json:"genres"`
	Studios       []string `json:"studios"`
	Themes        []string `json:"themes"`
	URL           string   `json:"url,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	TrailerURL    string   `json:"trailer_url,omitempty"`
}

// Manga is a normalized MyAnimeList manga entry.
type Manga struct {
	MalID         int      `json:"mal_id"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english,omitempty"`
	TitleJapanese string   `json:"title_japanese,omitempty"`
	Synopsis      string   `json:"synopsis,omitempty"`
	Score         *float64 `json:"score,omitempty"`
	ScoredBy      *int     `json:"scored_by,omitempty"`
	Rank          *int     `json:"rank,omitempty"`
	Popularity    *int     `json:"popularity,omitempty"`
	Chapters      *int     `json:"chapters,omitempty"`
	Volumes       *int     `json:"volumes,omitempty"`
	Status        string   `json:"status,omitempty"`
	Type          string   `json:"type,omitempty"`
	Genres        []string `json:"genres"`
	Authors       []string `json:"authors"`
	Themes        []string `json:"themes"`
	URL           string   `json:"url,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
}

// AnimeCharacter is a character credited on an anime.
type AnimeCharacter struct {
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// AnimeRecommendation is a user recommendation linked to an anime.
type AnimeRecommendation struct {
	MalID    int    `json:"mal_id"`
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Votes    int    `json:"votes"`
}

// TVShow is a normalized TV Maze show.
type TVShow struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Summary      string   `json:"summary,omitempty"`
	Genres       []string `json:"genres"`
	Status       string   `json:"status,omitempty"`
	Premiered    string   `json:"premiered,omitempty"`
	Ended        string   `json:"ended,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	Network      string   `json:"network,omitempty"`
	ScheduleTime string   `json:"schedule_time,omitempty"`
	ScheduleDays []string `json:"schedule_days"`
	Runtime      *int     `json:"runtime,omitempty"`
	Language     string   `json:"language,omitempty"`
	Type         string   `json:"type,omitempty"`
	URL          string   `json:"url,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
}

// TVEpisode is a normalized TV Maze episode.
type TVEpisode struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Season  int    `json:"season"`
	Number  *int   `json:"number,omitempty"`
	Airdate string `json:"airdate,omitempty"`
	Runtime *int   `json:"runtime,omitempty"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url,omitempty"`
}

// TVCastMember is one credited cast entry.
type TVCastMember struct {
	PersonName     string `json:"person_name"`
	CharacterName  string `json:"character_name,omitempty"`
	PersonImageURL string `json:"person_image_url,omitempty"`
}

// TVScheduleEntry is one airing slot.
type TVScheduleEntry struct {
	ShowName    string `json:"show_name"`
	EpisodeName string `json:"episode_name,omitempty"`
	Season      *int   `json:"season,omitempty"`
	Number      *int   `json:"number,omitempty"`
	Airtime     string `json:"airtime,omitempty"`
	Network     string `json:"network,omitempty"`
}

// TVShowDetails bundles a show with its first episodes and main cast.
type TVShowDetails struct {
	Show     TVShow         `json:"show"`
	Episodes []TVEpisode    `json:"episodes"`
	Cast     []TVCastMember `json:"cast"`
}

// TVPerson is an actor or crew member.
type TVPerson struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Birthday string `json:"birthday,omitempty"`
	Country  string `json:"country,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Book is a normalized Open Library search document.
type Book struct {
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear *int     `json:"first_publish_year,omitempty"`
	EditionCount     *int     `json:"edition_count,omitempty"`
	ISBN             []string `json:"isbn"`
	Subject          []string `json:"subject"`
	CoverID          *int     `json:"cover_id,omitempty"`
	Key              string   `json:"key,omitempty"`
	RatingsAverage   *float64 `json:"ratings_average,omitempty"`
	NumberOfPages    *int     `json:"number_of_pages,omitempty"`
	Language         []string `json:"language"`
	Publisher        []string `json:"publisher"`
	CoverURL         string   `json:"cover_url,omitempty"`
}

// BookWork is an Open Library work.
type BookWork struct {
	Title            string   `json:"title"`
	Key              string   `json:"key"`
	Description      string   `json:"description,omitempty"`
	Subjects         []string `json:"subjects"`
	Covers           []int    `json:"covers"`
	FirstPublishDate string   `json:"first_publish_date,omitempty"`
}

// BookEdition is an Open Library edition looked up by ISBN.
type BookEdition struct {
	Title         string   `json:"title"`
	ISBN13        []string `json:"isbn_13"`
	ISBN10        []string `json:"isbn_10"`
	Publishers    []string `json:"publishers"`
	PublishDate   string   `json:"publish_date,omitempty"`
	NumberOfPages *int     `json:"number_of_pages,omitempty"`
	Covers        []int    `json:"covers"`
	Key           string   `json:"key,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
}

// Author is an Open Library author.
type Author struct {
	Name      string `json:"name"`
	Key       string `json:"key"`
	BirthDate string `json:"birth_date,omitempty"`
	DeathDate string `json:"death_date,omitempty"`
	Bio       string `json:"bio,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	TopWork   string `json:"top_work,omitempty"`
	WorkCount *int   `json:"work_count,omitempty"`
}
