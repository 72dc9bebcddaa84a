// Package openlibrary is the Open Library adapter.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/xiaot623/entertainbot/internal/adapter/httpclient"
	"github.com/xiaot623/entertainbot/internal/domain"
)

// UserAgent identifies this application to Open Library, which grants a
// higher rate limit to identified clients.
const UserAgent = "ChatBotRAG/1.0 (entertainment-chatbot@example.com)"

const searchFields = "key,title,author_name,first_publish_year,edition_count," +
	"isbn,subject,cover_i,ratings_average,number_of_pages_median," +
	"language,publisher"

// CoverURL builds a covers.openlibrary.org image URL. kind is "b" for book
// covers and "a" for author photos; size is S, M or L.
func CoverURL(id int, kind, size string) string {
	return fmt.Sprintf("https://covers.openlibrary.org/%s/id/%d-%s.jpg", kind, id, size)
}

// Client queries the Open Library API.
type Client struct {
	http *httpclient.Client
}

// New wraps hc as an Open Library client.
func New(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

type rawDoc struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	AuthorName          []string `json:"author_name"`
	FirstPublishYear    *int     `json:"first_publish_year"`
	EditionCount        *int     `json:"edition_count"`
	ISBN                []string `json:"isbn"`
	Subject             []string `json:"subject"`
	CoverI              *int     `json:"cover_i"`
	RatingsAverage      *float64 `json:"ratings_average"`
	NumberOfPagesMedian *int     `json:"number_of_pages_median"`
	Language            []string `json:"language"`
	Publisher           []string `json:"publisher"`
}

// textValue decodes fields that are either a string or {"value": "..."}.
type textValue string

func (t *textValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = textValue(s)
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	*t = textValue(obj.Value)
	return nil
}

// SearchBooks searches by title, author or keyword.
func (c *Client) SearchBooks(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	return c.search(ctx, url.Values{
		"q":      {query},
		"limit":  {strconv.Itoa(clamp(limit, 20))},
		"fields": {searchFields},
	})
}

// SearchByAuthor lists books written by author.
func (c *Client) SearchByAuthor(ctx context.Context, author string, limit int) ([]domain.Book, error) {
	return c.search(ctx, url.Values{
		"author": {author},
		"limit":  {strconv.Itoa(clamp(limit, 20))},
		"fields": {searchFields},
	})
}

// GetWork returns a work by its key ("OL45804W" or "/works/OL45804W").
func (c *Client) GetWork(ctx context.Context, workID string) (*domain.BookWork, error) {
	if !strings.HasPrefix(workID, "/works/") {
		workID = "/works/" + workID
	}
	var raw struct {
		Title            string    `json:"title"`
		Key              string    `json:"key"`
		Description      textValue `json:"description"`
		Subjects         []string  `json:"subjects"`
		Covers           []int     `json:"covers"`
		FirstPublishDate string    `json:"first_publish_date"`
		Error            string    `json:"error"`
	}
	found, err := c.get(ctx, workID+".json", nil, &raw)
	if err != nil || !found || raw.Error != "" {
		return nil, err
	}

	key := raw.Key
	if key == "" {
		key = workID
	}
	return &domain.BookWork{
		Title:            orUnknown(raw.Title),
		Key:              key,
		Description:      string(raw.Description),
		Subjects:         head(raw.Subjects, 15),
		Covers:           headInts(raw.Covers, 3),
		FirstPublishDate: raw.FirstPublishDate,
	}, nil
}

// GetEditionByISBN looks up an edition. Dashes and spaces are ignored.
func (c *Client) GetEditionByISBN(ctx context.Context, isbn string) (*domain.BookEdition, error) {
	isbn = CleanISBN(isbn)
	var raw struct {
		Title         string   `json:"title"`
		ISBN13        []string `json:"isbn_13"`
		ISBN10        []string `json:"isbn_10"`
		Publishers    []string `json:"publishers"`
		PublishDate   string   `json:"publish_date"`
		NumberOfPages *int     `json:"number_of_pages"`
		Covers        []int    `json:"covers"`
		Key           string   `json:"key"`
		Error         string   `json:"error"`
	}
	found, err := c.get(ctx, "/isbn/"+url.PathEscape(isbn)+".json", nil, &raw)
	if err != nil || !found || raw.Error != "" {
		return nil, err
	}

	edition := &domain.BookEdition{
		Title:         orUnknown(raw.Title),
		ISBN13:        head(raw.ISBN13, len(raw.ISBN13)),
		ISBN10:        head(raw.ISBN10, len(raw.ISBN10)),
		Publishers:    head(raw.Publishers, len(raw.Publishers)),
		PublishDate:   raw.PublishDate,
		NumberOfPages: raw.NumberOfPages,
		Covers:        headInts(raw.Covers, 3),
		Key:           raw.Key,
	}
	if len(raw.Covers) > 0 {
		edition.CoverURL = CoverURL(raw.Covers[0], "b", "M")
	}
	return edition, nil
}

// GetAuthor returns an author by key ("OL23919A" or "/authors/OL23919A").
func (c *Client) GetAuthor(ctx context.Context, authorID string) (*domain.Author, error) {
	if !strings.HasPrefix(authorID, "/authors/") {
		authorID = "/authors/" + authorID
	}
	var raw struct {
		Name      string    `json:"name"`
		Key       string    `json:"key"`
		BirthDate string    `json:"birth_date"`
		DeathDate string    `json:"death_date"`
		Bio       textValue `json:"bio"`
		Photos    []int     `json:"photos"`
		Error     string    `json:"error"`
	}
	found, err := c.get(ctx, authorID+".json", nil, &raw)
	if err != nil || !found || raw.Error != "" {
		return nil, err
	}

	author := &domain.Author{
		Name:      orUnknown(raw.Name),
		Key:       raw.Key,
		BirthDate: raw.BirthDate,
		DeathDate: raw.DeathDate,
		Bio:       string(raw.Bio),
	}
	if author.Key == "" {
		author.Key = authorID
	}
	if len(raw.Photos) > 0 {
		author.PhotoURL = CoverURL(raw.Photos[0], "a", "M")
	}
	return author, nil
}

// SearchAuthors searches authors by name.
func (c *Client) SearchAuthors(ctx context.Context, query string, limit int) ([]domain.Author, error) {
	var resp struct {
		Docs []struct {
			Key       string `json:"key"`
			Name      string `json:"name"`
			BirthDate string `json:"birth_date"`
			DeathDate string `json:"death_date"`
			TopWork   string `json:"top_work"`
			WorkCount *int   `json:"work_count"`
		} `json:"docs"`
	}
	params := url.Values{"q": {query}, "limit": {strconv.Itoa(clamp(limit, 10))}}
	if _, err := c.get(ctx, "/search/authors.json", params, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Author, 0, len(resp.Docs))
	for _, a := range resp.Docs {
		out = append(out, domain.Author{
			Name:      orUnknown(a.Name),
			Key:       "/authors/" + a.Key,
			BirthDate: a.BirthDate,
			DeathDate: a.DeathDate,
			TopWork:   a.TopWork,
			WorkCount: a.WorkCount,
		})
	}
	return out, nil
}

// HealthCheck runs an uncached search.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.http.Get(ctx, "/search.json", url.Values{"q": {"test"}, "limit": {"1"}}, false)
	return err
}

// CleanISBN strips dashes and spaces from an ISBN.
func CleanISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	return strings.TrimSpace(isbn)
}

func (c *Client) search(ctx context.Context, params url.Values) ([]domain.Book, error) {
	var resp struct {
		Docs []rawDoc `json:"docs"`
	}
	if _, err := c.get(ctx, "/search.json", params, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Book, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		out = append(out, parseBook(doc))
	}
	return out, nil
}

// get decodes the response into out and reports whether the body was a
// non-empty object.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) (bool, error) {
	body, err := c.http.Get(ctx, endpoint, params, true)
	if err != nil {
		return false, err
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return false, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	return true, nil
}

func parseBook(doc rawDoc) domain.Book {
	b := domain.Book{
		Title:            orUnknown(doc.Title),
		AuthorName:       head(doc.AuthorName, len(doc.AuthorName)),
		FirstPublishYear: doc.FirstPublishYear,
		EditionCount:     doc.EditionCount,
		ISBN:             head(doc.ISBN, 5),
		Subject:          head(doc.Subject, 10),
		CoverID:          doc.CoverI,
		Key:              doc.Key,
		RatingsAverage:   doc.RatingsAverage,
		NumberOfPages:    doc.NumberOfPagesMedian,
		Language:         head(doc.Language, 5),
		Publisher:        head(doc.Publisher, 5),
	}
	if doc.CoverI != nil && *doc.CoverI != 0 {
		b.CoverURL = CoverURL(*doc.CoverI, "b", "M")
	}
	return b
}

// head returns at most n leading elements, never nil.
func head(s []string, n int) []string {
	if len(s) < n {
		n = len(s)
	}
	out := make([]string, n)
	copy(out, s[:n])
	return out
}

func headInts(s []int, n int) []int {
	if len(s) < n {
		n = len(s)
	}
	out := make([]int, n)
	copy(out, s[:n])
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func clamp(limit, upper int) int {
	if limit < 1 {
		return 1
	}
	if limit > upper {
		return upper
	}
	return limit
}
