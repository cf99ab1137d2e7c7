package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	errx "github.com/decision-mate/server/internal/core/error"
	logx "github.com/decision-mate/server/pkg/logger"
)

const keywordPath = "/v2/local/search/keyword.json"

// Config binds the KAKAO_* variables.
type Config struct {
	RestAPIKey string  `split_words:"true"`
	BaseURL    string  `split_words:"true" default:"https://dapi.kakao.com"`
	Timeout    int     `split_words:"true" default:"5"`
	RPS        float64 `envconfig:"RPS" default:"5"`
	Burst      int     `split_words:"true" default:"5"`
}

func (c *Config) New() (*Client, error) {
	if strings.TrimSpace(c.RestAPIKey) == "" {
		return nil, fmt.Errorf("kakao: rest api key is required")
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("kakao: parse base url: %w", err)
	}
	rps, burst := c.RPS, c.Burst
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		key:     c.RestAPIKey,
		base:    base,
		http:    &http.Client{Timeout: time.Duration(c.Timeout) * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// Client calls the Kakao Local keyword search API.
type Client struct {
	key     string
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
}

// Document is one keyword search hit. Coordinates are WGS84 strings.
type Document struct {
	ID              string `json:"id"`
	PlaceName       string `json:"place_name"`
	CategoryName    string `json:"category_name"`
	AddressName     string `json:"address_name"`
	RoadAddressName string `json:"road_address_name"`
	PlaceURL        string `json:"place_url"`
	Phone           string `json:"phone"`
	X               string `json:"x"`
	Y               string `json:"y"`
}

type Meta struct {
	IsEnd         bool `json:"is_end"`
	PageableCount int  `json:"pageable_count"`
	TotalCount    int  `json:"total_count"`
}

type Response struct {
	Documents []Document `json:"documents"`
	Meta      Meta       `json:"meta"`
}

// Query is one keyword search request. X/Y/Radius are optional; when X and
// Y are set results are sorted by distance.
type Query struct {
	Keyword string
	Size    int
	Page    int
	X       string
	Y       string
	Radius  int
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("query", q.Keyword)
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.X != "" && q.Y != "" {
		v.Set("x", q.X)
		v.Set("y", q.Y)
		v.Set("sort", "distance")
		if q.Radius > 0 {
			v.Set("radius", strconv.Itoa(q.Radius))
		}
	}
	return v
}

// KeywordSearch performs a single page request.
func (c *Client) KeywordSearch(ctx context.Context, q Query) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errx.WrapSearch(err)
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + keywordPath
	u.RawQuery = q.values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errx.WrapSearch(err)
	}
	req.Header.Set("Authorization", "KakaoAK "+c.key)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errx.WrapSearch(err)
	}
	defer resp.Body.Close()

	logx.Debug().
		Str("component", "kakao").
		Str("query", q.Keyword).
		Int("page", q.Page).
		Int("radius", q.Radius).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("keyword search")

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errx.WrapSearch(fmt.Errorf("kakao: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errx.WrapSearch(fmt.Errorf("kakao: decode response: %w", err))
	}
	return &out, nil
}

// SearchPaged walks up to maxPages pages and drops duplicate ids.
func (c *Client) SearchPaged(ctx context.Context, q Query, maxPages int) ([]Document, error) {
	if maxPages <= 0 {
		maxPages = 1
	}
	seen := map[string]bool{}
	var docs []Document
	for page := 1; page <= maxPages; page++ {
		q.Page = page
		resp, err := c.KeywordSearch(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, d := range resp.Documents {
			key := d.ID
			if key == "" {
				key = d.PlaceName + "|" + d.AddressName
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			docs = append(docs, d)
		}
		if resp.Meta.IsEnd || len(resp.Documents) == 0 {
			break
		}
	}
	return docs, nil
}
