// Package serpapi is the hotel, POI and restaurant backend backed by
// SerpAPI's google_hotels and google_maps engines.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	tabiErrors "github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/search"
)

const DefaultBaseURL = "https://serpapi.com/search.json"

type Options struct {
	BaseURL  string
	APIKey   string
	Currency string
	Language string
	Country  string
	// Now anchors default check-in dates. Defaults to time.Now.
	Now func() time.Time
}

// Client implements search.HotelBackend, search.POIBackend and
// search.RestaurantBackend.
type Client struct {
	http *search.HTTPClient
	opts Options
}

func New(hc *search.HTTPClient, opts Options) *Client {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{http: hc, opts: opts}
}

type gps struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type property struct {
	Name           string   `json:"name"`
	Link           string   `json:"link"`
	Address        string   `json:"address"`
	GPSCoordinates *gps     `json:"gps_coordinates"`
	OverallRating  *float64 `json:"overall_rating"`
	Reviews        *int     `json:"reviews"`
	RatePerNight   struct {
		Lowest          string   `json:"lowest"`
		ExtractedLowest *float64 `json:"extracted_lowest"`
	} `json:"rate_per_night"`
	Images []struct {
		Thumbnail     string `json:"thumbnail"`
		OriginalImage string `json:"original_image"`
	} `json:"images"`
}

type hotelsResponse struct {
	Error      string     `json:"error"`
	Properties []property `json:"properties"`
}

type localResult struct {
	Title          string   `json:"title"`
	Rating         *float64 `json:"rating"`
	Reviews        *int     `json:"reviews"`
	Type           string   `json:"type"`
	Price          string   `json:"price"`
	Address        string   `json:"address"`
	Hours          string   `json:"hours"`
	Description    string   `json:"description"`
	Thumbnail      string   `json:"thumbnail"`
	Website        string   `json:"website"`
	Phone          string   `json:"phone"`
	GPSCoordinates *gps     `json:"gps_coordinates"`
	ServiceOptions struct {
		DineIn   *bool `json:"dine_in"`
		Takeout  *bool `json:"takeout"`
		Delivery *bool `json:"delivery"`
	} `json:"service_options"`
}

type mapsResponse struct {
	Error        string          `json:"error"`
	LocalResults json.RawMessage `json:"local_results"`
	PlaceResults *localResult    `json:"place_results"`
}

func (c *Client) SearchHotels(ctx context.Context, q search.HotelQuery) ([]search.Hotel, error) {
	location := strings.TrimSpace(q.Location)
	if location == "" {
		return nil, tabiErrors.InvalidInput("location is required")
	}

	checkIn, checkOut := stayDates(q.CheckIn, q.CheckOut, c.opts.Now())
	v := c.baseParams("google_hotels")
	v.Set("q", location)
	v.Set("check_in_date", checkIn)
	v.Set("check_out_date", checkOut)
	v.Set("adults", strconv.Itoa(max(q.Adults, 1)))
	if c.opts.Currency != "" {
		v.Set("currency", strings.ToUpper(c.opts.Currency))
	}
	if q.MaxPrice != nil && *q.MaxPrice > 0 {
		v.Set("max_price", strconv.Itoa(int(*q.MaxPrice)))
	}

	var resp hotelsResponse
	if err := c.http.GetJSON(ctx, c.endpoint(v), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" && len(resp.Properties) == 0 {
		return nil, upstreamError(resp.Error)
	}

	hotels := make([]search.Hotel, 0, len(resp.Properties))
	for _, p := range resp.Properties {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		h := search.Hotel{
			Name:     p.Name,
			Rating:   p.OverallRating,
			Reviews:  p.Reviews,
			Price:    p.RatePerNight.Lowest,
			Location: location,
			Link:     p.Link,
			Address:  p.Address,
			MapURL:   mapURL(p.GPSCoordinates),
		}
		if h.Price == "" && p.RatePerNight.ExtractedLowest != nil {
			h.Price = search.FormatMoney(c.opts.Currency, strconv.FormatFloat(*p.RatePerNight.ExtractedLowest, 'f', -1, 64))
		}
		if len(p.Images) > 0 {
			h.Image = firstNonEmpty(p.Images[0].OriginalImage, p.Images[0].Thumbnail)
		}
		hotels = append(hotels, h)
	}
	return hotels, nil
}

func (c *Client) SearchPOI(ctx context.Context, q search.PlaceQuery) ([]search.Place, error) {
	results, err := c.maps(ctx, q, "things to do")
	if err != nil {
		return nil, err
	}
	places := make([]search.Place, 0, len(results))
	for _, r := range results {
		places = append(places, search.Place{
			Name:        r.Title,
			Rating:      r.Rating,
			Reviews:     r.Reviews,
			Type:        r.Type,
			Price:       r.Price,
			Address:     r.Address,
			Hours:       r.Hours,
			Image:       r.Thumbnail,
			MapURL:      mapURL(r.GPSCoordinates),
			Description: r.Description,
			Website:     r.Website,
		})
	}
	return places, nil
}

func (c *Client) SearchRestaurants(ctx context.Context, q search.PlaceQuery) ([]search.Restaurant, error) {
	term := "restaurants"
	if s := strings.TrimSpace(q.Query); s != "" {
		term = s + " restaurants"
	}
	results, err := c.maps(ctx, search.PlaceQuery{Location: q.Location}, term)
	if err != nil {
		return nil, err
	}
	restaurants := make([]search.Restaurant, 0, len(results))
	for _, r := range results {
		restaurants = append(restaurants, search.Restaurant{
			Name:       r.Title,
			Rating:     r.Rating,
			Reviews:    r.Reviews,
			Cuisine:    cuisine(r.Type),
			PriceLevel: r.Price,
			Address:    r.Address,
			Hours:      r.Hours,
			Image:      r.Thumbnail,
			MapURL:     mapURL(r.GPSCoordinates),
			Phone:      r.Phone,
			Website:    r.Website,
			DineIn:     r.ServiceOptions.DineIn,
			Takeout:    r.ServiceOptions.Takeout,
			Delivery:   r.ServiceOptions.Delivery,
		})
	}
	return restaurants, nil
}

// maps runs a google_maps search for "<term> in <location>". The engine
// answers with either a local_results array or, for an exact match, a
// single object; both shapes are flattened into a list.
func (c *Client) maps(ctx context.Context, q search.PlaceQuery, fallbackTerm string) ([]localResult, error) {
	location := strings.TrimSpace(q.Location)
	if location == "" {
		return nil, tabiErrors.InvalidInput("location is required")
	}
	term := firstNonEmpty(q.Query, fallbackTerm)

	v := c.baseParams("google_maps")
	v.Set("type", "search")
	v.Set("q", term+" in "+location)

	var resp mapsResponse
	if err := c.http.GetJSON(ctx, c.endpoint(v), nil, &resp); err != nil {
		return nil, err
	}

	results, err := decodeLocalResults(resp.LocalResults)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 && resp.PlaceResults != nil {
		results = []localResult{*resp.PlaceResults}
	}
	if len(results) == 0 && resp.Error != "" {
		return nil, upstreamError(resp.Error)
	}

	named := results[:0]
	for _, r := range results {
		if strings.TrimSpace(r.Title) != "" {
			named = append(named, r)
		}
	}
	return named, nil
}

func decodeLocalResults(raw json.RawMessage) ([]localResult, error) {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "" || trimmed == "null":
		return nil, nil
	case strings.HasPrefix(trimmed, "["):
		var list []localResult
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, tabiErrors.WrapWithCategory(err, "decode local_results", tabiErrors.ErrMalformedPayload)
		}
		return list, nil
	case strings.HasPrefix(trimmed, "{"):
		var one localResult
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, tabiErrors.WrapWithCategory(err, "decode local_results", tabiErrors.ErrMalformedPayload)
		}
		return []localResult{one}, nil
	default:
		return nil, tabiErrors.MalformedPayload("local_results is neither a list nor an object")
	}
}

func (c *Client) baseParams(engine string) url.Values {
	v := url.Values{}
	v.Set("engine", engine)
	v.Set("api_key", c.opts.APIKey)
	if c.opts.Language != "" {
		v.Set("hl", c.opts.Language)
	}
	if c.opts.Country != "" {
		v.Set("gl", c.opts.Country)
	}
	return v
}

func (c *Client) endpoint(v url.Values) string {
	sep := "?"
	if strings.Contains(c.opts.BaseURL, "?") {
		sep = "&"
	}
	return c.opts.BaseURL + sep + v.Encode()
}

// stayDates fills in missing stay dates: check-in defaults to tomorrow and
// check-out to the night after check-in.
func stayDates(checkIn, checkOut string, now time.Time) (string, string) {
	in, err := time.Parse(time.DateOnly, strings.TrimSpace(checkIn))
	if err != nil {
		in = now.AddDate(0, 0, 1)
	}
	out, err := time.Parse(time.DateOnly, strings.TrimSpace(checkOut))
	if err != nil || !out.After(in) {
		out = in.AddDate(0, 0, 1)
	}
	return in.Format(time.DateOnly), out.Format(time.DateOnly)
}

func mapURL(g *gps) string {
	if g == nil || (g.Latitude == 0 && g.Longitude == 0) {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%g,%g", g.Latitude, g.Longitude)
}

// cuisine turns a Maps category such as "Italian restaurant" into "Italian".
func cuisine(kind string) string {
	kind = strings.TrimSpace(kind)
	lower := strings.ToLower(kind)
	for _, suffix := range []string{" restaurant", " bar", " cafe"} {
		if strings.HasSuffix(lower, suffix) && len(kind) > len(suffix) {
			return strings.TrimSpace(kind[:len(kind)-len(suffix)])
		}
	}
	if strings.EqualFold(kind, "restaurant") {
		return ""
	}
	return kind
}

func upstreamError(msg string) error {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "hasn't returned any results") || strings.Contains(lower, "no results") {
		return nil
	}
	return tabiErrors.ProviderUnavailable("serpapi: " + msg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
