// Package amadeus is the flight backend backed by the Amadeus Self-Service
// flight-offers API.
package amadeus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/harunnryd/tabi/internal/auth"
	tabiErrors "github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/search"
)

const (
	DefaultBaseURL = "https://test.api.amadeus.com"

	flightOffersPath = "/v2/shopping/flight-offers"
	tokenPath        = "/v1/security/oauth2/token"
	maxOffers        = 6
)

// TokenSource hands out bearer tokens. *auth.TokenClient implements it.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
	Invalidate()
}

// TokenURL returns the OAuth2 token endpoint for an API base URL.
func TokenURL(baseURL string) string {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimSuffix(baseURL, "/") + tokenPath
}

// NewTokenClient builds the token client for the given credentials.
func NewTokenClient(baseURL, clientID, clientSecret string, timeout time.Duration) *auth.TokenClient {
	return auth.NewTokenClient(auth.ClientCredentials{
		TokenURL:     TokenURL(baseURL),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient:   &http.Client{Timeout: timeout},
	})
}

type Client struct {
	HTTP     *search.HTTPClient
	Tokens   TokenSource
	BaseURL  string
	Currency string
}

func New(hc *search.HTTPClient, tokens TokenSource, baseURL, currency string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{HTTP: hc, Tokens: tokens, BaseURL: strings.TrimSuffix(baseURL, "/"), Currency: currency}
}

type offersResponse struct {
	Data         []offer `json:"data"`
	Dictionaries struct {
		Carriers map[string]string `json:"carriers"`
	} `json:"dictionaries"`
}

type offer struct {
	Itineraries []struct {
		Duration string    `json:"duration"`
		Segments []segment `json:"segments"`
	} `json:"itineraries"`
	Price struct {
		Currency   string `json:"currency"`
		Total      string `json:"total"`
		GrandTotal string `json:"grandTotal"`
	} `json:"price"`
	ValidatingAirlineCodes []string `json:"validatingAirlineCodes"`
}

type segment struct {
	Departure   endpoint `json:"departure"`
	Arrival     endpoint `json:"arrival"`
	CarrierCode string   `json:"carrierCode"`
	Number      string   `json:"number"`
}

type endpoint struct {
	IATACode string `json:"iataCode"`
	At       string `json:"at"`
}

// SearchFlights implements search.FlightBackend. A 401 invalidates the
// cached token and the request is retried once with a fresh one.
func (c *Client) SearchFlights(ctx context.Context, q search.FlightQuery) ([]search.Flight, error) {
	if strings.TrimSpace(q.Origin) == "" || strings.TrimSpace(q.Destination) == "" || strings.TrimSpace(q.DepartureDate) == "" {
		return nil, tabiErrors.InvalidInput("origin, destination and departure date are required")
	}

	endpoint := c.BaseURL + flightOffersPath + "?" + c.params(q).Encode()

	var resp offersResponse
	err := c.get(ctx, endpoint, &resp)
	var se *search.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
		c.Tokens.Invalidate()
		err = c.get(ctx, endpoint, &resp)
	}
	if err != nil {
		return nil, err
	}

	flights := make([]search.Flight, 0, len(resp.Data))
	for _, o := range resp.Data {
		if f, ok := normalize(o, resp.Dictionaries.Carriers); ok {
			flights = append(flights, f)
		}
	}
	return flights, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	token, err := c.Tokens.GetValidToken(ctx)
	if err != nil {
		return tabiErrors.WrapWithCategory(err, "amadeus token", tabiErrors.ErrProviderUnavailable)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return c.HTTP.GetJSON(ctx, endpoint, header, out)
}

func (c *Client) params(q search.FlightQuery) url.Values {
	v := url.Values{}
	v.Set("originLocationCode", strings.ToUpper(strings.TrimSpace(q.Origin)))
	v.Set("destinationLocationCode", strings.ToUpper(strings.TrimSpace(q.Destination)))
	v.Set("departureDate", strings.TrimSpace(q.DepartureDate))
	if rd := strings.TrimSpace(q.ReturnDate); rd != "" {
		v.Set("returnDate", rd)
	}
	v.Set("adults", strconv.Itoa(max(q.Adults, 1)))
	if tc := strings.TrimSpace(q.TravelClass); tc != "" {
		v.Set("travelClass", strings.ToUpper(tc))
	}
	if q.NonStop {
		v.Set("nonStop", "true")
	}
	if c.Currency != "" {
		v.Set("currencyCode", strings.ToUpper(c.Currency))
	}
	v.Set("max", strconv.Itoa(maxOffers))
	return v
}

func normalize(o offer, carriers map[string]string) (search.Flight, bool) {
	if len(o.Itineraries) == 0 || len(o.Itineraries[0].Segments) == 0 {
		return search.Flight{}, false
	}
	outbound := o.Itineraries[0]
	first := outbound.Segments[0]
	last := outbound.Segments[len(outbound.Segments)-1]

	code := first.CarrierCode
	if code == "" && len(o.ValidatingAirlineCodes) > 0 {
		code = o.ValidatingAirlineCodes[0]
	}

	amount := o.Price.GrandTotal
	if amount == "" {
		amount = o.Price.Total
	}

	flightNumber := ""
	if code != "" && first.Number != "" {
		flightNumber = code + first.Number
	}

	return search.Flight{
		Airline:       airlineName(code, carriers),
		FlightNumber:  flightNumber,
		Price:         search.FormatMoney(o.Price.Currency, amount),
		Departure:     first.Departure.IATACode,
		Arrival:       last.Arrival.IATACode,
		DepartureTime: clock(first.Departure.At),
		ArrivalTime:   clock(last.Arrival.At),
		Duration:      Duration(outbound.Duration),
		Stops:         search.Ptr(len(outbound.Segments) - 1),
	}, true
}

// airlineName resolves a carrier code through the response dictionary,
// turning "BRITISH AIRWAYS" into "British Airways".
func airlineName(code string, carriers map[string]string) string {
	name, ok := carriers[code]
	if !ok || strings.TrimSpace(name) == "" {
		return code
	}
	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func clock(at string) string {
	t, err := time.Parse("2006-01-02T15:04:05", strings.TrimSpace(at))
	if err != nil {
		return ""
	}
	return t.Format("15:04")
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?$`)

// Duration renders an ISO-8601 duration such as "PT2H35M" as "2h 35m".
// Unrecognized input is returned unchanged.
func Duration(iso string) string {
	m := isoDuration.FindStringSubmatch(strings.TrimSpace(iso))
	if m == nil {
		return iso
	}
	days, _ := strconv.Atoi(m[1])
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	hours += days * 24

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return ""
	}
}
