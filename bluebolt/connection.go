package bluebolt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evcc-io/evcc/provider"
	"github.com/evcc-io/evcc/util"
	"github.com/evcc-io/evcc/util/request"
	"github.com/samber/lo"
	"golang.org/x/oauth2"
)

// Session is the login state a Connection authenticates with
type Session interface {
	oauth2.TokenSource
	Connected() bool
	Login(ctx context.Context) (*oauth2.Token, error)
	Jar() http.CookieJar
}

// Connection is the BlueBOLT connection
type Connection struct {
	client    *request.Helper
	log       *util.Logger
	session   Session
	uri       string
	locations provider.Cacheable[Locations]

	// Retry is the number of additional attempts made by requests created with NewRequest
	Retry int
}

// Request describes a single query. Retry is the number of attempts after the first one.
// NoLogin skips re-authentication of an expired session.
type Request struct {
	Method  string
	URI     string
	Params  map[string]any
	Headers map[string]string
	Retry   int
	NoLogin bool
}

// NewConnection creates a new BlueBOLT connection sharing the session's cookies.
func NewConnection(log *util.Logger, session Session, uri string) *Connection {
	client := request.NewHelper(log)
	client.Jar = session.Jar()

	if uri == "" {
		uri = ENDPOINT
	}

	return &Connection{
		client:  client,
		log:     log,
		session: session,
		uri:     strings.TrimSuffix(uri, "/"),
		Retry:   RETRY_LIMIT,
	}
}

// Returns the http header for http requests to bluebolt
func blueboltHeader() map[string]string {
	return map[string]string{
		"User-Agent":   USER_AGENT,
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
}

// Connected reports if the underlying session is valid
func (c *Connection) Connected() bool {
	return c.session.Connected()
}

// SetTimeout sets the timeout of a single request attempt
func (c *Connection) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// TokenSource returns the session, reusing its token until expiry
func (c *Connection) TokenSource() oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, c.session)
}

// setCache enables caching of the location list for the given duration. A zero duration disables it.
// Cache refreshes are not bound to the context of the triggering call.
func (c *Connection) setCache(cache time.Duration) {
	if cache <= 0 {
		c.locations = nil
		return
	}

	c.locations = provider.ResettableCached(func() (Locations, error) {
		return c.getLocations(context.Background())
	}, cache)
}

// ClearCache drops cached responses
func (c *Connection) ClearCache() {
	if c.locations != nil {
		c.locations.Reset()
	}
}

// NewRequest creates a request for the absolute uri using the connection's retry limit
func (c *Connection) NewRequest(method, uri string) Request {
	return Request{
		Method: method,
		URI:    uri,
		Retry:  c.Retry,
	}
}

// Query executes the request and returns the JSON body of the first HTTP 200 response.
func (c *Connection) Query(ctx context.Context, r Request) (json.RawMessage, error) {
	switch r.Method {
	case http.MethodGet, http.MethodPut, http.MethodPost:
	default:
		c.log.ERROR.Printf("invalid request method '%s'", r.Method)
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidMethod, r.Method)
	}

	if _, err := url.ParseRequestURI(r.URI); err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	if !r.NoLogin && !c.session.Connected() {
		c.log.DEBUG.Println("session expired, logging in")
		if _, err := c.session.Login(ctx); err != nil {
			return nil, fmt.Errorf("could not login: %w", err)
		}
	}

	headers := lo.Assign(blueboltHeader(), r.Headers)

	var body []byte
	if r.Method != http.MethodGet {
		params := lo.Assign(map[string]any{}, r.Params)

		var err error
		if body, err = json.Marshal(params); err != nil {
			return nil, fmt.Errorf("could not encode params: %w", err)
		}
		c.log.TRACE.Printf("params: %s", body)
	}

	attempts := max(r.Retry, 0) + 1

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.log.DEBUG.Printf("querying %s %s on attempt: %d/%d", r.Method, r.URI, attempt, attempts)

		var res json.RawMessage
		if res, err = c.attempt(ctx, r.Method, r.URI, headers, body); err == nil {
			return res, nil
		}

		c.log.WARN.Printf("%s %s attempt %d/%d failed: %v", r.Method, r.URI, attempt, attempts, err)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestExhausted, r.Method, r.URI, err)
}

func (c *Connection) attempt(ctx context.Context, method, uri string, headers map[string]string, body []byte) (json.RawMessage, error) {
	var data io.Reader
	if body != nil {
		data = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, data)
	if err != nil {
		return nil, err
	}
	for key, val := range headers {
		req.Header.Set(key, val)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(method, resultNetwork).Inc()
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		requestsTotal.WithLabelValues(method, resultStatus).Inc()
		return nil, newStatusError(resp)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(method, resultNetwork).Inc()
		return nil, &NetworkError{Err: err}
	}

	if !json.Valid(b) {
		requestsTotal.WithLabelValues(method, resultDecode).Inc()
		return nil, &DecodeError{Err: errors.New("invalid json body")}
	}

	requestsTotal.WithLabelValues(method, resultSuccess).Inc()

	return json.RawMessage(b), nil
}

func queryJSON[T any](ctx context.Context, c *Connection, method, uri string, params map[string]any) (T, error) {
	var res T

	r := c.NewRequest(method, c.uri+uri)
	r.Params = params

	b, err := c.Query(ctx, r)
	if err != nil {
		return res, err
	}

	if err := json.Unmarshal(b, &res); err != nil {
		return res, &DecodeError{Err: err}
	}

	return res, nil
}

// Locations returns all locations registered with the account. With caching enabled
// ctx is only checked before the cache is consulted.
func (c *Connection) Locations(ctx context.Context) (Locations, error) {
	if c.locations == nil {
		return c.getLocations(ctx)
	}

	if err := ctx.Err(); err != nil {
		return Locations{}, err
	}

	return c.locations.Get()
}

func (c *Connection) getLocations(ctx context.Context) (Locations, error) {
	res, err := queryJSON[Locations](ctx, c, http.MethodGet, LOCATION_LIST_URL, nil)
	if err != nil {
		return res, fmt.Errorf("error getting locations: %w", err)
	}

	if err := validate.Struct(res); err != nil {
		return res, fmt.Errorf("error getting locations: %w", &DecodeError{Err: err})
	}

	return res, nil
}

// LocationDetails returns the settings of a location
func (c *Connection) LocationDetails(ctx context.Context, siteID ID) (LocationDetails, error) {
	uri := fmt.Sprintf(LOCATION_DETAILS_URL, url.QueryEscape(siteID.String()))

	res, err := queryJSON[LocationDetails](ctx, c, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("error getting location %s: %w", siteID, err)
	}

	return res, nil
}

// Devices returns all devices at a location
func (c *Connection) Devices(ctx context.Context, siteID ID) (DeviceList, error) {
	uri := fmt.Sprintf(DEVICE_LIST_URL, url.QueryEscape(siteID.String()))

	res, err := queryJSON[DeviceList](ctx, c, http.MethodPost, uri, nil)
	if err != nil {
		return res, fmt.Errorf("error getting devices for location %s: %w", siteID, err)
	}

	if err := validate.Struct(res); err != nil {
		return res, fmt.Errorf("error getting devices for location %s: %w", siteID, &DecodeError{Err: err})
	}

	return res, nil
}

// Device returns the status of a device. The site id is required for authorization.
func (c *Connection) Device(ctx context.Context, siteID ID, devClass string, devID ID) (DeviceStatus, error) {
	uri := fmt.Sprintf(DEVICE_STATUS_URL, url.QueryEscape(siteID.String()), url.QueryEscape(devClass), url.QueryEscape(devID.String()))

	res, err := queryJSON[DeviceStatus](ctx, c, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("error getting device %s/%s: %w", devClass, devID, err)
	}

	return res, nil
}

// Outlets returns the outlet labels of a device
func (c *Connection) Outlets(ctx context.Context, siteID ID, devClass string, devID ID) (OutletLabels, error) {
	uri := fmt.Sprintf(OUTLETS_URL, url.QueryEscape(siteID.String()), url.QueryEscape(devClass), url.QueryEscape(devID.String()))

	res, err := queryJSON[OutletLabels](ctx, c, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("error getting outlets of %s/%s: %w", devClass, devID, err)
	}

	return res, nil
}

func (c *Connection) TurnOutletOn(ctx context.Context, deviceID ID) error {
	return c.setValve(ctx, deviceID, VALVE_OPEN)
}

func (c *Connection) TurnOutletOff(ctx context.Context, deviceID ID) error {
	return c.setValve(ctx, deviceID, VALVE_CLOSED)
}

func (c *Connection) setValve(ctx context.Context, deviceID ID, target string) error {
	r := c.NewRequest(http.MethodPost, c.uri+fmt.Sprintf(DEVICE_URL, url.PathEscape(deviceID.String())))
	r.Params = map[string]any{
		"valve": ValveTarget{Target: target},
	}

	if _, err := c.Query(ctx, r); err != nil {
		return fmt.Errorf("error setting device %s to %s: %w", deviceID, target, err)
	}

	return nil
}
