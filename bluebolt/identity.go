package bluebolt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/evcc-io/evcc/api"
	"github.com/evcc-io/evcc/util"
	"github.com/evcc-io/evcc/util/request"
	"github.com/spf13/cast"
	"golang.org/x/oauth2"
)

// Identity is the BlueBOLT session manager. It logs in with the stored credentials
// and tracks the expiry of the resulting login cookie.
type Identity struct {
	client   *request.Helper
	log      *util.Logger
	uri      string
	user     string
	password string

	mu    sync.Mutex
	token *oauth2.Token
	now   func() time.Time
}

// NewIdentity creates a session manager for the given account. No login is performed.
func NewIdentity(log *util.Logger, uri, user, password string) (*Identity, error) {
	if user == "" || password == "" {
		return nil, api.ErrMissingCredentials
	}

	log.Redact(password, url.QueryEscape(password))

	client := request.NewHelper(log)
	client.Jar, _ = cookiejar.New(nil)

	if uri == "" {
		uri = ENDPOINT
	}

	v := &Identity{
		client:   client,
		log:      log,
		uri:      strings.TrimSuffix(uri, "/"),
		user:     user,
		password: password,
		now:      time.Now,
	}

	return v, nil
}

// Login authenticates the account. On failure the previous session state is kept.
func (v *Identity) Login(ctx context.Context) (*oauth2.Token, error) {
	uri := v.uri + fmt.Sprintf(AUTH_URL, url.QueryEscape(v.user), url.QueryEscape(v.password))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, nil)
	if err != nil {
		return nil, err
	}
	for key, val := range blueboltHeader() {
		req.Header.Set(key, val)
	}

	v.log.DEBUG.Printf("authenticating account %s", v.user)

	resp, err := v.client.Do(req)
	if err != nil {
		loginsTotal.WithLabelValues(resultNetwork).Inc()
		return nil, fmt.Errorf("could not login: %w", &NetworkError{Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		loginsTotal.WithLabelValues(resultStatus).Inc()
		return nil, fmt.Errorf("could not login: %w", newStatusError(resp))
	}

	// {"data":{"auth":true,"activated":true}}
	var res AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		loginsTotal.WithLabelValues(resultDecode).Inc()
		return nil, fmt.Errorf("could not login: %w", &DecodeError{Err: err})
	}

	if res.Data == nil || !cast.ToBool(res.Data.Auth) {
		loginsTotal.WithLabelValues(resultDenied).Inc()
		v.log.ERROR.Printf("failed authenticating user %s", v.user)
		return nil, fmt.Errorf("user %s: %w", v.user, ErrAuthentication)
	}

	token := v.sessionToken(resp.Cookies())

	v.mu.Lock()
	v.token = token
	v.mu.Unlock()

	loginsTotal.WithLabelValues(resultSuccess).Inc()
	v.log.DEBUG.Printf("session expires at: %s", token.Expiry.Format(time.RFC3339))

	t := *token
	return &t, nil
}

// sessionToken derives the session from the login cookie, falling back to SESSION_TIMEOUT
func (v *Identity) sessionToken(cookies []*http.Cookie) *oauth2.Token {
	now := v.now()

	token := &oauth2.Token{
		AccessToken: "cookie",
		TokenType:   "cookie",
		Expiry:      now.Add(SESSION_TIMEOUT),
	}

	for _, c := range cookies {
		if c.Name != LOGIN_COOKIE {
			continue
		}

		if c.Value != "" {
			token.AccessToken = c.Value
		}

		switch {
		case c.MaxAge > 0:
			token.Expiry = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			token.Expiry = c.Expires
		}
	}

	return token
}

// Connected reports whether a login succeeded and its session has not yet expired.
func (v *Identity) Connected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.token != nil && v.now().Before(v.token.Expiry)
}

// Token implements oauth2.TokenSource. It logs in if the session has expired.
func (v *Identity) Token() (*oauth2.Token, error) {
	if v.Connected() {
		v.mu.Lock()
		defer v.mu.Unlock()

		t := *v.token
		return &t, nil
	}

	return v.Login(context.Background())
}

// Jar returns the cookie jar holding the session cookie
func (v *Identity) Jar() http.CookieJar {
	return v.client.Jar
}

func (v *Identity) String() string {
	return "bluebolt: " + v.user
}
