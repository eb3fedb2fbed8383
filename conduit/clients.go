package conduit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"conduitqa/restclient"
)

// tokenMargin is how long before expiry a cached token is considered stale.
const tokenMargin = 30 * time.Second

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// Clients hands out Conduit API clients, logging users in on demand. Tokens are cached per
// email until shortly before their exp claim.
type Clients struct {
	baseURL string
	opts    []restclient.Option
	now     func() time.Time

	mu     sync.Mutex
	tokens map[string]cachedToken
}

func NewClients(baseURL string, opts ...restclient.Option) *Clients {
	return &Clients{
		baseURL: baseURL,
		opts:    opts,
		now:     time.Now,
		tokens:  make(map[string]cachedToken),
	}
}

// Get returns an anonymous client when creds is nil, otherwise one sending
// "Authorization: Token <jwt>" for that user.
func (c *Clients) Get(ctx context.Context, creds *UserCredentials) (*restclient.Client, error) {
	client, err := restclient.CreateClient(c.baseURL, nil, c.opts...)
	if err != nil {
		return nil, fmt.Errorf("conduit client: %w", err)
	}
	if creds == nil {
		return client, nil
	}

	token, err := c.token(ctx, client, *creds)
	if err != nil {
		return nil, err
	}
	return client.WithAuthorizationHeader("Token " + token), nil
}

func (c *Clients) token(ctx context.Context, client *restclient.Client, creds UserCredentials) (string, error) {
	c.mu.Lock()
	cached, ok := c.tokens[creds.Email]
	c.mu.Unlock()
	if ok && c.now().Add(tokenMargin).Before(cached.expiresAt) {
		return cached.value, nil
	}

	login := UserRequest{User: UserCredentials{Email: creds.Email, Password: creds.Password}}
	resp, err := PostLogin[UserResponse](ctx, client, login)
	if err != nil {
		return "", fmt.Errorf("login %s: %w", creds.Email, err)
	}
	token := resp.User.Token
	if token == "" {
		return "", fmt.Errorf("login %s: empty token", creds.Email)
	}

	exp, err := tokenExpiry(token)
	if err != nil {
		log.Printf("conduit.token: warn: token not cached email=%s error=%v", creds.Email, err)
		return token, nil
	}
	c.mu.Lock()
	c.tokens[creds.Email] = cachedToken{value: token, expiresAt: exp}
	c.mu.Unlock()
	log.Printf("conduit.token: cached email=%s expires_at=%s", creds.Email, exp.Format(time.RFC3339))
	return token, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the API is the verifier.
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp: %w", err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("token has no exp claim")
	}
	return exp.Time, nil
}
