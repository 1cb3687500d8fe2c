// Package identitytoolkit adapts the managed Identity Toolkit REST API
// (accounts:signUp, accounts:signInWithPassword) to ports.IdentityProvider.
// ID tokens returned by the API are verified with go-oidc against the
// project's securetoken issuer before an identity is accepted.
package identitytoolkit

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

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/identitystate"
	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

const (
	DefaultBaseURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	issuerPrefix   = "https://securetoken.google.com/"
)

// TokenVerifier checks an ID token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (map[string]any, error)
}

// Config holds configuration for the Identity Toolkit client.
type Config struct {
	APIKey     string
	ProjectID  string
	BaseURL    string        // defaults to DefaultBaseURL
	JWKSURL    string        // defaults to DefaultJWKSURL
	Issuer     string        // defaults to https://securetoken.google.com/<ProjectID>
	HTTPClient *http.Client  // Optional, defaults to a client with Timeout
	Timeout    time.Duration // default 10s
	Verifier   TokenVerifier // Optional, defaults to go-oidc against JWKSURL
}

// Client is the shared connection to the API. Connect returns client-scoped providers.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	verifier   TokenVerifier
	hub        *identitystate.Hub
}

var _ ports.IdentityConnector = (*Client)(nil)

// NewClient constructs a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("identity toolkit: API key is required")
	}
	if cfg.ProjectID == "" && cfg.Verifier == nil {
		return nil, errors.New("identity toolkit: project ID is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	verifier := cfg.Verifier
	if verifier == nil {
		verifier = newOIDCVerifier(cfg, httpClient)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		verifier:   verifier,
		hub:        identitystate.NewHub(),
	}, nil
}

// Connect returns the provider for clientID.
func (c *Client) Connect(_ context.Context, clientID string) (ports.IdentityProvider, error) {
	if clientID == "" {
		return nil, errors.New("identity toolkit: client id is required")
	}
	return &Provider{client: c, clientID: clientID}, nil
}

// Provider is the client-scoped view of a Client.
type Provider struct {
	client   *Client
	clientID string
}

var _ ports.IdentityProvider = (*Provider)(nil)

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type passwordResponse struct {
	IDToken      string `json:"idToken"`
	Email        string `json:"email"`
	LocalID      string `json:"localId"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) CreateAccount(ctx context.Context, email, password string) (domainauth.Identity, error) {
	return p.passwordCall(ctx, "accounts:signUp", email, password)
}

func (p *Provider) VerifyCredentials(ctx context.Context, email, password string) (domainauth.Identity, error) {
	return p.passwordCall(ctx, "accounts:signInWithPassword", email, password)
}

// Invalidate signs the client out locally. Identity Toolkit ID tokens are
// stateless; the client simply stops presenting them.
func (p *Provider) Invalidate(_ context.Context) error {
	p.client.hub.Set(p.clientID, nil)
	return nil
}

func (p *Provider) Subscribe(ctx context.Context) (<-chan domainauth.StateChange, error) {
	return p.client.hub.Subscribe(ctx, p.clientID), nil
}

func (p *Provider) passwordCall(ctx context.Context, method, email, password string) (domainauth.Identity, error) {
	var resp passwordResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := p.client.post(ctx, method, req, &resp); err != nil {
		return domainauth.Identity{}, err
	}

	claims, err := p.client.verifier.Verify(ctx, resp.IDToken)
	if err != nil {
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeInternal, err.Error())
	}
	if sub, _ := claims["sub"].(string); sub != "" && sub != resp.LocalID {
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeInternal, "id token subject mismatch")
	}

	id := domainauth.Identity{UserID: resp.LocalID, Email: resp.Email, Claims: claims}
	if id.Email == "" {
		id.Email = email
	}
	p.client.hub.Set(p.clientID, &id)
	return id, nil
}

func (c *Client) post(ctx context.Context, method string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}
	u := c.baseURL + "/" + method + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domainauth.NewProviderError("auth/network-request-failed", "A network error occurred. Please try again.")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		if jsonErr := json.Unmarshal(raw, &er); jsonErr != nil || er.Error.Message == "" {
			return domainauth.NewProviderError(domainauth.CodeInternal, fmt.Sprintf("%s: status %d", method, resp.StatusCode))
		}
		return MapError(er.Error.Message)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

// MapError converts an Identity Toolkit error message such as "EMAIL_EXISTS" or
// "WEAK_PASSWORD : Password should be at least 6 characters" into a ProviderError.
func MapError(message string) *domainauth.ProviderError {
	key, detail, _ := strings.Cut(message, ":")
	key = strings.TrimSpace(key)
	detail = strings.TrimSpace(detail)

	switch key {
	case "EMAIL_EXISTS":
		return domainauth.NewProviderError(domainauth.CodeEmailInUse, detail)
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return domainauth.NewProviderError(domainauth.CodeInvalidEmail, detail)
	case "WEAK_PASSWORD", "MISSING_PASSWORD":
		return domainauth.NewProviderError(domainauth.CodeWeakPassword, detail)
	case "EMAIL_NOT_FOUND":
		return domainauth.NewProviderError(domainauth.CodeUserNotFound, detail)
	case "INVALID_PASSWORD":
		return domainauth.NewProviderError(domainauth.CodeWrongPassword, detail)
	case "INVALID_LOGIN_CREDENTIALS":
		return domainauth.NewProviderError(domainauth.CodeInvalidCredential, detail)
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return domainauth.NewProviderError(domainauth.CodeTooManyRequests, detail)
	case "USER_DISABLED":
		return domainauth.NewProviderError("auth/user-disabled", "This account has been disabled.")
	case "OPERATION_NOT_ALLOWED":
		return domainauth.NewProviderError("auth/operation-not-allowed", "Password sign-in is disabled.")
	default:
		return domainauth.NewProviderError(domainauth.CodeInternal, message)
	}
}

type oidcVerifier struct {
	verifier   *gooidc.IDTokenVerifier
	httpClient *http.Client
}

func newOIDCVerifier(cfg Config, httpClient *http.Client) *oidcVerifier {
	jwks := cfg.JWKSURL
	if jwks == "" {
		jwks = DefaultJWKSURL
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = issuerPrefix + cfg.ProjectID
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	keySet := gooidc.NewRemoteKeySet(ctx, jwks)
	return &oidcVerifier{
		verifier:   gooidc.NewVerifier(issuer, keySet, &gooidc.Config{ClientID: cfg.ProjectID}),
		httpClient: httpClient,
	}
}

func (v *oidcVerifier) Verify(ctx context.Context, raw string) (map[string]any, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	var claims map[string]any
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}
	return claims, nil
}
