// Package devauth provides an in-process identity provider for local development
// and tests. Accounts live in memory; passwords are bcrypt hashed and sign-ins
// issue HS256 ID tokens whose verified claims are attached to the identity.
package devauth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/publicsuffix"

	"github.com/rejoiceinstitute/rejoice-web/internal/adapters/identitystate"
	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

// Config controls the dev identity provider. Zero values select defaults.
type Config struct {
	MinPasswordLength int           // default 6
	MaxFailedAttempts int           // default 5
	LockoutWindow     time.Duration // default 15m
	TokenSecret       []byte        // random when empty
	TokenTTL          time.Duration // default 1h
	Issuer            string        // default "rejoice-dev"
	BcryptCost        int           // default bcrypt.DefaultCost
	Now               func() time.Time
}

type account struct {
	uid       string
	email     string
	hash      []byte
	createdAt time.Time
}

// Directory is the shared account database. Connect hands out client-scoped
// providers that share accounts but keep separate sign-in state.
type Directory struct {
	cfg Config
	hub *identitystate.Hub

	mu       sync.Mutex
	accounts map[string]*account // keyed by lowercased email
	failures map[string][]time.Time
}

var _ ports.IdentityConnector = (*Directory)(nil)

// NewDirectory constructs a Directory from cfg.
func NewDirectory(cfg Config) (*Directory, error) {
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = 6
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = 5
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 15 * time.Minute
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "rejoice-dev"
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.TokenSecret) == 0 {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("dev auth: generate token secret: %w", err)
		}
		cfg.TokenSecret = secret
	}
	return &Directory{
		cfg:      cfg,
		hub:      identitystate.NewHub(),
		accounts: make(map[string]*account),
		failures: make(map[string][]time.Time),
	}, nil
}

// Connect returns the provider for clientID.
func (d *Directory) Connect(_ context.Context, clientID string) (ports.IdentityProvider, error) {
	if clientID == "" {
		return nil, errors.New("dev auth: client id is required")
	}
	return &Provider{dir: d, clientID: clientID}, nil
}

// Seed creates an account without signing anyone in. Existing accounts are left unchanged.
func (d *Directory) Seed(email, password string) (domainauth.Identity, error) {
	id, err := d.create(email, password)
	var pe *domainauth.ProviderError
	if errors.As(err, &pe) && pe.Code == domainauth.CodeEmailInUse {
		d.mu.Lock()
		a := d.accounts[normalizeEmail(email)]
		d.mu.Unlock()
		return domainauth.Identity{UserID: a.uid, Email: a.email}, nil
	}
	return id, err
}

func (d *Directory) create(email, password string) (domainauth.Identity, error) {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return domainauth.Identity{}, err
	}
	if len(password) < d.cfg.MinPasswordLength {
		msg := fmt.Sprintf("Password should be at least %d characters.", d.cfg.MinPasswordLength)
		pe := domainauth.NewProviderError(domainauth.CodeWeakPassword, msg)
		pe.Display = msg
		return domainauth.Identity{}, pe
	}

	key := normalizeEmail(email)
	d.mu.Lock()
	_, exists := d.accounts[key]
	d.mu.Unlock()
	if exists {
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeEmailInUse, "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cfg.BcryptCost)
	if err != nil {
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeWeakPassword, err.Error())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[key]; ok {
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeEmailInUse, "")
	}
	a := &account{uid: uuid.NewString(), email: email, hash: hash, createdAt: d.cfg.Now()}
	d.accounts[key] = a
	return domainauth.Identity{UserID: a.uid, Email: a.email}, nil
}

func (d *Directory) verify(email, password string) (domainauth.Identity, error) {
	key := normalizeEmail(email)
	now := d.cfg.Now()

	d.mu.Lock()
	if d.lockedLocked(key, now) {
		d.mu.Unlock()
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeTooManyRequests, "")
	}
	a, ok := d.accounts[key]
	d.mu.Unlock()

	if !ok {
		d.recordFailure(key, now)
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeUserNotFound, "")
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		d.recordFailure(key, now)
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeWrongPassword, "")
	}

	d.mu.Lock()
	delete(d.failures, key)
	d.mu.Unlock()
	return domainauth.Identity{UserID: a.uid, Email: a.email}, nil
}

func (d *Directory) lockedLocked(key string, now time.Time) bool {
	cutoff := now.Add(-d.cfg.LockoutWindow)
	recent := d.failures[key][:0]
	for _, t := range d.failures[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) == 0 {
		delete(d.failures, key)
		return false
	}
	d.failures[key] = recent
	return len(recent) >= d.cfg.MaxFailedAttempts
}

func (d *Directory) recordFailure(key string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[key] = append(d.failures[key], now)
}

// issueToken signs an ID token for id and returns the verified claims.
func (d *Directory) issueToken(id domainauth.Identity) (string, map[string]any, error) {
	now := d.cfg.Now()
	claims := jwt.MapClaims{
		"iss":   d.cfg.Issuer,
		"sub":   id.UserID,
		"email": id.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(d.cfg.TokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.cfg.TokenSecret)
	if err != nil {
		return "", nil, fmt.Errorf("sign id token: %w", err)
	}
	verified, err := d.VerifyToken(signed)
	if err != nil {
		return "", nil, err
	}
	return signed, verified, nil
}

// VerifyToken checks an ID token issued by this directory and returns its claims.
func (d *Directory) VerifyToken(raw string) (map[string]any, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return d.cfg.TokenSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(d.cfg.Issuer),
		jwt.WithTimeFunc(d.cfg.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("verify id token: unexpected claims type")
	}
	return map[string]any(claims), nil
}

// Provider is the client-scoped view of a Directory.
type Provider struct {
	dir      *Directory
	clientID string
}

var _ ports.IdentityProvider = (*Provider)(nil)

func (p *Provider) CreateAccount(_ context.Context, email, password string) (domainauth.Identity, error) {
	id, err := p.dir.create(email, password)
	if err != nil {
		return domainauth.Identity{}, err
	}
	return p.signIn(id)
}

func (p *Provider) VerifyCredentials(_ context.Context, email, password string) (domainauth.Identity, error) {
	id, err := p.dir.verify(email, password)
	if err != nil {
		return domainauth.Identity{}, err
	}
	return p.signIn(id)
}

func (p *Provider) signIn(id domainauth.Identity) (domainauth.Identity, error) {
	_, claims, err := p.dir.issueToken(id)
	if err != nil {
		return domainauth.Identity{}, domainauth.NewProviderError(domainauth.CodeInternal, err.Error())
	}
	id.Claims = claims
	p.dir.hub.Set(p.clientID, &id)
	return id, nil
}

func (p *Provider) Invalidate(_ context.Context) error {
	p.dir.hub.Set(p.clientID, nil)
	return nil
}

func (p *Provider) Subscribe(ctx context.Context) (<-chan domainauth.StateChange, error) {
	return p.dir.hub.Subscribe(ctx, p.clientID), nil
}

func validateEmail(email string) error {
	invalid := domainauth.NewProviderError(domainauth.CodeInvalidEmail, "")
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid
	}
	at := strings.LastIndexByte(email, '@')
	domain := strings.ToLower(email[at+1:])
	if !strings.Contains(domain, ".") {
		return invalid
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(domain); err != nil {
		return invalid
	}
	return nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
