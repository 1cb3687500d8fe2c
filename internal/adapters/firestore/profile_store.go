// Package firestore stores account profiles as documents in a Firestore
// collection through the Firestore REST API.
package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	apperrors "github.com/rejoiceinstitute/rejoice-web/internal/errors"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

const (
	DefaultBaseURL    = "https://firestore.googleapis.com/v1"
	DefaultCollection = "users"
	datastoreScope    = "https://www.googleapis.com/auth/datastore"
	defaultTokenURL   = "https://oauth2.googleapis.com/token"
)

// ErrProfileNotFound is returned by UpdateProfile when the document does not exist.
var ErrProfileNotFound = apperrors.New(apperrors.ErrCodeNotFound, "Profile not found.")

// Config configures the Firestore profile store.
type Config struct {
	ProjectID  string
	Database   string // default "(default)"
	Collection string // default "users"
	BaseURL    string // default DefaultBaseURL; point at the emulator for local runs

	// CredentialsFile is a service account JSON key. When empty the store sends
	// unauthenticated requests, which only the emulator accepts.
	CredentialsFile string

	HTTPClient *http.Client
	Timeout    time.Duration // default 10s
	Now        func() time.Time
}

// ProfileStore implements ports.ProfileStore on Firestore.
type ProfileStore struct {
	docsURL    string
	collection string
	httpClient *http.Client
	now        func() time.Time
}

var _ ports.ProfileStore = (*ProfileStore)(nil)

// New constructs a ProfileStore. ctx is used for token refreshes.
func New(ctx context.Context, cfg Config) (*ProfileStore, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	database := cfg.Database
	if database == "" {
		database = "(default)"
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if cfg.CredentialsFile != "" {
		jwtCfg, err := loadServiceAccount(cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		httpClient = jwtCfg.Client(ctx)
		httpClient.Timeout = timeout
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ProfileStore{
		docsURL: fmt.Sprintf("%s/projects/%s/databases/%s/documents",
			base, url.PathEscape(cfg.ProjectID), url.PathEscape(database)),
		collection: collection,
		httpClient: httpClient,
		now:        now,
	}, nil
}

type serviceAccount struct {
	Type         string `json:"type"`
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

func loadServiceAccount(path string) (*jwt.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("firestore: read credentials: %w", err)
	}
	var sa serviceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("firestore: parse credentials: %w", err)
	}
	if sa.Type != "service_account" || sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("firestore: credentials file is not a service account key")
	}
	tokenURL := sa.TokenURI
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	return &jwt.Config{
		Email:        sa.ClientEmail,
		PrivateKey:   []byte(sa.PrivateKey),
		PrivateKeyID: sa.PrivateKeyID,
		Scopes:       []string{datastoreScope},
		TokenURL:     tokenURL,
	}, nil
}

func (s *ProfileStore) docURL(uid string) string {
	return s.docsURL + "/" + url.PathEscape(s.collection) + "/" + url.PathEscape(uid)
}

func (s *ProfileStore) ReadProfile(ctx context.Context, uid string) (*domainauth.Profile, error) {
	if uid == "" {
		return nil, errors.New("firestore: uid is required")
	}
	var doc document
	status, err := s.do(ctx, http.MethodGet, s.docURL(uid), nil, &doc)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := doc.profile()
	return &p, nil
}

func (s *ProfileStore) WriteProfile(ctx context.Context, uid string, p domainauth.Profile) (*domainauth.Profile, error) {
	if uid == "" {
		return nil, errors.New("firestore: uid is required")
	}
	if p.Role == "" {
		p.Role = domainauth.RoleReader
	}
	p.CreatedAt = s.now().UTC()
	p.UpdatedAt = time.Time{}

	var doc document
	if _, err := s.do(ctx, http.MethodPatch, s.docURL(uid), encodeProfile(p), &doc); err != nil {
		return nil, err
	}
	out := doc.profile()
	return &out, nil
}

func (s *ProfileStore) UpdateProfile(ctx context.Context, uid string, u domainauth.ProfileUpdate) (*domainauth.Profile, error) {
	if uid == "" {
		return nil, errors.New("firestore: uid is required")
	}
	if u.Empty() {
		p, err := s.ReadProfile(ctx, uid)
		if err == nil && p == nil {
			err = ErrProfileNotFound
		}
		return p, err
	}

	body, paths := encodeUpdate(u, s.now().UTC())
	q := url.Values{}
	for _, path := range paths {
		q.Add("updateMask.fieldPaths", path)
	}
	q.Set("currentDocument.exists", "true")

	var doc document
	status, err := s.do(ctx, http.MethodPatch, s.docURL(uid)+"?"+q.Encode(), body, &doc)
	if status == http.StatusNotFound {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	p := doc.profile()
	return &p, nil
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (s *ProfileStore) do(ctx context.Context, method, u string, body, out any) (int, error) {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("firestore: encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return 0, fmt.Errorf("firestore: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("firestore: %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("firestore: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
			return resp.StatusCode, fmt.Errorf("firestore: %s (%s)", ae.Error.Message, ae.Error.Status)
		}
		return resp.StatusCode, fmt.Errorf("firestore: unexpected status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("firestore: decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
