package firestore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
)

// fakeFirestore implements the document GET/PATCH subset the store uses.
type fakeFirestore struct {
	mu   sync.Mutex
	docs map[string]document
	reqs []string
}

func (f *fakeFirestore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, r.Method+" "+r.URL.Path)

	const prefix = "/projects/proj/databases/(default)/documents/users/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, `{"error":{"code":400,"message":"bad path","status":"INVALID_ARGUMENT"}}`, http.StatusBadRequest)
		return
	}
	uid := strings.TrimPrefix(r.URL.Path, prefix)
	existing, exists := f.docs[uid]

	switch r.Method {
	case http.MethodGet:
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Document not found","status":"NOT_FOUND"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(existing)
	case http.MethodPatch:
		var in document
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("currentDocument.exists") == "true" && !exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No document to update","status":"NOT_FOUND"}}`))
			return
		}
		mask := r.URL.Query()["updateMask.fieldPaths"]
		out := document{Name: uid, Fields: map[string]value{}}
		if len(mask) == 0 {
			out.Fields = in.Fields
		} else {
			for k, v := range existing.Fields {
				out.Fields[k] = v
			}
			for _, path := range mask {
				out.Fields[path] = in.Fields[path]
			}
		}
		f.docs[uid] = out
		_ = json.NewEncoder(w).Encode(out)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*ProfileStore, *fakeFirestore, *time.Time) {
	t.Helper()
	fake := &fakeFirestore{docs: map[string]document{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	s, err := New(context.Background(), Config{
		ProjectID: "proj",
		BaseURL:   srv.URL,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)
	return s, fake, &now
}

func TestProfileStore_WriteRead(t *testing.T) {
	s, _, now := newTestStore(t)
	ctx := context.Background()

	p, err := s.ReadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, p)

	written, err := s.WriteProfile(ctx, "u1", domainauth.Profile{
		FirstName: "Jo", LastName: "March", Email: "jo@example.com",
		Role: domainauth.RoleAuthor, IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, *now, written.CreatedAt)

	got, err := s.ReadProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Jo", got.FirstName)
	assert.Equal(t, "March", got.LastName)
	assert.Equal(t, domainauth.RoleAuthor, got.Role)
	assert.True(t, got.IsActive)
	assert.True(t, got.UpdatedAt.IsZero())
}

func TestProfileStore_UpdateUsesFieldMask(t *testing.T) {
	s, fake, now := newTestStore(t)
	ctx := context.Background()

	_, err := s.WriteProfile(ctx, "u1", domainauth.Profile{FirstName: "Jo", Email: "jo@example.com", Role: domainauth.RoleReader})
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	last := "Bhaer"
	updated, err := s.UpdateProfile(ctx, "u1", domainauth.ProfileUpdate{LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "Jo", updated.FirstName)
	assert.Equal(t, "Bhaer", updated.LastName)
	assert.Equal(t, "jo@example.com", updated.Email)
	assert.Equal(t, *now, updated.UpdatedAt)

	fake.mu.Lock()
	doc := fake.docs["u1"]
	fake.mu.Unlock()
	assert.Equal(t, "Bhaer", *doc.Fields[fieldLastName].StringValue)
}

func TestProfileStore_UpdateMissing(t *testing.T) {
	s, _, _ := newTestStore(t)
	role := domainauth.RoleArtist
	_, err := s.UpdateProfile(context.Background(), "nobody", domainauth.ProfileUpdate{Role: &role})
	require.ErrorIs(t, err, ErrProfileNotFound)

	_, err = s.UpdateProfile(context.Background(), "nobody", domainauth.ProfileUpdate{})
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileStore_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Missing or insufficient permissions.","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	s, err := New(context.Background(), Config{ProjectID: "proj", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = s.ReadProfile(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PERMISSION_DENIED")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "key.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"type":"authorized_user"}`), 0o600))
	_, err = New(context.Background(), Config{ProjectID: "p", CredentialsFile: bad})
	require.Error(t, err)

	_, err = New(context.Background(), Config{ProjectID: "p", CredentialsFile: filepath.Join(dir, "missing.json")})
	require.Error(t, err)
}

func TestEncodeUpdate(t *testing.T) {
	first := "Amy"
	active := false
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	doc, paths := encodeUpdate(domainauth.ProfileUpdate{FirstName: &first, IsActive: &active}, now)
	assert.Equal(t, []string{fieldFirstName, fieldIsActive, fieldUpdatedAt}, paths)
	assert.Equal(t, "Amy", *doc.Fields[fieldFirstName].StringValue)
	assert.False(t, *doc.Fields[fieldIsActive].BooleanValue)
}
