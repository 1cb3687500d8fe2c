package authroles

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
)

// Allowlist grants roles to specific email addresses. Matching ignores case and
// surrounding whitespace.
type Allowlist struct {
	admin  map[string]struct{}
	author map[string]struct{}
	artist map[string]struct{}
}

// AllowlistFile is the YAML shape of an allowlist file:
//
//	admins: [director@rejoice.org]
//	authors: [editor@rejoice.org]
//	artists: []
type AllowlistFile struct {
	Admins  []string `yaml:"admins"`
	Authors []string `yaml:"authors"`
	Artists []string `yaml:"artists"`
}

// NewAllowlist builds an Allowlist from address lists.
func NewAllowlist(admins, authors, artists []string) *Allowlist {
	return &Allowlist{
		admin:  emailSet(admins),
		author: emailSet(authors),
		artist: emailSet(artists),
	}
}

// LoadAllowlistFile reads a YAML allowlist file.
func LoadAllowlistFile(path string) (*Allowlist, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allowlist %s: %w", path, err)
	}
	var f AllowlistFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse allowlist %s: %w", path, err)
	}
	return NewAllowlist(f.Admins, f.Authors, f.Artists), nil
}

// Merge returns a new allowlist holding the entries of both.
func (a *Allowlist) Merge(b *Allowlist) *Allowlist {
	out := NewAllowlist(nil, nil, nil)
	for _, src := range []*Allowlist{a, b} {
		if src == nil {
			continue
		}
		for k := range src.admin {
			out.admin[k] = struct{}{}
		}
		for k := range src.author {
			out.author[k] = struct{}{}
		}
		for k := range src.artist {
			out.artist[k] = struct{}{}
		}
	}
	return out
}

// IsAdmin reports whether email is on the admin list.
func (a *Allowlist) IsAdmin(email string) bool {
	if a == nil {
		return false
	}
	_, ok := a.admin[normalizeEmail(email)]
	return ok
}

// Match returns the most privileged listed role for email, or "" when unlisted.
func (a *Allowlist) Match(email string) domainauth.Role {
	if a == nil {
		return ""
	}
	e := normalizeEmail(email)
	switch {
	case a.has(a.admin, e):
		return domainauth.RoleAdmin
	case a.has(a.author, e):
		return domainauth.RoleAuthor
	case a.has(a.artist, e):
		return domainauth.RoleArtist
	}
	return ""
}

// Size returns the number of listed addresses.
func (a *Allowlist) Size() int {
	if a == nil {
		return 0
	}
	return len(a.admin) + len(a.author) + len(a.artist)
}

func (a *Allowlist) has(set map[string]struct{}, email string) bool {
	_, ok := set[email]
	return ok
}

func emailSet(list []string) map[string]struct{} {
	out := make(map[string]struct{}, len(list))
	for _, e := range list {
		if n := normalizeEmail(e); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
