package firestore

import (
	"time"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
)

// value is a Firestore typed value. Only the kinds a profile uses are modeled.
type value struct {
	StringValue    *string `json:"stringValue,omitempty"`
	BooleanValue   *bool   `json:"booleanValue,omitempty"`
	TimestampValue *string `json:"timestampValue,omitempty"`
	NullValue      *string `json:"nullValue,omitempty"`
}

type document struct {
	Name   string           `json:"name,omitempty"`
	Fields map[string]value `json:"fields"`
}

// Field names match the documents written by the existing site.
const (
	fieldFirstName = "firstName"
	fieldLastName  = "lastName"
	fieldEmail     = "email"
	fieldUserType  = "userType"
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
	fieldIsActive  = "isActive"
)

func str(s string) value { return value{StringValue: &s} }
func boolean(b bool) value { return value{BooleanValue: &b} }
func timestamp(t time.Time) value {
	s := t.UTC().Format(time.RFC3339Nano)
	return value{TimestampValue: &s}
}

func encodeProfile(p domainauth.Profile) document {
	return document{Fields: map[string]value{
		fieldFirstName: str(p.FirstName),
		fieldLastName:  str(p.LastName),
		fieldEmail:     str(p.Email),
		fieldUserType:  str(string(p.Role)),
		fieldCreatedAt: timestamp(p.CreatedAt),
		fieldIsActive:  boolean(p.IsActive),
	}}
}

// encodeUpdate returns the partial document and the field mask for u.
func encodeUpdate(u domainauth.ProfileUpdate, now time.Time) (document, []string) {
	doc := document{Fields: map[string]value{}}
	var paths []string
	set := func(name string, v value) {
		doc.Fields[name] = v
		paths = append(paths, name)
	}
	if u.FirstName != nil {
		set(fieldFirstName, str(*u.FirstName))
	}
	if u.LastName != nil {
		set(fieldLastName, str(*u.LastName))
	}
	if u.Role != nil {
		set(fieldUserType, str(string(*u.Role)))
	}
	if u.IsActive != nil {
		set(fieldIsActive, boolean(*u.IsActive))
	}
	set(fieldUpdatedAt, timestamp(now))
	return doc, paths
}

func (d document) str(name string) string {
	if v, ok := d.Fields[name]; ok && v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}

func (d document) time(name string) time.Time {
	v, ok := d.Fields[name]
	if !ok || v.TimestampValue == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (d document) profile() domainauth.Profile {
	p := domainauth.Profile{
		FirstName: d.str(fieldFirstName),
		LastName:  d.str(fieldLastName),
		Email:     d.str(fieldEmail),
		Role:      domainauth.Role(d.str(fieldUserType)),
		CreatedAt: d.time(fieldCreatedAt),
		UpdatedAt: d.time(fieldUpdatedAt),
	}
	if v, ok := d.Fields[fieldIsActive]; ok && v.BooleanValue != nil {
		p.IsActive = *v.BooleanValue
	}
	return p
}
