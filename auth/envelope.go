package auth

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/go-vocab-client/internal/envelope"
	"github.com/jrsteele09/go-vocab-client/users"
)

// Every response shape the API has been seen to use is recognised here and nowhere
// else. The rest of the package works with Session and users.Profile only.

var (
	tokenPaths = [][]string{
		{"data", "token", "accessToken"},
		{"token", "accessToken"},
		{"data", "accessToken"},
		{"accessToken"},
	}
	loginUserPaths = [][]string{
		{"data", "account"},
		{"data", "user"},
		{"account"},
		{"user"},
	}
	profilePaths = [][]string{
		{"data", "user"},
		{"data", "data", "user"},
		{"data", "data"},
		{"data"},
		{"user"},
	}
	googleURLPaths = [][]string{
		{"url"},
		{"data", "url"},
	}
)

// wireProfile accepts the id under any of the names the API uses and tolerates
// timestamps that are not RFC 3339.
type wireProfile struct {
	ID              string `json:"id"`
	MongoID         string `json:"_id"`
	UserID          string `json:"userId"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Role            string `json:"role"`
	IsEmailVerified bool   `json:"isEmailVerified"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func (w wireProfile) empty() bool {
	return w.ID == "" && w.MongoID == "" && w.UserID == "" && w.Email == "" && w.Username == ""
}

func (w wireProfile) profile() *users.Profile {
	p := &users.Profile{
		ID:              firstNonEmpty(w.ID, w.MongoID, w.UserID),
		Email:           w.Email,
		Username:        w.Username,
		IsEmailVerified: w.IsEmailVerified,
		CreatedAt:       parseTime(w.CreatedAt),
		UpdatedAt:       parseTime(w.UpdatedAt),
	}
	if role, ok := users.ParseRole(w.Role); ok {
		p.Role = role
	} else if w.Role != "" {
		p.Role = users.RoleType(strings.ToLower(w.Role))
	}
	return p
}

// parseSession reads a login or OAuth response. The user is optional.
func parseSession(raw []byte) (*Session, bool) {
	token, ok := envelope.FirstString(raw, tokenPaths...)
	if !ok {
		return nil, false
	}
	sess := &Session{AccessToken: token}
	for _, path := range loginUserPaths {
		if p, ok := decodeProfile(raw, path...); ok {
			sess.User = p
			break
		}
	}
	return sess, true
}

func parseAccessToken(raw []byte) (string, bool) {
	return envelope.FirstString(raw, tokenPaths...)
}

// parseProfile reads GET /users/me.
func parseProfile(raw []byte) (*users.Profile, bool) {
	for _, path := range profilePaths {
		if p, ok := decodeProfile(raw, path...); ok {
			return p, true
		}
	}
	return decodeProfile(raw)
}

func parseGoogleURL(raw []byte) (string, bool) {
	return envelope.FirstString(raw, googleURLPaths...)
}

func decodeProfile(raw []byte, path ...string) (*users.Profile, bool) {
	v, ok := envelope.Lookup(raw, path...)
	if !ok || !envelope.IsObject(v) {
		return nil, false
	}
	var w wireProfile
	if err := json.Unmarshal(v, &w); err != nil || w.empty() {
		return nil, false
	}
	return w.profile(), true
}

// firstFieldError returns the first field error of a 4xx body: errors[0] when errors is
// an array, or the alphabetically first key when it is an object.
func firstFieldError(body []byte) (field, message string, ok bool) {
	errsRaw, found := envelope.Lookup(body, "errors")
	if !found {
		return "", "", false
	}

	if envelope.IsArray(errsRaw) {
		message, ok = envelope.FirstString(errsRaw, []string{"0", "message"}, []string{"0", "msg"}, []string{"0"})
		field, _ = envelope.FirstString(errsRaw, []string{"0", "field"}, []string{"0", "path"}, []string{"0", "param"})
		return field, message, ok
	}

	if !envelope.IsObject(errsRaw) {
		return "", "", false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(errsRaw, &fields); err != nil || len(fields) == 0 {
		return "", "", false
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if msg, ok := envelope.FirstString(v, []string{"message"}, []string{"0"}); ok {
			return k, msg, true
		}
		var s string
		if json.Unmarshal(v, &s) == nil && s != "" {
			return k, s, true
		}
	}
	return "", "", false
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
