package admin

import (
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-vocab-client/category"
	"github.com/jrsteele09/go-vocab-client/internal/envelope"
	"github.com/jrsteele09/go-vocab-client/users"
	"github.com/jrsteele09/go-vocab-client/vocabulary"
)

// User is an account as seen from the admin area.
type User struct {
	users.Profile
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	VocabularyCount int        `json:"vocabularyCount,omitempty"`
	Status          string     `json:"status,omitempty"`
}

// UnmarshalJSON takes the id from userId, id or _id, whichever the API sent.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if id, ok := envelope.FirstString(data, []string{"userId"}, []string{"id"}, []string{"_id"}); ok {
		p.ID = id
	}
	*u = User(p)
	return nil
}

type Vocabulary struct {
	vocabulary.Vocabulary
	AuthorUsername string `json:"authorUsername,omitempty"`
	CreatedBy      string `json:"createdBy,omitempty"`
}

type Category struct {
	category.Category
	AuthorUsername string `json:"authorUsername,omitempty"`
}

// DashboardStats are the headline counts for the admin dashboard.
type DashboardStats struct {
	TotalUsers        int `json:"totalUsers"`
	TotalVocabularies int `json:"totalVocabularies"`
	TotalCategories   int `json:"totalCategories"`
	RecentActivity    int `json:"recentActivity"`

	// Computed is set when the counts were derived from the list endpoints.
	Computed bool `json:"-"`
}

// UserFilter narrows the user list. Empty fields and "all" are ignored.
type UserFilter struct {
	Search string
	Role   string
}

// VocabularyFilter narrows the vocabulary list. Empty fields and "all" are ignored.
type VocabularyFilter struct {
	Search   string
	Category string
}
