package directory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/dirbot/internal/domain"
)

// wireUser is the admin API user object. Older homeservers encode the
// boolean flags as 0/1.
type wireUser struct {
	Name        string   `json:"name"`
	DisplayName *string  `json:"displayname"`
	Admin       flexBool `json:"admin"`
	Deactivated flexBool `json:"deactivated"`
	UserType    *string  `json:"user_type"`
	CreationTS  *int64   `json:"creation_ts"`
	LastSeenTS  *int64   `json:"last_seen_ts"`
}

type wireUserList struct {
	Users *[]wireUser `json:"users"`
	Total *int        `json:"total"`
}

func (w wireUser) account() (domain.Account, error) {
	id := strings.TrimSpace(w.Name)
	if id == "" {
		return domain.Account{}, errors.New("user without name")
	}
	acc := domain.Account{
		ID:          id,
		DisplayName: nonEmpty(w.DisplayName),
		Deactivated: bool(w.Deactivated),
		IsAdmin:     bool(w.Admin),
		AccountType: nonEmpty(w.UserType),
	}
	if w.CreationTS != nil && *w.CreationTS > 0 {
		t := fromTimestamp(*w.CreationTS)
		acc.CreatedAt = &t
	}
	if w.LastSeenTS != nil && *w.LastSeenTS > 0 {
		t := fromTimestamp(*w.LastSeenTS)
		acc.LastSeenAt = &t
	}
	return acc, nil
}

func decodeUserList(op string, body []byte) (domain.Page, error) {
	var list wireUserList
	if err := json.Unmarshal(body, &list); err != nil {
		return domain.Page{}, malformed(op, err)
	}
	if list.Users == nil {
		return domain.Page{}, malformed(op, errors.New(`missing "users"`))
	}
	accounts := make([]domain.Account, 0, len(*list.Users))
	for i, w := range *list.Users {
		acc, err := w.account()
		if err != nil {
			return domain.Page{}, malformed(op, fmt.Errorf("users[%d]: %w", i, err))
		}
		accounts = append(accounts, acc)
	}
	total := len(accounts)
	if list.Total != nil && *list.Total >= total {
		total = *list.Total
	}
	return domain.Page{Accounts: accounts, Total: total}, nil
}

// fromTimestamp accepts both seconds and milliseconds since the epoch;
// the user list reports milliseconds while the user detail endpoint
// reports seconds.
func fromTimestamp(v int64) time.Time {
	if v < 100_000_000_000 {
		return time.Unix(v, 0).UTC()
	}
	return time.UnixMilli(v).UTC()
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", "1":
		*b = true
	case "false", "0", "null", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}
