package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxAge is the freshness window applied when callers pass maxAge <= 0.
const DefaultMaxAge = 24 * time.Hour

const webAppDataKey = "WebAppData"

type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	PhotoURL     string `json:"photo_url"`
	IsPremium    bool   `json:"is_premium"`
}

var (
	ErrNoUserData  = errors.New("telegram init data carries no user")
	ErrInvalidUser = errors.New("telegram init data user is malformed")
)

// Validate reports whether raw carries a hash produced by the bot identified
// by botToken. It never returns an error: any parse failure is a false.
// Freshness is not checked here, see IsExpired.
func Validate(raw string, botToken string) bool {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return false
	}

	hash := values.Get("hash")
	if hash == "" {
		return false
	}
	values.Del("hash")

	expected := Sign(values, botToken)
	return hmac.Equal([]byte(expected), []byte(hash))
}

// DataCheckString renders values the way Telegram signs them: key=value lines
// sorted by key in byte order and joined with "\n". Repeated keys keep their
// relative order. Any "hash" entry in values is included, so callers remove it
// first.
func DataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}

// SecretKey derives the WebApp signing key. The bot token is the HMAC key and
// the constant "WebAppData" is the message.
func SecretKey(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(botToken))
	_, _ = mac.Write([]byte(webAppDataKey))
	return mac.Sum(nil)
}

// Sign returns the lowercase hex hash Telegram would attach to values.
func Sign(values url.Values, botToken string) string {
	mac := hmac.New(sha256.New, SecretKey(botToken))
	_, _ = mac.Write([]byte(DataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Parse decodes raw without checking its signature. The last value wins for
// repeated keys. Malformed pairs are skipped, well-formed ones are kept.
func Parse(raw string) map[string]string {
	values, _ := url.ParseQuery(raw)
	out := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			out[k] = vs[len(vs)-1]
		}
	}
	return out
}

// GetAuthDate returns auth_date as Unix seconds, or 0 when it is missing or
// not a base-10 integer.
func GetAuthDate(raw string) int64 {
	values, _ := url.ParseQuery(raw)
	sec, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return 0
	}
	return sec
}

func IsExpired(raw string, maxAge time.Duration) bool {
	return IsExpiredAt(raw, maxAge, time.Now())
}

// IsExpiredAt reports whether more than maxAge whole seconds elapsed between
// auth_date and now. A payload without auth_date is always expired.
func IsExpiredAt(raw string, maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return now.Unix()-GetAuthDate(raw) > int64(maxAge/time.Second)
}

// ParseUser decodes the user record embedded in raw. It does not check the
// signature and must only be called on data that passed Validate. A repeated
// user key resolves to its first value, like auth_date and hash.
func ParseUser(raw string) (User, error) {
	values, _ := url.ParseQuery(raw)
	userRaw := values.Get("user")
	if userRaw == "" {
		return User{}, ErrNoUserData
	}

	var user User
	if err := json.Unmarshal([]byte(userRaw), &user); err != nil {
		return User{}, ErrInvalidUser
	}
	if user.ID == 0 {
		return User{}, ErrInvalidUser
	}
	return user, nil
}
