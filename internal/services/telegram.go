package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInitDataMissingHash = errors.New("init data has no hash")
	ErrInitDataBadHash     = errors.New("init data hash mismatch")
	ErrInitDataExpired     = errors.New("init data expired")
	ErrInitDataNoUser      = errors.New("init data has no user")
)

// TelegramUser is the "user" object a Mini App passes in its init data.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// VerifyTelegramInitData checks the init data signature with the bot token
// and returns the embedded user. maxAge <= 0 disables the freshness check.
func VerifyTelegramInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*TelegramUser, error) {
	values, err := url.ParseQuery(strings.TrimSpace(initData))
	if err != nil {
		return nil, fmt.Errorf("parse init data: %w", err)
	}
	received := values.Get("hash")
	if received == "" {
		return nil, ErrInitDataMissingHash
	}
	values.Del("hash")

	expected := SignTelegramInitData(values, botToken)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(received))) {
		return nil, ErrInitDataBadHash
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil || now.Sub(time.Unix(authDate, 0)) > maxAge {
			return nil, ErrInitDataExpired
		}
	}

	raw := values.Get("user")
	if raw == "" {
		return nil, ErrInitDataNoUser
	}
	var tu TelegramUser
	if err := json.Unmarshal([]byte(raw), &tu); err != nil {
		return nil, fmt.Errorf("decode init data user: %w", err)
	}
	if tu.ID == 0 {
		return nil, ErrInitDataNoUser
	}
	return &tu, nil
}

// SignTelegramInitData computes the hex hash Telegram attaches to init data:
// HMAC-SHA256 of the sorted "key=value" lines, keyed by HMAC("WebAppData", botToken).
func SignTelegramInitData(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
