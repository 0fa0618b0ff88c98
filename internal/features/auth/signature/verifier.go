// Package signature verifies Telegram login widget and Mini App payloads.
//
// Both shapes are reduced to the same data-check string: every field except
// hash, sorted by name, rendered as name=value and joined with "\n". The
// Mini App user field is a JSON blob and is hashed verbatim. The HMAC key
// differs per shape: SHA256(bot token) for the widget and
// HMAC_SHA256("WebAppData", bot token) for Mini Apps.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"tg-reward-ledger/internal/features/auth/models"
)

const DefaultWindow = 24 * time.Hour

type Kind int

const (
	KindWidget Kind = iota
	KindWebApp
)

func (k Kind) String() string {
	if k == KindWebApp {
		return "webapp"
	}
	return "widget"
}

// Payload is an unverified set of fields. Hash is carried separately.
type Payload struct {
	Kind   Kind
	Fields map[string]string
}

// VerifiedClaims is what a payload asserts once its signature checks out.
type VerifiedClaims struct {
	Kind         Kind
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	PhotoURL     string
	LanguageCode string
	IsPremium    bool
	StartParam   string
	AuthDate     time.Time
}

// HasProfile reports whether any optional profile field was supplied.
func (c *VerifiedClaims) HasProfile() bool {
	return c.Username != "" || c.LastName != "" || c.PhotoURL != ""
}

type Verifier struct {
	widgetKey []byte
	webAppKey []byte
	window    time.Duration
	now       func() time.Time
}

type Option func(*Verifier)

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithDefaultWindow sets the window used when Verify is called with zero.
func WithDefaultWindow(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.window = d
		}
	}
}

func NewVerifier(botToken string, opts ...Option) *Verifier {
	v := &Verifier{
		widgetKey: secretKey(KindWidget, botToken),
		webAppKey: secretKey(KindWebApp, botToken),
		window:    DefaultWindow,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks providedHash against the payload and the freshness window.
// A zero window selects the verifier's default.
func (v *Verifier) Verify(p Payload, providedHash string, window time.Duration) (*VerifiedClaims, error) {
	if providedHash == "" || len(p.Fields) == 0 {
		return nil, fmt.Errorf("%w: missing hash or fields", models.ErrMalformedPayload)
	}

	key := v.widgetKey
	if p.Kind == KindWebApp {
		key = v.webAppKey
	}
	expected := computeHash(key, DataCheckString(p.Fields))
	if !hmac.Equal([]byte(expected), []byte(providedHash)) {
		return nil, models.ErrSignatureMismatch
	}

	authUnix, err := strconv.ParseInt(p.Fields["auth_date"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: auth_date", models.ErrMalformedPayload)
	}
	authDate := time.Unix(authUnix, 0)

	if window <= 0 {
		window = v.window
	}
	if v.now().Sub(authDate) > window {
		return nil, models.ErrStale
	}

	if p.Kind == KindWebApp {
		return webAppClaims(p.Fields, authDate)
	}
	return widgetClaims(p.Fields, authDate)
}

func widgetClaims(fields map[string]string, authDate time.Time) (*VerifiedClaims, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("%w: id", models.ErrMalformedPayload)
	}
	return &VerifiedClaims{
		Kind:       KindWidget,
		TelegramID: id,
		Username:   fields["username"],
		FirstName:  fields["first_name"],
		LastName:   fields["last_name"],
		PhotoURL:   fields["photo_url"],
		AuthDate:   authDate,
	}, nil
}

func webAppClaims(fields map[string]string, authDate time.Time) (*VerifiedClaims, error) {
	values := url.Values{}
	for k, val := range fields {
		values.Set(k, val)
	}
	parsed, err := initdata.Parse(values.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	if parsed.User.ID == 0 {
		return nil, fmt.Errorf("%w: user", models.ErrMalformedPayload)
	}
	return &VerifiedClaims{
		Kind:         KindWebApp,
		TelegramID:   parsed.User.ID,
		Username:     parsed.User.Username,
		FirstName:    parsed.User.FirstName,
		LastName:     parsed.User.LastName,
		PhotoURL:     parsed.User.PhotoURL,
		LanguageCode: parsed.User.LanguageCode,
		IsPremium:    parsed.User.IsPremium,
		StartParam:   fields["start_param"],
		AuthDate:     authDate,
	}, nil
}

// DataCheckString renders fields in canonical order, skipping hash.
func DataCheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

// Sign produces the hash Telegram would attach to fields.
func Sign(kind Kind, botToken string, fields map[string]string) string {
	return computeHash(secretKey(kind, botToken), DataCheckString(fields))
}

func secretKey(kind Kind, botToken string) []byte {
	if kind == KindWebApp {
		mac := hmac.New(sha256.New, []byte("WebAppData"))
		mac.Write([]byte(botToken))
		return mac.Sum(nil)
	}
	sum := sha256.Sum256([]byte(botToken))
	return sum[:]
}

func computeHash(key []byte, dataCheck string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(dataCheck))
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseWidgetQuery reads a login widget redirect query.
func ParseWidgetQuery(q url.Values) (Payload, string) {
	fields := make(map[string]string, len(q))
	for k := range q {
		if k == "hash" {
			continue
		}
		fields[k] = q.Get(k)
	}
	return Payload{Kind: KindWidget, Fields: fields}, q.Get("hash")
}

// ParseWebAppInitData reads the raw Telegram.WebApp.initData string.
func ParseWebAppInitData(raw string) (Payload, string, error) {
	q, err := url.ParseQuery(raw)
	if err != nil {
		return Payload{}, "", fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	fields := make(map[string]string, len(q))
	for k := range q {
		if k == "hash" {
			continue
		}
		fields[k] = q.Get(k)
	}
	return Payload{Kind: KindWebApp, Fields: fields}, q.Get("hash"), nil
}
