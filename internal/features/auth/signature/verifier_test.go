package signature

import (
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-reward-ledger/internal/features/auth/models"
)

const botToken = "123456:AAE-test-token"

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func widgetFields(authDate time.Time) map[string]string {
	return map[string]string{
		"id":         "987654321",
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"username":   "ada",
		"photo_url":  "https://t.me/i/userpic/320/ada.jpg",
		"auth_date":  strconv.FormatInt(authDate.Unix(), 10),
	}
}

func newVerifier() *Verifier {
	return NewVerifier(botToken, WithClock(func() time.Time { return fixedNow }))
}

func TestDataCheckString(t *testing.T) {
	got := DataCheckString(map[string]string{
		"username":  "ada",
		"hash":      "ignored",
		"auth_date": "1",
		"id":        "2",
	})
	assert.Equal(t, "auth_date=1\nid=2\nusername=ada", got)
}

func TestVerify_Widget(t *testing.T) {
	v := newVerifier()
	fields := widgetFields(fixedNow.Add(-time.Hour))
	hash := Sign(KindWidget, botToken, fields)

	claims, err := v.Verify(Payload{Kind: KindWidget, Fields: fields}, hash, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(987654321), claims.TelegramID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "Lovelace", claims.LastName)
	assert.True(t, claims.HasProfile())
	assert.Equal(t, fixedNow.Add(-time.Hour).Unix(), claims.AuthDate.Unix())
}

func TestVerify_EverySingleByteMutationFails(t *testing.T) {
	v := newVerifier()
	fields := widgetFields(fixedNow.Add(-time.Minute))
	hash := Sign(KindWidget, botToken, fields)
	p := Payload{Kind: KindWidget, Fields: fields}

	for i := 0; i < len(hash); i++ {
		for _, delta := range []byte{1, 0x20, 0x80} {
			mutated := []byte(hash)
			mutated[i] ^= delta
			_, err := v.Verify(p, string(mutated), 0)
			require.Truef(t, errors.Is(err, models.ErrSignatureMismatch), "byte %d delta %#x: %v", i, delta, err)
		}
	}
}

func TestVerify_FieldTamperingFails(t *testing.T) {
	v := newVerifier()
	fields := widgetFields(fixedNow.Add(-time.Minute))
	hash := Sign(KindWidget, botToken, fields)

	fields["id"] = "1"
	_, err := v.Verify(Payload{Kind: KindWidget, Fields: fields}, hash, 0)
	assert.ErrorIs(t, err, models.ErrSignatureMismatch)
}

func TestVerify_WrongShapeKeyFails(t *testing.T) {
	v := newVerifier()
	fields := widgetFields(fixedNow.Add(-time.Minute))
	hash := Sign(KindWidget, botToken, fields)

	_, err := v.Verify(Payload{Kind: KindWebApp, Fields: fields}, hash, 0)
	assert.ErrorIs(t, err, models.ErrSignatureMismatch)
}

func TestVerify_Stale(t *testing.T) {
	tests := []struct {
		name    string
		age     time.Duration
		window  time.Duration
		wantErr error
	}{
		{name: "default window fresh", age: 23 * time.Hour, window: 0},
		{name: "default window stale", age: 25 * time.Hour, window: 0, wantErr: models.ErrStale},
		{name: "strict window stale", age: 10 * time.Minute, window: 5 * time.Minute, wantErr: models.ErrStale},
		{name: "strict window fresh", age: time.Minute, window: 5 * time.Minute},
		{name: "exactly at window", age: 5 * time.Minute, window: 5 * time.Minute},
	}

	v := newVerifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := widgetFields(fixedNow.Add(-tt.age))
			hash := Sign(KindWidget, botToken, fields)

			_, err := v.Verify(Payload{Kind: KindWidget, Fields: fields}, hash, tt.window)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerify_MalformedAuthDate(t *testing.T) {
	v := newVerifier()
	fields := widgetFields(fixedNow)
	fields["auth_date"] = "yesterday"
	hash := Sign(KindWidget, botToken, fields)

	_, err := v.Verify(Payload{Kind: KindWidget, Fields: fields}, hash, 0)
	assert.ErrorIs(t, err, models.ErrMalformedPayload)
}

func TestVerify_MissingHash(t *testing.T) {
	v := newVerifier()
	_, err := v.Verify(Payload{Kind: KindWidget, Fields: widgetFields(fixedNow)}, "", 0)
	assert.ErrorIs(t, err, models.ErrMalformedPayload)
}

func TestVerify_WebApp(t *testing.T) {
	v := newVerifier()
	fields := map[string]string{
		"query_id":    "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":        `{"id":987654321,"first_name":"Ada","last_name":"","username":"ada","language_code":"en","is_premium":true}`,
		"auth_date":   strconv.FormatInt(fixedNow.Add(-time.Minute).Unix(), 10),
		"start_param": "ref_42",
	}
	hash := Sign(KindWebApp, botToken, fields)

	values := url.Values{}
	for k, val := range fields {
		values.Set(k, val)
	}
	values.Set("hash", hash)

	p, gotHash, err := ParseWebAppInitData(values.Encode())
	require.NoError(t, err)
	assert.Equal(t, hash, gotHash)
	_, hasHash := p.Fields["hash"]
	assert.False(t, hasHash)

	claims, err := v.Verify(p, gotHash, 0)
	require.NoError(t, err)
	assert.Equal(t, KindWebApp, claims.Kind)
	assert.Equal(t, int64(987654321), claims.TelegramID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "en", claims.LanguageCode)
	assert.True(t, claims.IsPremium)
	assert.Equal(t, "ref_42", claims.StartParam)
}

func TestVerify_WebAppUserBlobIsOpaque(t *testing.T) {
	v := newVerifier()
	fields := map[string]string{
		"user":      `{"id":987654321,"first_name":"Ada"}`,
		"auth_date": strconv.FormatInt(fixedNow.Unix(), 10),
	}
	hash := Sign(KindWebApp, botToken, fields)

	// same JSON value, different whitespace
	fields["user"] = `{"id":987654321, "first_name":"Ada"}`
	_, err := v.Verify(Payload{Kind: KindWebApp, Fields: fields}, hash, 0)
	assert.ErrorIs(t, err, models.ErrSignatureMismatch)
}

func TestParseWidgetQuery(t *testing.T) {
	fields := widgetFields(fixedNow)
	q := url.Values{}
	for k, val := range fields {
		q.Set(k, val)
	}
	q.Set("hash", Sign(KindWidget, botToken, fields))

	p, hash := ParseWidgetQuery(q)
	claims, err := newVerifier().Verify(p, hash, 0)
	require.NoError(t, err)
	assert.Equal(t, "Ada", claims.FirstName)
}
