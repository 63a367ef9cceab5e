package security

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<script>alert('x')</script>", "&lt;script&gt;alert(&#x27;x&#x27;)&lt;&#x2F;script&gt;"},
		{`a & "b"`, "a &amp; &quot;b&quot;"},
		{"한국어 텍스트", "한국어 텍스트"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeInput(tt.in))
		})
	}
}

func TestMaskSensitive(t *testing.T) {
	in := map[string]any{
		"apiKey":    "sk-1234567890",
		"password":  "abc",
		"sessionId": "",
		"userId":    "user-1",
	}

	got := MaskSensitive(in, SensitiveFields)

	assert.Equal(t, "sk*********90", got["apiKey"])
	assert.Equal(t, "***", got["password"])
	assert.Equal(t, "", got["sessionId"])
	assert.Equal(t, "user-1", got["userId"])
	assert.Equal(t, "sk-1234567890", in["apiKey"], "input must not be modified")
}

func TestMaskValueBoundary(t *testing.T) {
	assert.Equal(t, "******", MaskValue("123456"))
	assert.Equal(t, "12***67", MaskValue("1234567"))
}

func TestSignRequest(t *testing.T) {
	body := []byte(`{"prompt":"hi"}`)

	sig := SignRequest(body, "secret")
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, SignRequest(body, "secret"))
	assert.NotEqual(t, sig, SignRequest(body, "other"))
	assert.True(t, VerifySignature(body, "secret", sig))
	assert.False(t, VerifySignature([]byte(`{"prompt":"ho"}`), "secret", sig))
	assert.False(t, VerifySignature(body, "secret", "not-hex"))
}

func TestEncryptDecryptAPIKey(t *testing.T) {
	enc, err := EncryptAPIKey("sk-test-key", "passphrase")
	require.NoError(t, err)
	assert.NotContains(t, enc, "sk-test-key")

	dec, err := DecryptAPIKey(enc, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", dec)

	_, err = DecryptAPIKey(enc, "wrong")
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = DecryptAPIKey("!!!", "passphrase")
	assert.Error(t, err)

	_, err = EncryptAPIKey("sk", "")
	assert.Error(t, err)
}

func TestEncryptAPIKeyUsesFreshSalt(t *testing.T) {
	a, err := EncryptAPIKey("same", "pw")
	require.NoError(t, err)
	b, err := EncryptAPIKey("same", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func signed(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestValidateSessionToken(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	enc := base64.RawURLEncoding

	rs256 := enc.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(`{"sub":"u"}`)) + ".c2ln"

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid hs256", signed(t, jwt.SigningMethodHS256, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), true},
		{"no expiry", signed(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u"}), true},
		{"rs256 header", rs256, true},
		{"expired", signed(t, jwt.SigningMethodHS256, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), false},
		{"unsupported alg", signed(t, jwt.SigningMethodHS512, jwt.MapClaims{}), false},
		{"two parts", "a.b", false},
		{"garbage", "not.a.token", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSessionToken(tt.token, now))
		})
	}
}

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"https://github.com", true},
		{"https://gist.github.com", true},
		{"http://github.com", false},
		{"http://x.github.com", false},
		{"HTTPS://GitHub.com", true},
		{"https://evilgithub.com", false},
		{"https://intranet.nonghyup.com", true},
		{"http://nhbank.com", true},
		{"https://example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowedOrigin(tt.origin, DefaultAllowedOrigins))
		})
	}
}
