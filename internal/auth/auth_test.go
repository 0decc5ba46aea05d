package auth

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"HoldemTable/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/auth/nonce", h.Nonce)
	r.POST("/auth/login", h.Login)
	return r
}

func fetchNonce(t *testing.T, r http.Handler) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/nonce", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body["nonce"], 32)
	assert.Equal(t, LoginMessage(body["nonce"]), body["message"])
	return body["nonce"]
}

// sign produces a personal_sign style signature (v = 27/28).
func sign(t *testing.T, msg string) (address, sig string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	raw, err := crypto.Sign(personalHash(msg), key)
	require.NoError(t, err)
	raw[crypto.RecoveryIDOffset] += 27
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), "0x" + hex.EncodeToString(raw)
}

func login(r http.Handler, req LoginRequest) *httptest.ResponseRecorder {
	body, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	return w
}

func TestLogin_Success(t *testing.T) {
	r := newRouter(NewHandler(NewMemoryNonceStore(), secret, utils.Discard()))
	nonce := fetchNonce(t, r)
	addr, sig := sign(t, LoginMessage(nonce))

	w := login(r, LoginRequest{Address: addr, Signature: sig, Nonce: nonce})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(body["jwt"], &claims, func(*jwt.Token) (interface{}, error) { return secret, nil })
	require.NoError(t, err)
	assert.Equal(t, addr, claims.Subject)

	// a nonce is single use
	w = login(r, LoginRequest{Address: addr, Signature: sig, Nonce: nonce})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_Failures(t *testing.T) {
	r := newRouter(NewHandler(NewMemoryNonceStore(), secret, utils.Discard()))

	w := login(r, LoginRequest{Address: "0x1", Signature: "0x00", Nonce: "unknown"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	nonce := fetchNonce(t, r)
	_, sig := sign(t, LoginMessage(nonce))
	w = login(r, LoginRequest{Address: "0x000000000000000000000000000000000000dEaD", Signature: sig, Nonce: nonce})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	nonce = fetchNonce(t, r)
	w = login(r, LoginRequest{Address: "0x1", Signature: "0xabcd", Nonce: nonce})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecoverAddress(t *testing.T) {
	addr, sig := sign(t, "hello")
	got, err := RecoverAddress("hello", sig)
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	other, err := RecoverAddress("tampered", sig)
	if err == nil {
		assert.NotEqual(t, addr, other)
	}
	_, err = RecoverAddress("hello", "zz")
	assert.Error(t, err)
}

func TestMemoryNonceStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &memNonces{now: func() time.Time { return now }, expires: map[string]time.Time{}}

	require.NoError(t, s.Put(ctx, "n1", time.Minute))
	now = now.Add(2 * time.Minute)
	ok, err := s.Consume(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisNonceStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	s := NewRedisNonceStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	require.NoError(t, s.Put(ctx, "n1", time.Minute))
	assert.True(t, mr.Exists("auth:nonce:n1"))

	ok, err := s.Consume(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Consume(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "n2", time.Minute))
	mr.FastForward(2 * time.Minute)
	ok, err = s.Consume(ctx, "n2")
	require.NoError(t, err)
	assert.False(t, ok)
}
