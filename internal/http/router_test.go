package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "giveaway-bot/internal/common/errors"
	mw "giveaway-bot/internal/common/middleware"
	"giveaway-bot/internal/domain/giveaway"
	giveawaysvc "giveaway-bot/internal/service/giveaway"
)

const testToken = "123456:test-token"

type fakeService struct {
	giveaways map[string]giveaway.Giveaway
	order     []string
	created   []giveawaysvc.CreateInput
	joinErr   error
}

func newFakeService(gs ...giveaway.Giveaway) *fakeService {
	s := &fakeService{giveaways: map[string]giveaway.Giveaway{}}
	for _, g := range gs {
		s.giveaways[g.ID] = g
		s.order = append(s.order, g.ID)
	}
	return s
}

func (s *fakeService) Active() []giveaway.Giveaway {
	out := make([]giveaway.Giveaway, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.giveaways[id])
	}
	return out
}

func (s *fakeService) Get(id string) (giveaway.Giveaway, error) {
	g, ok := s.giveaways[id]
	if !ok {
		return giveaway.Giveaway{}, apperrors.NewGiveawayNotFoundError(id)
	}
	return g, nil
}

func (s *fakeService) Join(_ context.Context, id, userID string) (giveaway.Giveaway, error) {
	if s.joinErr != nil {
		return giveaway.Giveaway{}, s.joinErr
	}
	g, ok := s.giveaways[id]
	if !ok {
		return giveaway.Giveaway{}, apperrors.NewGiveawayNotFoundError(id)
	}
	if g.HasParticipant(userID) {
		return giveaway.Giveaway{}, apperrors.NewAlreadyJoinedError(id, userID)
	}
	g.Participants = append(g.Participants, userID)
	s.giveaways[id] = g
	return g, nil
}

func (s *fakeService) Create(_ context.Context, in giveawaysvc.CreateInput) (giveaway.Giveaway, error) {
	s.created = append(s.created, in)
	if in.Item == "" {
		return giveaway.Giveaway{}, apperrors.NewValidationError("item", "is required")
	}
	return giveaway.Giveaway{ID: "giveaway-9", Item: in.Item, Quantity: in.Quantity, DurationMs: in.DurationMs, MessageID: "1"}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func signInitData(t *testing.T, userID int64) string {
	t.Helper()
	values := map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":` + strconv.FormatInt(userID, 10) + `,"first_name":"Ann"}`,
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + values[k]
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(testToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))

	q := url.Values{}
	for k, v := range values {
		q.Set(k, v)
	}
	q.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return q.Encode()
}

func newTestRouter(svc GiveawayService, store Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(Options{
		Giveaways:   svc,
		Store:       store,
		BotToken:    testToken,
		InitDataTTL: time.Hour,
		Origins:     "https://app.example",
		IsAdmin:     func(id int64) bool { return id == 1 },
		Debug:       true,
		Logger:      zerolog.Nop(),
	})
}

func do(t *testing.T, r http.Handler, method, path string, userID int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set(mw.InitDataHeader, signInitData(t, userID))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorCode {
	t.Helper()
	var resp mw.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func sample() giveaway.Giveaway {
	return giveaway.Giveaway{
		ID:              "giveaway-1",
		Item:            "Nitro",
		Quantity:        2,
		WinnerCount:     1,
		DurationMs:      time.Hour.Milliseconds(),
		EndTimeMs:       time.Date(2025, 7, 1, 13, 0, 0, 0, time.UTC).UnixMilli(),
		Participants:    []string{"5"},
		MinParticipants: 3,
		ChannelID:       "-100",
		MessageID:       "77",
	}
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(newFakeService(), fakePinger{})

	for _, path := range []string{"/health", "/live", "/ready"} {
		w := do(t, r, http.MethodGet, path, 0, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := do(t, r, http.MethodGet, "/metrics", 0, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestReadyReportsStoreFailure(t *testing.T) {
	r := newTestRouter(newFakeService(), fakePinger{err: errors.New("disk gone")})

	w := do(t, r, http.MethodGet, "/ready", 0, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.ErrCodePersistence, errorCode(t, w))
}

func TestAPIRequiresInitData(t *testing.T) {
	r := newTestRouter(newFakeService(sample()), nil)

	w := do(t, r, http.MethodGet, "/api/v1/giveaways", 0, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, errorCode(t, w))
}

func TestListAndGet(t *testing.T) {
	unpublished := sample()
	unpublished.ID, unpublished.MessageID = "giveaway-2", ""
	r := newTestRouter(newFakeService(sample(), unpublished), nil)

	w := do(t, r, http.MethodGet, "/api/v1/giveaways", 5, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Giveaways []giveawayResponse `json:"giveaways"`
		Total     int                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	got := list.Giveaways[0]
	assert.Equal(t, "giveaway-1", got.ID)
	assert.Equal(t, "Nitro ×2", got.Title)
	assert.Equal(t, "1h 0m", got.Duration)
	assert.Equal(t, 1, got.Participants)
	assert.True(t, got.Joined)

	w = do(t, r, http.MethodGet, "/api/v1/giveaways/giveaway-1", 6, "")
	require.Equal(t, http.StatusOK, w.Code)
	var one giveawayResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.False(t, one.Joined)
	assert.Equal(t, time.Date(2025, 7, 1, 13, 0, 0, 0, time.UTC), one.EndsAt)

	w = do(t, r, http.MethodGet, "/api/v1/giveaways/giveaway-404", 6, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrCodeGiveawayNotFound, errorCode(t, w))
}

func TestJoin(t *testing.T) {
	svc := newFakeService(sample())
	r := newTestRouter(svc, nil)

	w := do(t, r, http.MethodPost, "/api/v1/giveaways/giveaway-1/join", 8, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp giveawayResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Joined)
	assert.Equal(t, 2, resp.Participants)

	w = do(t, r, http.MethodPost, "/api/v1/giveaways/giveaway-1/join", 8, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ErrCodeAlreadyJoined, errorCode(t, w))

	w = do(t, r, http.MethodPost, "/api/v1/giveaways/giveaway-7/join", 8, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateIsAdminOnly(t *testing.T) {
	svc := newFakeService()
	r := newTestRouter(svc, nil)
	body := `{"item":"Nitro","quantity":1,"winners":1,"duration":"1h 30m","channel_id":"-100"}`

	w := do(t, r, http.MethodPost, "/api/v1/giveaways", 2, body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, svc.created)

	w = do(t, r, http.MethodPost, "/api/v1/giveaways", 1, body)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, svc.created, 1)
	assert.Equal(t, int64(90*60*1000), svc.created[0].DurationMs)
	assert.Equal(t, "1", svc.created[0].CreatedBy)
	assert.Equal(t, "-100", svc.created[0].ChannelID)

	w = do(t, r, http.MethodPost, "/api/v1/giveaways", 1, `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrCodeValidation, errorCode(t, w))

	w = do(t, r, http.MethodPost, "/api/v1/giveaways", 1, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORS(t *testing.T) {
	r := newTestRouter(newFakeService(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/giveaways", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	cfg := corsConfig("*")
	assert.True(t, cfg.AllowAllOrigins)
	cfg = corsConfig(" https://a.example , https://b.example ")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowOrigins)
}
