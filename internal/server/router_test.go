package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mhalushka/rolodex/internal/auth"
	"github.com/mhalushka/rolodex/internal/config"
	"github.com/mhalushka/rolodex/internal/contactchannels"
	"github.com/mhalushka/rolodex/internal/models"
	"github.com/mhalushka/rolodex/internal/ratelimit"
)

type memUserStore struct {
	byEmail map[string]*models.User
	nextID  uint
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byEmail: make(map[string]*models.User), nextID: 1}
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (s *memUserStore) GetByEmailFresh(ctx context.Context, email string) (*models.User, error) {
	return s.GetByEmail(ctx, email)
}

func (s *memUserStore) Create(_ context.Context, user *models.User) error {
	if _, ok := s.byEmail[user.Email]; ok {
		return gorm.ErrDuplicatedKey
	}
	user.ID = s.nextID
	s.nextID++
	user.CreatedAt = time.Now()
	copied := *user
	s.byEmail[user.Email] = &copied
	return nil
}

func (s *memUserStore) UpdateRefreshToken(_ context.Context, email string, token *string) error {
	if u, ok := s.byEmail[email]; ok {
		u.RefreshToken = token
	}
	return nil
}

func (s *memUserStore) UpdateAvatar(_ context.Context, email, avatarURL string) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	u.Avatar = &avatarURL
	copied := *u
	return &copied, nil
}

func (s *memUserStore) ConfirmEmail(_ context.Context, email string) error {
	if u, ok := s.byEmail[email]; ok {
		u.Confirmed = true
	}
	return nil
}

func (s *memUserStore) Delete(_ context.Context, email string) error {
	delete(s.byEmail, email)
	return nil
}

type memContacts struct {
	rows   []*models.Contact
	nextID uint
}

func newMemContacts() *memContacts { return &memContacts{nextID: 1} }

func (s *memContacts) List(_ context.Context, userID uint, _, _, _ string) ([]models.Contact, error) {
	out := make([]models.Contact, 0)
	for _, row := range s.rows {
		if row.CreatedBy == userID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *memContacts) Birthdays(context.Context, uint, int) ([]models.Contact, error) {
	return make([]models.Contact, 0), nil
}

func (s *memContacts) Get(_ context.Context, userID, contactID uint) (*models.Contact, error) {
	for _, row := range s.rows {
		if row.ID == contactID && row.CreatedBy == userID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memContacts) Create(_ context.Context, contact *models.Contact) error {
	contact.ID = s.nextID
	s.nextID++
	copied := *contact
	s.rows = append(s.rows, &copied)
	return nil
}

func (s *memContacts) Update(_ context.Context, userID, contactID uint, changes *models.Contact) (*models.Contact, error) {
	for _, row := range s.rows {
		if row.ID == contactID && row.CreatedBy == userID {
			row.FirstName = changes.FirstName
			row.LastName = changes.LastName
			row.Birthdate = changes.Birthdate
			row.Gender = changes.Gender
			row.Persuasion = changes.Persuasion
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memContacts) Delete(_ context.Context, userID, contactID uint) (*models.Contact, error) {
	for i, row := range s.rows {
		if row.ID == contactID && row.CreatedBy == userID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return row, nil
		}
	}
	return nil, nil
}

type memChannels struct {
	rows   []*models.Channel
	nextID uint
}

func newMemChannels() *memChannels { return &memChannels{nextID: 1} }

func (s *memChannels) List(context.Context) ([]models.Channel, error) {
	out := make([]models.Channel, 0)
	for _, row := range s.rows {
		out = append(out, *row)
	}
	return out, nil
}

func (s *memChannels) Get(_ context.Context, channelID uint) (*models.Channel, error) {
	for _, row := range s.rows {
		if row.ID == channelID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memChannels) GetByName(_ context.Context, name string) (*models.Channel, error) {
	for _, row := range s.rows {
		if row.Name == name {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memChannels) Create(_ context.Context, channel *models.Channel) error {
	channel.ID = s.nextID
	s.nextID++
	copied := *channel
	s.rows = append(s.rows, &copied)
	return nil
}

func (s *memChannels) Update(_ context.Context, channelID uint, name string) (*models.Channel, error) {
	for _, row := range s.rows {
		if row.ID == channelID {
			row.Name = name
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memChannels) Delete(_ context.Context, channelID uint) (*models.Channel, error) {
	for i, row := range s.rows {
		if row.ID == channelID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return row, nil
		}
	}
	return nil, nil
}

type memContactChannels struct {
	rows     []*models.ContactChannel
	contacts *memContacts
	channels *memChannels
	nextID   uint
}

func newMemContactChannels(contacts *memContacts, channels *memChannels) *memContactChannels {
	return &memContactChannels{contacts: contacts, channels: channels, nextID: 1}
}

func (s *memContactChannels) List(_ context.Context, userID uint, skip, limit int) ([]models.ContactChannel, error) {
	out := make([]models.ContactChannel, 0)
	for _, row := range s.rows {
		if row.CreatedBy == userID {
			out = append(out, *row)
		}
	}
	if skip > len(out) {
		skip = len(out)
	}
	out = out[skip:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *memContactChannels) Get(_ context.Context, userID, id uint) (*models.ContactChannel, error) {
	for _, row := range s.rows {
		if row.ID == id && row.CreatedBy == userID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memContactChannels) Create(ctx context.Context, row *models.ContactChannel) error {
	for _, existing := range s.rows {
		if existing.CreatedBy == row.CreatedBy && existing.ChannelValue == row.ChannelValue {
			return contactchannels.ErrDuplicateValue
		}
	}
	if channel, _ := s.channels.Get(ctx, row.ChannelID); channel == nil {
		return contactchannels.ErrMissingReference
	}
	if contact, _ := s.contacts.Get(ctx, row.CreatedBy, row.ContactID); contact == nil {
		return contactchannels.ErrMissingReference
	}
	row.ID = s.nextID
	s.nextID++
	copied := *row
	s.rows = append(s.rows, &copied)
	return nil
}

func (s *memContactChannels) Update(context.Context, uint, uint, *models.ContactChannel) (*models.ContactChannel, error) {
	return nil, nil
}

func (s *memContactChannels) Delete(context.Context, uint, uint) (*models.ContactChannel, error) {
	return nil, nil
}

type stubAvatarSource struct{}

func (stubAvatarSource) DefaultURL(context.Context, string) (string, error) {
	return "https://www.gravatar.com/avatar/abc?s=250&d=identicon", nil
}

type stubAvatarStorage struct{}

func (stubAvatarStorage) Upload(_ context.Context, key, _ string, _ io.Reader, _ int64) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

type recordingEnqueuer struct {
	emails []string
}

func (e *recordingEnqueuer) EnqueueConfirmationEmail(_ context.Context, email string) error {
	e.emails = append(e.emails, email)
	return nil
}

type routerFixture struct {
	router   *gin.Engine
	tokens   *auth.EmailTokens
	users    *memUserStore
	enqueuer *recordingEnqueuer
}

func newRouterFixture(t *testing.T) *routerFixture {
	return newLimitedRouterFixture(t, 100)
}

func newLimitedRouterFixture(t *testing.T, perMinute int) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:                "test",
		RateLimitPerMinute: perMinute,
		JWTSecret:          "test-session-secret",
		JWTAlgorithm:       "HS256",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		EmailTokenSecret:   "test-email-secret",
		EmailTokenTTL:      time.Hour,
		CORSAllowedOrigins: []string{"http://127.0.0.1:8000"},
	}

	users := newMemUserStore()
	svc, err := auth.NewService(users, cfg)
	require.NoError(t, err)
	tokens, err := auth.NewEmailTokens(cfg)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	enqueuer := &recordingEnqueuer{}
	contacts := newMemContacts()
	channels := newMemChannels()

	router := NewRouter(Deps{
		Config:          cfg,
		Auth:            svc,
		EmailTokens:     tokens,
		Users:           users,
		Contacts:        contacts,
		Channels:        channels,
		ContactChannels: newMemContactChannels(contacts, channels),
		AvatarStorage:   stubAvatarStorage{},
		Avatars:         stubAvatarSource{},
		Enqueuer:        enqueuer,
		Limiter:         ratelimit.New(rdb, perMinute),
	})

	return &routerFixture{router: router, tokens: tokens, users: users, enqueuer: enqueuer}
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestHealthRoute(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(jsonRequest(http.MethodGet, "/health", ""))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"status":"ok"}`, w.Body.String())
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestSignupConfirmLoginFlow(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(jsonRequest(http.MethodPost, "/auth/users", `{"email":"amelia@example.com","password":"secret1"}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, []string{"amelia@example.com"}, f.enqueuer.emails)

	w = f.do(jsonRequest(http.MethodPost, "/auth/access_token", `{"email":"amelia@example.com","password":"secret1"}`))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"detail":"Email not confirmed"}`, w.Body.String())

	// The worker would mail this link. Follow it directly.
	token, err := f.tokens.Issue("amelia@example.com")
	require.NoError(t, err)
	w = f.do(jsonRequest(http.MethodGet, "/auth/confirmed_email/"+token, ""))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"Email confirmed"}`, w.Body.String())

	w = f.do(jsonRequest(http.MethodPost, "/auth/access_token", `{"email":"amelia@example.com","password":"secret1"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pair struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	require.Equal(t, "bearer", pair.TokenType)

	req := jsonRequest(http.MethodPost, "/contacts", `{"first_name":"Greg","last_name":"House","birthdate":"1959-06-11","gender":"m"}`)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = f.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req = jsonRequest(http.MethodGet, "/contacts", "")
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"first_name":"Greg"`)

	req = jsonRequest(http.MethodPost, "/channels", `{"name":"email"}`)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = f.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"id":1,"name":"email"}`, w.Body.String())

	req = jsonRequest(http.MethodPost, "/contactsChannels", `{"contact_id":999,"channel_id":1,"channel_value":"greg@example.com"}`)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = f.do(req)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"detail":"Contact or channel name is not found"}`, w.Body.String())

	req = jsonRequest(http.MethodPost, "/contactsChannels", `{"contact_id":1,"channel_id":1,"channel_value":"greg@example.com"}`)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = f.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"channel_value":"greg@example.com"`)
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	f := newRouterFixture(t)

	for _, path := range []string{"/contacts", "/channels", "/contactsChannels"} {
		w := f.do(jsonRequest(http.MethodGet, path, ""))
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
		require.JSONEq(t, `{"message":"Authorization token wasn't sent"}`, w.Body.String())
	}
}

func TestRateLimitRunsBeforeAuth(t *testing.T) {
	f := newLimitedRouterFixture(t, 3)

	for i := 0; i < 3; i++ {
		w := f.do(jsonRequest(http.MethodGet, "/contacts", ""))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	// Over budget: rejected before the missing token is even looked at.
	w := f.do(jsonRequest(http.MethodGet, "/contacts", ""))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.JSONEq(t, `{"detail":"Too Many Requests"}`, w.Body.String())

	// Other routes keep their own budget.
	w = f.do(jsonRequest(http.MethodGet, "/channels", ""))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConfirmationRouteNotRateLimited(t *testing.T) {
	f := newLimitedRouterFixture(t, 2)

	for i := 0; i < 6; i++ {
		w := f.do(jsonRequest(http.MethodGet, "/auth/confirmed_email/not-a-real-token", ""))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.JSONEq(t, `{"detail":"Invalid token for email verification"}`, w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/contacts", nil)
	req.Header.Set("Origin", "http://127.0.0.1:8000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := f.do(req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://127.0.0.1:8000", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCORSAllowedOriginEchoed(t *testing.T) {
	f := newRouterFixture(t)

	req := jsonRequest(http.MethodGet, "/health", "")
	req.Header.Set("Origin", "http://127.0.0.1:8000")
	w := f.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "http://127.0.0.1:8000", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestCORSUnknownOriginGetsNoHeaders(t *testing.T) {
	f := newRouterFixture(t)

	req := jsonRequest(http.MethodGet, "/health", "")
	req.Header.Set("Origin", "http://evil.example.com")
	w := f.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}
