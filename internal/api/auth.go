package api

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"nexa-dashboard/internal/discord"
)

const stateTTL = 10 * time.Minute

var (
	errInvalidState   = errors.New("invalid or expired oauth state")
	errLoginDisabled  = errors.New("dashboard login is not configured")
	errUpstreamFailed = errors.New("discord is unavailable")
	errRateLimited    = errors.New("rate limit exceeded")
)

// DiscordEndpoint is Discord's OAuth2 authorization server.
var DiscordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"identify", "guilds"},
		Endpoint:     DiscordEndpoint,
	}
}

type ctxKey int

const (
	userCtxKey ctxKey = iota
	tokenCtxKey
)

func userFrom(ctx context.Context) *discord.User {
	user, _ := ctx.Value(userCtxKey).(*discord.User)
	return user
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenCtxKey).(string)
	return token
}

// stateSigner issues self-contained OAuth states: a nonce and an expiry
// signed with HMAC-SHA256.
type stateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newStateSigner(secret []byte, ttl time.Duration) *stateSigner {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	return &stateSigner{secret: secret, ttl: ttl, now: time.Now}
}

func (s *stateSigner) Sign() (string, error) {
	payload := make([]byte, 24)
	if _, err := rand.Read(payload[:16]); err != nil {
		return "", err
	}
	binary.BigEndian.PutUint64(payload[16:], uint64(s.now().Add(s.ttl).Unix()))
	return encode(payload) + "." + encode(s.mac(payload)), nil
}

func (s *stateSigner) Verify(state string) error {
	rawPayload, rawMAC, ok := strings.Cut(state, ".")
	if !ok {
		return errInvalidState
	}
	payload, err := base64.RawURLEncoding.DecodeString(rawPayload)
	if err != nil || len(payload) != 24 {
		return errInvalidState
	}
	mac, err := base64.RawURLEncoding.DecodeString(rawMAC)
	if err != nil || !hmac.Equal(mac, s.mac(payload)) {
		return errInvalidState
	}
	expires := time.Unix(int64(binary.BigEndian.Uint64(payload[16:])), 0)
	if !s.now().Before(expires) {
		return errInvalidState
	}
	return nil
}

func (s *stateSigner) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(payload)
	return h.Sum(nil)
}

func encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func (s *Server) login(w http.ResponseWriter, req bunrouter.Request) error {
	if s.oauth == nil {
		return writeError(w, http.StatusNotFound, errLoginDisabled)
	}
	state, err := s.states.Sign()
	if err != nil {
		return s.fail(w, req, err)
	}
	http.Redirect(w, req.Request, s.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "none")), http.StatusFound)
	return nil
}

func (s *Server) callback(w http.ResponseWriter, req bunrouter.Request) error {
	if s.oauth == nil {
		return writeError(w, http.StatusNotFound, errLoginDisabled)
	}
	query := req.URL.Query()
	if reason := query.Get("error"); reason != "" {
		return writeError(w, http.StatusBadRequest, errors.New("authorization denied: "+reason))
	}
	if err := s.states.Verify(query.Get("state")); err != nil {
		return writeError(w, http.StatusBadRequest, err)
	}

	ctx := req.Context()
	token, err := s.oauth.Exchange(ctx, query.Get("code"))
	if err != nil {
		s.logger.Warn("oauth code exchange failed", zap.Error(err))
		return writeError(w, http.StatusUnauthorized, errUnauthorized)
	}
	user, err := s.discord.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		return s.userError(w, err)
	}
	if _, err := s.settings.Users.Ensure(ctx, user.ID); err != nil {
		return s.fail(w, req, err)
	}
	s.logger.Info("dashboard login", zap.String("user_id", user.ID))

	expiresIn := 0
	if !token.Expiry.IsZero() {
		expiresIn = int(time.Until(token.Expiry).Seconds())
	}
	if s.dashboardURL != "" {
		fragment := url.Values{
			"access_token": {token.AccessToken},
			"token_type":   {"Bearer"},
			"expires_in":   {strconv.Itoa(expiresIn)},
		}
		http.Redirect(w, req.Request, strings.TrimRight(s.dashboardURL, "/")+"/#"+fragment.Encode(), http.StatusFound)
		return nil
	}
	return writeData(w, map[string]any{
		"access_token": token.AccessToken,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
		"user":         user,
	})
}

// authenticate resolves the bearer token to its Discord user.
func (s *Server) authenticate(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return writeError(w, http.StatusUnauthorized, errUnauthorized)
		}

		user, err := s.discord.CurrentUser(req.Context(), token)
		if err != nil {
			return s.userError(w, err)
		}

		ctx := context.WithValue(req.Context(), userCtxKey, user)
		ctx = context.WithValue(ctx, tokenCtxKey, token)
		return next(w, req.WithContext(ctx))
	}
}

// authorizeGuild requires Manage Server on the route's guild.
func (s *Server) authorizeGuild(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		if !s.discord.CanManage(req.Context(), tokenFrom(req.Context()), req.Param("guildID")) {
			return writeError(w, http.StatusForbidden, errForbidden)
		}
		return next(w, req)
	}
}

// limitWrites refuses a user's writes past the per-minute limit.
func (s *Server) limitWrites(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		if req.Method == http.MethodGet || req.Method == http.MethodHead {
			return next(w, req)
		}
		allowed, retryAfter := s.writes.Allow(userFrom(req.Context()).ID, time.Now())
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			return writeError(w, http.StatusTooManyRequests, errRateLimited)
		}
		return next(w, req)
	}
}

func (s *Server) userError(w http.ResponseWriter, err error) error {
	if errors.Is(err, discord.ErrUnauthorized) {
		return writeError(w, http.StatusUnauthorized, errUnauthorized)
	}
	s.logger.Warn("discord user lookup failed", zap.Error(err))
	return writeError(w, http.StatusBadGateway, errUpstreamFailed)
}
