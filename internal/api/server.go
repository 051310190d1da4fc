package api

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"nexa-dashboard/internal/audit"
	"nexa-dashboard/internal/catalogue"
	"nexa-dashboard/internal/discord"
	"nexa-dashboard/internal/settings"
	"nexa-dashboard/internal/utils"
)

type Options struct {
	Settings *settings.Service
	Discord  *discord.Client
	Audit    *audit.Logger
	Premium  *catalogue.Premium

	// OAuth is nil when dashboard login is not configured.
	OAuth        *oauth2.Config
	StateSecret  []byte
	DashboardURL string
	Compress     bool

	// WriteLimit caps writes per user per minute. Zero disables the limit.
	WriteLimit int
}

// Server serves the dashboard API.
type Server struct {
	settings *settings.Service
	discord  *discord.Client
	audit    *audit.Logger
	premium  *catalogue.Premium
	oauth    *oauth2.Config
	states   *stateSigner
	writes   *utils.SlidingWindow

	dashboardURL string
	compress     bool
	logger       *zap.Logger
}

func NewServer(opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	premium := opts.Premium
	if premium == nil {
		premium = catalogue.DefaultPremium()
	}
	return &Server{
		settings:     opts.Settings,
		discord:      opts.Discord,
		audit:        opts.Audit,
		premium:      premium,
		oauth:        opts.OAuth,
		states:       newStateSigner(opts.StateSecret, stateTTL),
		writes:       utils.NewSlidingWindow(time.Minute, opts.WriteLimit),
		dashboardURL: opts.DashboardURL,
		compress:     opts.Compress,
		logger:       logger.Named("api"),
	}
}

func (s *Server) Handler() http.Handler {
	router := bunrouter.New()

	router.GET("/health", s.health)

	router.WithGroup("/auth", func(g *bunrouter.Group) {
		g.GET("/login", s.login)
		g.GET("/callback", s.callback)
	})

	router.Use(s.authenticate, s.limitWrites).WithGroup("/v1", func(g *bunrouter.Group) {
		g.GET("/guilds", s.listGuilds)
		g.PUT("/users/@me/premium-guild", s.assignPremiumGuild)

		g.Use(s.authorizeGuild).WithGroup("/guilds/:guildID", func(g *bunrouter.Group) {
			g.GET("", s.guildOverview)
			g.GET("/roles", s.guildRoles)
			g.GET("/channels", s.guildChannels)

			g.GET("/moderation", s.getModeration)
			g.PATCH("/moderation", s.updateModeration)

			g.GET("/automod", s.getAutoMod)
			g.PUT("/automod/global", s.updateAutoModGlobal)
			g.PUT("/automod/filters/:filter", s.updateAutoModFilter)
			g.PUT("/automod/rules", s.updateAutoModRules)

			g.GET("/commands", s.listCommands)
			g.PATCH("/commands/:command", s.updateCommand)

			g.GET("/embeds", s.listEmbeds)
			g.POST("/embeds", s.saveEmbed)
			g.DELETE("/embeds/:embedID", s.deleteEmbed)

			g.GET("/settings", s.getGuildSettings)
			g.PATCH("/settings", s.updateGuildSettings)

			g.GET("/audit", s.listAudit)
		})
	})

	if !s.compress {
		return router
	}
	return gzhttp.GzipHandler(router)
}

// NewHTTPServer wraps handler with the configured timeouts.
func NewHTTPServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

func (s *Server) health(w http.ResponseWriter, _ bunrouter.Request) error {
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte("ok"))
	return err
}
