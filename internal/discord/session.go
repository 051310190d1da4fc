package discord

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const userGuildsPageSize = 200

var (
	ErrNoBotToken   = errors.New("discord bot token is not configured")
	ErrUnauthorized = errors.New("discord rejected the access token")
)

// Upstream is the subset of the Discord REST API the dashboard reads.
type Upstream interface {
	Guild(guildID string) (*discordgo.Guild, error)
	Roles(guildID string) ([]*discordgo.Role, error)
	Channels(guildID string) ([]*discordgo.Channel, error)
	BotMember(guildID string) (*discordgo.Member, error)
	BotGuilds() ([]*discordgo.UserGuild, error)
	CurrentUser(accessToken string) (*discordgo.User, error)
	UserGuilds(accessToken string) ([]*discordgo.UserGuild, error)
}

// Session implements Upstream over discordgo REST sessions. The bot session is
// shared; user calls get a short-lived session carrying the bearer token.
type Session struct {
	bot     *discordgo.Session
	timeout time.Duration

	mu        sync.Mutex
	botUserID string
}

var _ Upstream = (*Session)(nil)

func NewSession(botToken string, timeout time.Duration) (*Session, error) {
	s := &Session{timeout: timeout}
	if botToken == "" {
		return s, nil
	}
	bot, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, err
	}
	bot.Client = &http.Client{Timeout: timeout}
	s.bot = bot
	return s, nil
}

func (s *Session) Guild(guildID string) (*discordgo.Guild, error) {
	if s.bot == nil {
		return nil, ErrNoBotToken
	}
	return s.bot.GuildWithCounts(guildID)
}

func (s *Session) Roles(guildID string) ([]*discordgo.Role, error) {
	if s.bot == nil {
		return nil, ErrNoBotToken
	}
	return s.bot.GuildRoles(guildID)
}

func (s *Session) Channels(guildID string) ([]*discordgo.Channel, error) {
	if s.bot == nil {
		return nil, ErrNoBotToken
	}
	return s.bot.GuildChannels(guildID)
}

func (s *Session) BotMember(guildID string) (*discordgo.Member, error) {
	if s.bot == nil {
		return nil, ErrNoBotToken
	}
	botID, err := s.botID()
	if err != nil {
		return nil, err
	}
	return s.bot.GuildMember(guildID, botID)
}

func (s *Session) BotGuilds() ([]*discordgo.UserGuild, error) {
	if s.bot == nil {
		return nil, ErrNoBotToken
	}
	return allUserGuilds(s.bot)
}

func (s *Session) CurrentUser(accessToken string) (*discordgo.User, error) {
	user, err := s.userSession(accessToken).User("@me")
	return user, mapAuthError(err)
}

func (s *Session) UserGuilds(accessToken string) ([]*discordgo.UserGuild, error) {
	guilds, err := allUserGuilds(s.userSession(accessToken))
	return guilds, mapAuthError(err)
}

func (s *Session) botID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.botUserID != "" {
		return s.botUserID, nil
	}
	user, err := s.bot.User("@me")
	if err != nil {
		return "", err
	}
	s.botUserID = user.ID
	return s.botUserID, nil
}

func (s *Session) userSession(accessToken string) *discordgo.Session {
	session, _ := discordgo.New("Bearer " + accessToken)
	session.Client = &http.Client{Timeout: s.timeout}
	return session
}

func allUserGuilds(session *discordgo.Session) ([]*discordgo.UserGuild, error) {
	var all []*discordgo.UserGuild
	after := ""
	for {
		page, err := session.UserGuilds(userGuildsPageSize, "", after)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < userGuildsPageSize {
			return all, nil
		}
		after = page[len(page)-1].ID
	}
}

func mapAuthError(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return err
}
