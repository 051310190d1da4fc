package discord

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	DefaultTTL = 5 * time.Minute

	botMemberTTL = time.Minute

	// ManageGuild is the Manage Server permission bit.
	ManageGuild int64 = discordgo.PermissionManageServer

	ChannelTypeText     = 0
	ChannelTypeVoice    = 2
	ChannelTypeCategory = 4
)

type GuildInfo struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	Icon                   string `json:"icon,omitempty"`
	ApproximateMemberCount int    `json:"member_count"`
	VerificationLevel      int    `json:"verification_level"`
}

type Role struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    int    `json:"color"`
	Position int    `json:"position"`
	Managed  bool   `json:"managed"`
	TooHigh  bool   `json:"too_high"`
}

type Channel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     int    `json:"type"`
	ParentID string `json:"parent_id,omitempty"`
	Position int    `json:"position"`
}

type Overview struct {
	Guild         GuildInfo `json:"guild"`
	TextChannels  int       `json:"text_channels"`
	VoiceChannels int       `json:"voice_channels"`
	Categories    int       `json:"categories"`
	Roles         int       `json:"roles"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type UserGuild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Owner       bool   `json:"owner"`
	Permissions int64  `json:"permissions"`
}

// GuildList splits the guilds a user manages by whether the bot is present.
type GuildList struct {
	Active    []UserGuild `json:"active"`
	Available []UserGuild `json:"available"`
}

// Client reads guild data from Discord. Upstream failures are logged and turn
// into empty results; only user token checks report errors.
type Client struct {
	upstream Upstream
	cache    Cache
	ttl      time.Duration
	logger   *zap.Logger
}

func NewClient(upstream Upstream, cache Cache, ttl time.Duration, logger *zap.Logger) *Client {
	if cache == nil {
		cache = NopCache{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{upstream: upstream, cache: cache, ttl: ttl, logger: logger.Named("discord")}
}

func (c *Client) Guild(ctx context.Context, guildID string) *GuildInfo {
	var info GuildInfo
	ok := c.cached(ctx, "guild:"+guildID, c.ttl, &info, func() (any, error) {
		guild, err := c.upstream.Guild(guildID)
		if err != nil {
			return nil, err
		}
		return GuildInfo{
			ID:                     guild.ID,
			Name:                   guild.Name,
			Icon:                   IconURL(guild.ID, guild.Icon),
			ApproximateMemberCount: guild.ApproximateMemberCount,
			VerificationLevel:      int(guild.VerificationLevel),
		}, nil
	})
	if !ok {
		return nil
	}
	return &info
}

// Roles returns the guild's roles, highest first. Roles at or above the bot's
// highest role are flagged TooHigh.
func (c *Client) Roles(ctx context.Context, guildID string) []Role {
	roles := c.roles(ctx, guildID)
	botPosition, known := c.botPosition(ctx, guildID, roles)
	if !known {
		// no role is flagged when the bot's own roles cannot be read
		return roles
	}
	for i := range roles {
		roles[i].TooHigh = roles[i].Position >= botPosition
	}
	return roles
}

func (c *Client) Channels(ctx context.Context, guildID string) []Channel {
	var channels []Channel
	ok := c.cached(ctx, "channels:"+guildID, c.ttl, &channels, func() (any, error) {
		raw, err := c.upstream.Channels(guildID)
		if err != nil {
			return nil, err
		}
		out := make([]Channel, 0, len(raw))
		for _, channel := range raw {
			out = append(out, Channel{
				ID:       channel.ID,
				Name:     channel.Name,
				Type:     int(channel.Type),
				ParentID: channel.ParentID,
				Position: channel.Position,
			})
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
		return out, nil
	})
	if !ok {
		return []Channel{}
	}
	return channels
}

// BotHighestRolePosition is 0 when the bot's member or the roles cannot be read.
func (c *Client) BotHighestRolePosition(ctx context.Context, guildID string) int {
	position, _ := c.botPosition(ctx, guildID, c.roles(ctx, guildID))
	return position
}

func (c *Client) BotGuildIDs(ctx context.Context) map[string]struct{} {
	var ids []string
	ok := c.cached(ctx, "bot_guilds", c.ttl, &ids, func() (any, error) {
		guilds, err := c.upstream.BotGuilds()
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(guilds))
		for _, guild := range guilds {
			out = append(out, guild.ID)
		}
		return out, nil
	})
	set := make(map[string]struct{}, len(ids))
	if !ok {
		return set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// CurrentUser resolves an OAuth access token to its Discord user.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	key := "user:" + tokenKey(accessToken)
	if data, ok := c.cache.Get(ctx, key); ok {
		var user User
		if err := json.Unmarshal(data, &user); err == nil {
			return &user, nil
		}
	}

	raw, err := c.upstream.CurrentUser(accessToken)
	if err != nil {
		return nil, err
	}
	user := User{ID: raw.ID, Username: raw.Username, Avatar: raw.Avatar}
	if data, err := json.Marshal(user); err == nil {
		c.cache.Set(ctx, key, data, c.ttl)
	}
	return &user, nil
}

// ManageableGuilds returns the user's guilds carrying the Manage Server bit.
func (c *Client) ManageableGuilds(ctx context.Context, accessToken string) []UserGuild {
	var guilds []UserGuild
	ok := c.cached(ctx, "user_guilds:"+tokenKey(accessToken), c.ttl, &guilds, func() (any, error) {
		raw, err := c.upstream.UserGuilds(accessToken)
		if err != nil {
			return nil, err
		}
		out := make([]UserGuild, 0, len(raw))
		for _, guild := range raw {
			out = append(out, UserGuild{
				ID:          guild.ID,
				Name:        guild.Name,
				Icon:        IconURL(guild.ID, guild.Icon),
				Owner:       guild.Owner,
				Permissions: guild.Permissions,
			})
		}
		return out, nil
	})
	if !ok {
		return []UserGuild{}
	}
	return FilterManageable(guilds)
}

// Guilds splits the user's manageable guilds into those the bot is in and the rest.
func (c *Client) Guilds(ctx context.Context, accessToken string) GuildList {
	manageable := c.ManageableGuilds(ctx, accessToken)
	botGuilds := c.BotGuildIDs(ctx)

	list := GuildList{Active: []UserGuild{}, Available: []UserGuild{}}
	for _, guild := range manageable {
		if _, ok := botGuilds[guild.ID]; ok {
			list.Active = append(list.Active, guild)
		} else {
			list.Available = append(list.Available, guild)
		}
	}
	return list
}

func (c *Client) ActiveGuilds(ctx context.Context, accessToken string) []UserGuild {
	return c.Guilds(ctx, accessToken).Active
}

// CanManage reports whether the token's user may manage guildID.
func (c *Client) CanManage(ctx context.Context, accessToken, guildID string) bool {
	for _, guild := range c.ManageableGuilds(ctx, accessToken) {
		if guild.ID == guildID {
			return true
		}
	}
	return false
}

// Overview returns nil when the guild itself cannot be read.
func (c *Client) Overview(ctx context.Context, guildID string) *Overview {
	guild := c.Guild(ctx, guildID)
	if guild == nil {
		return nil
	}
	overview := &Overview{Guild: *guild, Roles: len(c.roles(ctx, guildID))}
	for _, channel := range c.Channels(ctx, guildID) {
		switch channel.Type {
		case ChannelTypeText:
			overview.TextChannels++
		case ChannelTypeVoice:
			overview.VoiceChannels++
		case ChannelTypeCategory:
			overview.Categories++
		}
	}
	return overview
}

func (c *Client) roles(ctx context.Context, guildID string) []Role {
	var roles []Role
	ok := c.cached(ctx, "roles:"+guildID, c.ttl, &roles, func() (any, error) {
		raw, err := c.upstream.Roles(guildID)
		if err != nil {
			return nil, err
		}
		out := make([]Role, 0, len(raw))
		for _, role := range raw {
			out = append(out, Role{
				ID:       role.ID,
				Name:     role.Name,
				Color:    role.Color,
				Position: role.Position,
				Managed:  role.Managed,
			})
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Position > out[j].Position })
		return out, nil
	})
	if !ok {
		return []Role{}
	}
	return roles
}

// botPosition reports false when the bot's member cannot be fetched.
func (c *Client) botPosition(ctx context.Context, guildID string, roles []Role) (int, bool) {
	var roleIDs []string
	ok := c.cached(ctx, "bot_member:"+guildID, botMemberTTL, &roleIDs, func() (any, error) {
		member, err := c.upstream.BotMember(guildID)
		if err != nil {
			return nil, err
		}
		return member.Roles, nil
	})
	if !ok {
		return 0, false
	}

	highest := 0
	for _, role := range roles {
		for _, id := range roleIDs {
			if role.ID == id && role.Position > highest {
				highest = role.Position
			}
		}
	}
	return highest, true
}

// cached serves key from the cache or calls fetch and stores its result.
// Failed fetches are logged, never cached, and reported as false.
func (c *Client) cached(ctx context.Context, key string, ttl time.Duration, out any, fetch func() (any, error)) bool {
	if data, ok := c.cache.Get(ctx, key); ok {
		if err := json.Unmarshal(data, out); err == nil {
			return true
		}
	}

	value, err := fetch()
	if err != nil {
		c.logger.Warn("discord upstream unavailable", zap.String("key", redactKey(key)), zap.Error(err))
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("discord response encode failed", zap.String("key", redactKey(key)), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	c.cache.Set(ctx, key, data, ttl)
	return true
}

// FilterManageable keeps the guilds whose permissions carry ManageGuild.
func FilterManageable(guilds []UserGuild) []UserGuild {
	out := make([]UserGuild, 0, len(guilds))
	for _, guild := range guilds {
		if guild.Permissions&ManageGuild == ManageGuild {
			out = append(out, guild)
		}
	}
	return out
}

func IconURL(guildID, icon string) string {
	if icon == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/icons/%s/%s.png", guildID, icon)
}

func tokenKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:])
}

func redactKey(key string) string {
	if len(key) > 24 {
		return key[:24] + "..."
	}
	return key
}
