package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeUpstream struct {
	guild      *discordgo.Guild
	roles      []*discordgo.Role
	channels   []*discordgo.Channel
	member     *discordgo.Member
	botGuilds  []*discordgo.UserGuild
	user       *discordgo.User
	userGuilds []*discordgo.UserGuild
	err        error
	memberErr  error
	calls      map[string]int
}

func (f *fakeUpstream) record(name string) error {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	return f.err
}

func (f *fakeUpstream) Guild(string) (*discordgo.Guild, error) {
	return f.guild, f.record("guild")
}

func (f *fakeUpstream) Roles(string) ([]*discordgo.Role, error) {
	return f.roles, f.record("roles")
}

func (f *fakeUpstream) Channels(string) ([]*discordgo.Channel, error) {
	return f.channels, f.record("channels")
}

func (f *fakeUpstream) BotMember(string) (*discordgo.Member, error) {
	if err := f.record("member"); err != nil {
		return nil, err
	}
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	return f.member, nil
}

func (f *fakeUpstream) BotGuilds() ([]*discordgo.UserGuild, error) {
	return f.botGuilds, f.record("bot_guilds")
}

func (f *fakeUpstream) CurrentUser(string) (*discordgo.User, error) {
	return f.user, f.record("user")
}

func (f *fakeUpstream) UserGuilds(string) ([]*discordgo.UserGuild, error) {
	return f.userGuilds, f.record("user_guilds")
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		guild: &discordgo.Guild{ID: "g1", Name: "Nexa HQ", Icon: "abc", ApproximateMemberCount: 42, VerificationLevel: discordgo.VerificationLevelMedium},
		roles: []*discordgo.Role{
			{ID: "g1", Name: "@everyone", Position: 0},
			{ID: "r-admin", Name: "Admin", Position: 5, Color: 0xff0000},
			{ID: "r-bot", Name: "Nexa", Position: 3, Managed: true},
			{ID: "r-member", Name: "Member", Position: 1},
		},
		channels: []*discordgo.Channel{
			{ID: "c1", Name: "general", Type: discordgo.ChannelTypeGuildText, Position: 1, ParentID: "cat"},
			{ID: "c2", Name: "voice", Type: discordgo.ChannelTypeGuildVoice, Position: 2},
			{ID: "cat", Name: "Text", Type: discordgo.ChannelTypeGuildCategory, Position: 0},
			{ID: "c3", Name: "rules", Type: discordgo.ChannelTypeGuildText, Position: 3},
		},
		member: &discordgo.Member{Roles: []string{"r-bot", "r-member"}},
		botGuilds: []*discordgo.UserGuild{
			{ID: "g1"}, {ID: "g3"},
		},
		user: &discordgo.User{ID: "u1", Username: "admin"},
		userGuilds: []*discordgo.UserGuild{
			{ID: "g1", Name: "Nexa HQ", Permissions: 0x20},
			{ID: "g2", Name: "Side", Permissions: 0x8 | 0x20 | 0x400},
			{ID: "g3", Name: "Member only", Permissions: 0x400},
		},
	}
}

func TestRolesFlagsRolesAboveTheBot(t *testing.T) {
	upstream := newFakeUpstream()
	client := NewClient(upstream, NewMemoryCache(), time.Minute, zaptest.NewLogger(t))

	roles := client.Roles(context.Background(), "g1")
	require.Len(t, roles, 4)
	assert.Equal(t, "r-admin", roles[0].ID)
	assert.True(t, roles[0].TooHigh)
	assert.True(t, roles[1].TooHigh, "the bot's own highest role is not assignable")
	assert.True(t, roles[1].Managed)
	assert.False(t, roles[2].TooHigh)

	assert.Equal(t, 3, client.BotHighestRolePosition(context.Background(), "g1"))
}

func TestRolesWithUnknownBotPositionAreNotFlagged(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.memberErr = errors.New("403 missing access")
	client := NewClient(upstream, NewMemoryCache(), time.Minute, zaptest.NewLogger(t))

	roles := client.Roles(context.Background(), "g1")
	require.Len(t, roles, 4)
	for _, role := range roles {
		assert.False(t, role.TooHigh, role.ID)
	}
	assert.Equal(t, 0, client.BotHighestRolePosition(context.Background(), "g1"))
}

func TestRolesWithOnlyEveryoneAreAllTooHigh(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.member = &discordgo.Member{}
	client := NewClient(upstream, NewMemoryCache(), time.Minute, zaptest.NewLogger(t))

	for _, role := range client.Roles(context.Background(), "g1") {
		assert.True(t, role.TooHigh, role.ID)
	}
}

func TestChannelsAndOverview(t *testing.T) {
	client := NewClient(newFakeUpstream(), NewMemoryCache(), time.Minute, zaptest.NewLogger(t))

	channels := client.Channels(context.Background(), "g1")
	require.Len(t, channels, 4)
	assert.Equal(t, "cat", channels[0].ID)
	assert.Equal(t, "cat", channels[1].ParentID)

	overview := client.Overview(context.Background(), "g1")
	require.NotNil(t, overview)
	assert.Equal(t, "Nexa HQ", overview.Guild.Name)
	assert.Equal(t, "https://cdn.discordapp.com/icons/g1/abc.png", overview.Guild.Icon)
	assert.Equal(t, 42, overview.Guild.ApproximateMemberCount)
	assert.Equal(t, int(discordgo.VerificationLevelMedium), overview.Guild.VerificationLevel)
	assert.Equal(t, 2, overview.TextChannels)
	assert.Equal(t, 1, overview.VoiceChannels)
	assert.Equal(t, 1, overview.Categories)
	assert.Equal(t, 4, overview.Roles)
}

func TestUpstreamFailuresBecomeEmptyData(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.err = errors.New("503 service unavailable")
	client := NewClient(upstream, NewMemoryCache(), time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	assert.Nil(t, client.Guild(ctx, "g1"))
	assert.Nil(t, client.Overview(ctx, "g1"))
	assert.Equal(t, []Role{}, client.Roles(ctx, "g1"))
	assert.Equal(t, []Channel{}, client.Channels(ctx, "g1"))
	assert.Equal(t, 0, client.BotHighestRolePosition(ctx, "g1"))
	assert.Empty(t, client.BotGuildIDs(ctx))
	assert.Equal(t, []UserGuild{}, client.ManageableGuilds(ctx, "token"))

	upstream.err = nil
	assert.NotNil(t, client.Guild(ctx, "g1"), "failures are not cached")
}

func TestGuildsSplitsByBotPresence(t *testing.T) {
	client := NewClient(newFakeUpstream(), NewMemoryCache(), time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	manageable := client.ManageableGuilds(ctx, "token")
	require.Len(t, manageable, 2)
	assert.Equal(t, "g1", manageable[0].ID)
	assert.Equal(t, "g2", manageable[1].ID)

	list := client.Guilds(ctx, "token")
	require.Len(t, list.Active, 1)
	assert.Equal(t, "g1", list.Active[0].ID)
	require.Len(t, list.Available, 1)
	assert.Equal(t, "g2", list.Available[0].ID)

	assert.True(t, client.CanManage(ctx, "token", "g2"))
	assert.False(t, client.CanManage(ctx, "token", "g3"))
}

func TestResponsesAreCached(t *testing.T) {
	upstream := newFakeUpstream()
	cache := NewMemoryCache()
	clock := &fakeClock{now: time.Unix(0, 0)}
	cache.WithClock(clock)
	client := NewClient(upstream, cache, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	client.Guild(ctx, "g1")
	client.Guild(ctx, "g1")
	assert.Equal(t, 1, upstream.calls["guild"])

	user, err := client.CurrentUser(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	_, err = client.CurrentUser(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls["user"])

	clock.now = clock.now.Add(2 * time.Minute)
	client.Guild(ctx, "g1")
	assert.Equal(t, 2, upstream.calls["guild"])
}

func TestCurrentUserReportsErrors(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.err = ErrUnauthorized
	client := NewClient(upstream, NewMemoryCache(), time.Minute, zaptest.NewLogger(t))

	_, err := client.CurrentUser(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFilterManageable(t *testing.T) {
	guilds := []UserGuild{
		{ID: "a", Permissions: 0x20},
		{ID: "b", Permissions: 0x10},
		{ID: "c", Permissions: 0x7fffffff},
		{ID: "d", Permissions: 0},
	}
	got := FilterManageable(guilds)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}
