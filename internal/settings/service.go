package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nexa-dashboard/internal/catalogue"
	"nexa-dashboard/internal/storage"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type timeSource struct {
	clock Clock
}

// now is truncated to the millisecond precision both backends keep.
func (t *timeSource) now() time.Time {
	return t.clock.Now().UTC().Truncate(time.Millisecond)
}

type Service struct {
	Moderation *Moderation
	AutoMod    *AutoModeration
	Commands   *Commands
	Embeds     *Embeds
	Guilds     *Guilds
	Premium    *Premium
	Users      *Users

	time *timeSource
}

func NewService(store storage.Store, premium *catalogue.Premium) *Service {
	if premium == nil {
		premium = catalogue.DefaultPremium()
	}
	ts := &timeSource{clock: realClock{}}
	resolver := &Premium{
		guilds: store.Collection(storage.CollectionGuilds),
		users:  store.Collection(storage.CollectionUsers),
	}

	return &Service{
		Moderation: &Moderation{docs: documents{
			coll: store.Collection(storage.CollectionModeration), defaults: moderationDefaults, time: ts,
		}},
		AutoMod: &AutoModeration{docs: documents{
			coll: store.Collection(storage.CollectionAutoMod), defaults: automodDefaults, time: ts,
		}},
		Commands: &Commands{docs: documents{
			coll: store.Collection(storage.CollectionCommands), defaults: commandDefaults, time: ts,
		}, premium: premium},
		Embeds: &Embeds{docs: documents{
			coll: store.Collection(storage.CollectionEmbeds), defaults: embedDefaults, time: ts,
		}},
		Guilds: &Guilds{docs: documents{
			coll: store.Collection(storage.CollectionGuilds), defaults: guildDefaults, time: ts,
		}, premium: resolver},
		Premium: resolver,
		Users: &Users{docs: documents{
			coll: store.Collection(storage.CollectionUsers), defaults: userDefaults, time: ts,
		}},
		time: ts,
	}
}

func (s *Service) WithClock(clock Clock) {
	if clock == nil {
		clock = realClock{}
	}
	s.time.clock = clock
}

// documents holds what every accessor shares: its collection, its defaults
// table and the clock stamping created_at/updated_at.
type documents struct {
	coll     storage.Collection
	defaults func() map[string]any
	time     *timeSource
}

// getOrCreate returns the document matching filter, inserting the defaults
// table when none exists yet.
func (d documents) getOrCreate(ctx context.Context, op string, filter storage.Filter, out any) error {
	doc, err := d.coll.FindOne(ctx, filter)
	if errors.Is(err, storage.ErrNotFound) {
		seed := d.defaults()
		now := d.time.now()
		seed["created_at"] = now
		seed["updated_at"] = now
		doc, err = d.coll.FindOneAndSet(ctx, filter, storage.Update{SetOnInsert: seed}, true)
	}
	if err != nil {
		return translate(op, err)
	}
	return d.decode(op, doc, out)
}

// set replaces the given top-level paths and returns the post-update document.
func (d documents) set(ctx context.Context, op string, filter storage.Filter, values map[string]any, upsert bool, out any) error {
	now := d.time.now()
	update := storage.Update{Set: map[string]any{"updated_at": now}}
	for path, value := range values {
		update.Set[path] = value
	}
	if upsert {
		update.SetOnInsert = map[string]any{"created_at": now}
	}

	doc, err := d.coll.FindOneAndSet(ctx, filter, update, upsert)
	if err != nil {
		return translate(op, err)
	}
	return d.decode(op, doc, out)
}

func (d documents) decode(op string, doc storage.Document, out any) error {
	stored, err := storage.DecodeMap(doc)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
	}
	if err := fromMap(Reconcile(d.defaults(), stored), out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
	}
	return nil
}

func fromMap(m map[string]any, out any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func requireGuild(guildID string) error {
	if strings.TrimSpace(guildID) == "" {
		return validationf("guild id is required")
	}
	return nil
}

// cleanIDs trims, drops blanks and removes duplicates, keeping first-seen order.
func cleanIDs(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
