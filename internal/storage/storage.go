package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CollectionModeration = "moderation_settings"
	CollectionAutoMod    = "auto_moderation_settings"
	CollectionCommands   = "command_settings"
	CollectionEmbeds     = "embeds"
	CollectionGuilds     = "guild_settings"
	CollectionUsers      = "users"
	CollectionAuditLogs  = "audit_logs"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInvalidID         = errors.New("invalid document id")
	ErrInvalidKey        = errors.New("invalid document key")
	ErrUnknownCollection = errors.New("unknown collection")
)

// Document is a stored document in its JSON form.
type Document = json.RawMessage

// Filter matches documents by equality on (dotted) keys. A Range value bounds
// the key instead.
type Filter map[string]any

// Range matches values v with Gte <= v < Lt. A nil bound is open.
type Range struct {
	Gte any
	Lt  any
}

// Update mirrors a find-and-set: every Set value replaces the whole value at its
// path, SetOnInsert values are only written when an upsert creates the document.
// Unset paths are removed.
type Update struct {
	Set         map[string]any
	SetOnInsert map[string]any
	Unset       []string
}

type Collection interface {
	FindOne(ctx context.Context, filter Filter) (Document, error)
	Find(ctx context.Context, filter Filter) ([]Document, error)
	Insert(ctx context.Context, doc any) (string, error)
	FindOneAndSet(ctx context.Context, filter Filter, update Update, upsert bool) (Document, error)
	UpdateByID(ctx context.Context, id string, update Update) error
	DeleteByID(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
}

type Store interface {
	Collection(name string) Collection
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error
}

// Index is a unique index both backends must enforce.
type Index struct {
	Collection string
	Keys       []string
}

var Indexes = []Index{
	{Collection: CollectionModeration, Keys: []string{"guild_id"}},
	{Collection: CollectionAutoMod, Keys: []string{"guild_id"}},
	{Collection: CollectionCommands, Keys: []string{"guild_id", "command"}},
	{Collection: CollectionEmbeds, Keys: []string{"guild_id", "name"}},
	{Collection: CollectionGuilds, Keys: []string{"guild_id"}},
	{Collection: CollectionUsers, Keys: []string{"discord_id"}},
}

var Collections = []string{
	CollectionModeration,
	CollectionAutoMod,
	CollectionCommands,
	CollectionEmbeds,
	CollectionGuilds,
	CollectionUsers,
	CollectionAuditLogs,
}

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

func KnownCollection(name string) bool {
	for _, known := range Collections {
		if known == name {
			return true
		}
	}
	return false
}

func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

func NewID() string {
	return primitive.NewObjectID().Hex()
}

func ValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func Decode(doc Document, out any) error {
	if err := json.Unmarshal(doc, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func DecodeMap(doc Document) (map[string]any, error) {
	out := map[string]any{}
	if err := Decode(doc, &out); err != nil {
		return nil, err
	}
	return out, nil
}
