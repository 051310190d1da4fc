package settings

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"nexa-dashboard/internal/storage"
	"nexa-dashboard/internal/utils"
)

const (
	maxEmbedFields = 25
	maxEmbedTitle  = 256
	maxEmbedText   = 4096
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type Embeds struct {
	docs documents
}

func (e *Embeds) List(ctx context.Context, guildID string) ([]Embed, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	docs, err := e.docs.coll.Find(ctx, storage.Filter{"guild_id": guildID})
	if err != nil {
		return nil, translate("list embeds", err)
	}

	embeds := make([]Embed, 0, len(docs))
	for _, doc := range docs {
		var embed Embed
		if err := e.docs.decode("list embeds", doc, &embed); err != nil {
			return nil, err
		}
		embeds = append(embeds, embed)
	}
	sort.Slice(embeds, func(i, j int) bool {
		return embeds[i].Name < embeds[j].Name
	})
	return embeds, nil
}

// Save updates the embed in place when it carries an id, forcing its guild to
// guildID, and inserts it otherwise.
func (e *Embeds) Save(ctx context.Context, guildID string, embed Embed) (*Embed, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	normalized, err := normalizeEmbed(embed)
	if err != nil {
		return nil, err
	}

	now := e.docs.time.now()
	values := map[string]any{
		"guild_id":   guildID,
		"name":       normalized.Name,
		"color":      normalized.Color,
		"fields":     normalized.Fields,
		"updated_at": now,
	}
	// empty optional fields are left out of the document
	var unset []string
	optional := map[string]any{
		"title":       normalized.Title,
		"description": normalized.Description,
		"thumbnail":   normalized.Thumbnail,
		"image":       normalized.Image,
		"footer":      normalized.Footer,
	}
	for key, value := range optional {
		if value == "" || value == (EmbedFooter{}) {
			unset = append(unset, key)
			continue
		}
		values[key] = value
	}
	sort.Strings(unset)

	id := strings.TrimSpace(embed.ID)
	if id != "" {
		if !storage.ValidID(id) {
			return nil, validationf("invalid embed id %q", id)
		}
		if err := e.docs.coll.UpdateByID(ctx, id, storage.Update{Set: values, Unset: unset}); err != nil {
			return nil, translate("update embed "+normalized.Name, err)
		}
	} else {
		values["created_at"] = now
		if normalized.CreatedBy != "" {
			values["created_by"] = normalized.CreatedBy
		}
		if id, err = e.docs.coll.Insert(ctx, values); err != nil {
			return nil, translate("create embed "+normalized.Name, err)
		}
	}

	doc, err := e.docs.coll.FindOne(ctx, storage.Filter{"_id": id})
	if err != nil {
		return nil, translate("load embed "+normalized.Name, err)
	}
	var out Embed
	if err := e.docs.decode("load embed "+normalized.Name, doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the embed by id. The embed's guild is not compared with
// guildID, and deleting an id that no longer exists succeeds.
func (e *Embeds) Delete(ctx context.Context, guildID, embedID string) error {
	if err := requireGuild(guildID); err != nil {
		return err
	}
	if !storage.ValidID(embedID) {
		return validationf("invalid embed id %q", embedID)
	}
	err := e.docs.coll.DeleteByID(ctx, embedID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return translate("delete embed", err)
	}
	return nil
}

func normalizeEmbed(embed Embed) (Embed, error) {
	out := Embed{
		Name:        strings.TrimSpace(embed.Name),
		Title:       strings.TrimSpace(embed.Title),
		Description: embed.Description,
		Color:       strings.TrimSpace(embed.Color),
		CreatedBy:   strings.TrimSpace(embed.CreatedBy),
		Footer:      EmbedFooter{Text: embed.Footer.Text},
		Fields:      make([]EmbedField, 0, len(embed.Fields)),
	}
	if out.Name == "" {
		return Embed{}, validationf("embed name is required")
	}
	if len(out.Title) > maxEmbedTitle {
		return Embed{}, validationf("embed title is longer than %d characters", maxEmbedTitle)
	}
	if len(out.Description) > maxEmbedText {
		return Embed{}, validationf("embed description is longer than %d characters", maxEmbedText)
	}
	if out.Color == "" {
		out.Color = DefaultEmbedColor
	}
	if !colorPattern.MatchString(out.Color) {
		return Embed{}, validationf("embed color %q is not a #RRGGBB value", out.Color)
	}

	var err error
	if out.Thumbnail, err = mediaURL("thumbnail", embed.Thumbnail); err != nil {
		return Embed{}, err
	}
	if out.Image, err = mediaURL("image", embed.Image); err != nil {
		return Embed{}, err
	}
	if out.Footer.IconURL, err = mediaURL("footer.icon_url", embed.Footer.IconURL); err != nil {
		return Embed{}, err
	}

	if len(embed.Fields) > maxEmbedFields {
		return Embed{}, validationf("embeds hold at most %d fields", maxEmbedFields)
	}
	for i, field := range embed.Fields {
		name := strings.TrimSpace(field.Name)
		value := strings.TrimSpace(field.Value)
		if name == "" || value == "" {
			return Embed{}, validationf("field %d needs a name and a value", i)
		}
		out.Fields = append(out.Fields, EmbedField{Name: name, Value: value, Inline: field.Inline})
	}
	return out, nil
}

func mediaURL(field, raw string) (string, error) {
	normalized, err := utils.NormalizeMediaURL(raw)
	if err != nil {
		return "", validationf("%s: %v", field, err)
	}
	return normalized, nil
}
