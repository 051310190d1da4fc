package settings

import (
	"context"
	"errors"
	"sort"
	"strings"

	"nexa-dashboard/internal/catalogue"
	"nexa-dashboard/internal/storage"
)

type Commands struct {
	docs    documents
	premium *catalogue.Premium
}

// NewCommandConfig returns a record for command populated with the defaults
// the bot writes the first time the command runs.
func NewCommandConfig(command, description, category string) CommandConfig {
	if description == "" {
		description = DefaultCommandDescription
	}
	if category == "" {
		category = DefaultCommandCategory
	}
	return CommandConfig{
		Command:          command,
		Description:      description,
		Category:         category,
		Enabled:          true,
		Aliases:          []string{},
		EnabledRoles:     []string{},
		DisabledRoles:    []string{},
		EnabledChannels:  []string{},
		DisabledChannels: []string{},
		RolesSkipLimit:   []string{},
		Settings: CommandSettings{
			MaxLimit:            DefaultMaxLimit,
			ResponseDeleteDelay: DefaultResponseDeleteDelay,
		},
	}
}

// List returns the guild's command records ordered by name. A non-empty
// category must match exactly.
func (c *Commands) List(ctx context.Context, guildID, category string) ([]CommandConfig, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	filter := storage.Filter{"guild_id": guildID}
	if category != "" {
		filter["category"] = category
	}

	docs, err := c.docs.coll.Find(ctx, filter)
	if err != nil {
		return nil, translate("list commands", err)
	}

	commands := make([]CommandConfig, 0, len(docs))
	for _, doc := range docs {
		var command CommandConfig
		if err := c.docs.decode("list commands", doc, &command); err != nil {
			return nil, err
		}
		command.IsPremium = c.premium.IsPremiumCommand(command.Command)
		commands = append(commands, command)
	}
	sort.Slice(commands, func(i, j int) bool {
		return commands[i].Command < commands[j].Command
	})
	return commands, nil
}

// Update sets the provided fields of an existing record. It never creates one.
func (c *Commands) Update(ctx context.Context, guildID, command string, update CommandUpdate) (*CommandConfig, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(command) == "" {
		return nil, validationf("command is required")
	}

	values := map[string]any{}
	if update.Description != nil {
		values["description"] = *update.Description
	}
	if update.Category != nil {
		if strings.TrimSpace(*update.Category) == "" {
			return nil, validationf("category must not be empty")
		}
		values["category"] = *update.Category
	}
	if update.Enabled != nil {
		values["enabled"] = *update.Enabled
	}
	lists := map[string][]string{
		"aliases":           update.Aliases,
		"enabled_roles":     update.EnabledRoles,
		"disabled_roles":    update.DisabledRoles,
		"enabled_channels":  update.EnabledChannels,
		"disabled_channels": update.DisabledChannels,
		"roles_skip_limit":  update.RolesSkipLimit,
	}
	for key, list := range lists {
		if list != nil {
			values[key] = cleanIDs(list)
		}
	}
	if update.Settings != nil {
		if err := validateCommandSettings(*update.Settings); err != nil {
			return nil, err
		}
		values["settings"] = *update.Settings
	}

	var out CommandConfig
	filter := storage.Filter{"guild_id": guildID, "command": command}
	if err := c.docs.set(ctx, "update command "+command, filter, values, false, &out); err != nil {
		return nil, err
	}
	out.IsPremium = c.premium.IsPremiumCommand(out.Command)
	return &out, nil
}

// Register inserts a new record. A second record for the same command in the
// same guild fails with ErrDuplicateName.
func (c *Commands) Register(ctx context.Context, guildID string, config CommandConfig) (*CommandConfig, error) {
	if err := requireGuild(guildID); err != nil {
		return nil, err
	}
	config.Command = strings.TrimSpace(config.Command)
	if config.Command == "" {
		return nil, validationf("command is required")
	}
	if err := validateCommandSettings(config.Settings); err != nil {
		return nil, err
	}
	if config.Description == "" {
		config.Description = DefaultCommandDescription
	}
	if config.Category == "" {
		config.Category = DefaultCommandCategory
	}

	now := c.docs.time.now()
	doc := map[string]any{
		"guild_id":          guildID,
		"command":           config.Command,
		"description":       config.Description,
		"category":          config.Category,
		"enabled":           config.Enabled,
		"aliases":           cleanIDs(config.Aliases),
		"enabled_roles":     cleanIDs(config.EnabledRoles),
		"disabled_roles":    cleanIDs(config.DisabledRoles),
		"enabled_channels":  cleanIDs(config.EnabledChannels),
		"disabled_channels": cleanIDs(config.DisabledChannels),
		"roles_skip_limit":  cleanIDs(config.RolesSkipLimit),
		"settings":          config.Settings,
		"created_at":        now,
		"updated_at":        now,
	}
	id, err := c.docs.coll.Insert(ctx, doc)
	if err != nil {
		return nil, translate("register command "+config.Command, err)
	}

	stored, err := c.docs.coll.FindOne(ctx, storage.Filter{"_id": id})
	if err != nil {
		return nil, translate("register command "+config.Command, err)
	}
	var out CommandConfig
	if err := c.docs.decode("register command "+config.Command, stored, &out); err != nil {
		return nil, err
	}
	out.IsPremium = c.premium.IsPremiumCommand(out.Command)
	return &out, nil
}

// Seed registers every catalogue command missing from the guild. Commands the
// guild already has are counted as skipped and left untouched.
func (c *Commands) Seed(ctx context.Context, guildID string, commands []catalogue.Command) (created, skipped int, err error) {
	for _, command := range commands {
		config := NewCommandConfig(command.Name, command.Description, command.Category)
		config.Aliases = append(config.Aliases, command.Aliases...)
		if _, err := c.Register(ctx, guildID, config); err != nil {
			if errors.Is(err, ErrDuplicateName) {
				skipped++
				continue
			}
			return created, skipped, err
		}
		created++
	}
	return created, skipped, nil
}

func validateCommandSettings(settings CommandSettings) error {
	if settings.MaxLimit < 0 {
		return validationf("settings.max_limit must not be negative")
	}
	if settings.ResponseDeleteDelay < 0 {
		return validationf("settings.response_delete_delay must not be negative")
	}
	return nil
}
