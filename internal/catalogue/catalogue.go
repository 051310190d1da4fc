package catalogue

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed commands.yaml
var builtinCommands []byte

var PremiumFilters = []string{"ai_moderation"}

type Command struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Aliases     []string `yaml:"aliases"`
	Premium     bool     `yaml:"premium"`
}

type file struct {
	Commands []Command `yaml:"commands"`
}

// Builtin returns the command catalogue shipped with the binary.
func Builtin() []Command {
	commands, err := Parse(strings.NewReader(string(builtinCommands)))
	if err != nil {
		panic(fmt.Sprintf("builtin command catalogue: %v", err))
	}
	return commands
}

func Load(path string) ([]Command, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) ([]Command, error) {
	var parsed file
	if err := yaml.NewDecoder(r).Decode(&parsed); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for i, command := range parsed.Commands {
		name := strings.TrimSpace(command.Name)
		if name == "" {
			return nil, fmt.Errorf("command %d has no name", i)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("command %q listed twice", name)
		}
		seen[name] = struct{}{}
		parsed.Commands[i].Name = name
	}
	sort.Slice(parsed.Commands, func(i, j int) bool {
		return parsed.Commands[i].Name < parsed.Commands[j].Name
	})
	return parsed.Commands, nil
}

// PremiumCommands lists the names flagged premium in commands.
func PremiumCommands(commands []Command) []string {
	var names []string
	for _, command := range commands {
		if command.Premium {
			names = append(names, command.Name)
		}
	}
	return names
}

// Premium answers whether a filter or command is gated behind premium.
type Premium struct {
	filters  map[string]struct{}
	commands map[string]struct{}
}

func NewPremium(filters, commands []string) *Premium {
	return &Premium{filters: toSet(filters), commands: toSet(commands)}
}

func DefaultPremium() *Premium {
	return NewPremium(PremiumFilters, PremiumCommands(Builtin()))
}

func (p *Premium) IsPremiumFilter(name string) bool {
	_, ok := p.filters[name]
	return ok
}

func (p *Premium) IsPremiumCommand(name string) bool {
	_, ok := p.commands[name]
	return ok
}

func (p *Premium) Filters() []string {
	return fromSet(p.filters)
}

func (p *Premium) Commands() []string {
	return fromSet(p.commands)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			set[value] = struct{}{}
		}
	}
	return set
}

func fromSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
