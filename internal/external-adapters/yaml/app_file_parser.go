// Package yaml provides the YAML app-file parser and repository.
package yaml

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// yamlApp represents one alias/platform entry of the app file
type yamlApp struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Identifier  string     `yaml:"identifier" validate:"omitempty,excludesall= /"`
	Homepage    string     `yaml:"homepage" validate:"omitempty,url"`
	License     string     `yaml:"license"`
	Icon        string     `yaml:"icon"`
	Images      stringList `yaml:"images"`
	Repository  string     `yaml:"repository" validate:"omitempty,url"`
	APKRegex    string     `yaml:"apkRegex" validate:"omitempty,regexp"`
	Npub        string     `yaml:"npub" validate:"omitempty,startswith=npub1|hexadecimal"`
	Tags        stringList `yaml:"tags"`
}

// stringList accepts either a YAML sequence or a whitespace-separated scalar
type stringList []string

// UnmarshalYAML implements yaml.Unmarshaler
func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = strings.Fields(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a list or a string", node.Line)
	}
}

// AppFileParser parses app files: alias -> platform -> app fields
type AppFileParser struct {
	validate *validator.Validate
}

// NewAppFileParser creates a new app-file parser
func NewAppFileParser() *AppFileParser {
	v := validator.New()
	_ = v.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})
	return &AppFileParser{validate: v}
}

// ParseFile parses an app file from disk
func (p *AppFileParser) ParseFile(filePath string) ([]*entities.AppConfig, error) {
	//nolint:gosec // G304: filePath is the configured app file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into app configs ordered by alias, then platform
func (p *AppFileParser) Parse(data []byte) ([]*entities.AppConfig, error) {
	var raw map[string]map[string]*yamlApp
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	apps := make([]*entities.AppConfig, 0, len(raw))
	for alias, platforms := range raw {
		if alias == "" {
			return nil, fmt.Errorf("app entry must have an alias")
		}
		for platform, ya := range platforms {
			if ya == nil {
				ya = &yamlApp{}
			}
			if err := p.validate.Struct(ya); err != nil {
				return nil, fmt.Errorf("app %s (%s): %w", alias, platform, err)
			}
			apps = append(apps, convertApp(alias, platform, ya))
		}
	}

	sort.Slice(apps, func(i, j int) bool {
		if apps[i].Alias != apps[j].Alias {
			return apps[i].Alias < apps[j].Alias
		}
		return apps[i].Platform < apps[j].Platform
	})
	return apps, nil
}

func convertApp(alias, platform string, ya *yamlApp) *entities.AppConfig {
	return &entities.AppConfig{
		Alias:       alias,
		Platform:    platform,
		Identifier:  strings.TrimSpace(ya.Identifier),
		Name:        ya.Name,
		Description: ya.Description,
		Homepage:    ya.Homepage,
		License:     ya.License,
		Icon:        ya.Icon,
		Images:      ya.Images,
		Repository:  strings.TrimSpace(ya.Repository),
		APKRegex:    ya.APKRegex,
		Npub:        strings.TrimSpace(ya.Npub),
		Topics:      ya.Tags,
	}
}
