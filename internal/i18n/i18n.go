// Package i18n localizes API messages. Translations are embedded JSON files
// loaded with go-i18n.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

var (
	bundle      *i18n.Bundle
	defaultLang language.Tag
)

// Init loads the translation bundle. lang is the language used when a
// request asks for none of the available ones.
func Init(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := fs.Glob(localeFS, "locales/*.json")
	if err != nil {
		return fmt.Errorf("list locales: %w", err)
	}
	for _, name := range files {
		data, err := localeFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read locale file %s: %w", name, err)
		}
		mf, err := b.ParseMessageFileBytes(data, name)
		if err != nil {
			return fmt.Errorf("parse locale file %s: %w", name, err)
		}
		slog.Debug("loaded locale file", "file", name, "lang", mf.Tag, "messages", len(mf.Messages))
	}

	bundle, defaultLang = b, tag
	return nil
}

// NewLocalizer creates a localizer for the given language.
func NewLocalizer(lang string) *i18n.Localizer {
	return i18n.NewLocalizer(bundle, lang)
}

// WithLocalizer stores a localizer in the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) (string, error) {
	loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer)
	if !ok {
		loc = i18n.NewLocalizer(bundle, defaultLang.String())
	}
	return loc.Localize(cfg)
}

// mustLocalize returns the message id itself when no translation exists.
func mustLocalize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	s, err := localize(ctx, cfg)
	if err != nil {
		slog.Warn("missing translation", "id", cfg.MessageID, "error", err)
		return cfg.MessageID
	}
	return s
}

// T translates a message by ID.
func T(ctx context.Context, msgID string) string {
	return mustLocalize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	return mustLocalize(ctx, &i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
}

// Tp translates a pluralized message; the count is available as {{.Count}}.
func Tp(ctx context.Context, msgID string, count int) string {
	return mustLocalize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

// TdOr is Td with a second message id tried when msgID has no translation.
func TdOr(ctx context.Context, msgID, fallbackID string, data map[string]any) string {
	if s, err := localize(ctx, &i18n.LocalizeConfig{MessageID: msgID, TemplateData: data}); err == nil {
		return s
	}
	return Td(ctx, fallbackID, data)
}

// Languages returns the loaded languages, default first.
func Languages() []language.Tag {
	tags := []language.Tag{defaultLang}
	for _, t := range bundle.LanguageTags() {
		if t != defaultLang {
			tags = append(tags, t)
		}
	}
	return tags
}
