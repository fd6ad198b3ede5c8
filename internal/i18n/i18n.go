package i18n

import (
	"embed"
	"io/fs"
	"path"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
	"golang.org/x/text/language"
)

//go:embed messages/*.toml
var messages embed.FS

// Data is passed to message templates
type Data map[string]any

// Service translates message keys into the languages bundled with the binary
type Service struct {
	bundle          *i18n.Bundle
	matcher         language.Matcher
	defaultLanguage language.Tag
}

// New loads every message file and falls back to cfg.I18n.DefaultLanguage
func New(cfg config.Server) (*Service, error) {
	defaultLanguage := cfg.I18n.DefaultLanguage
	if defaultLanguage == language.Und {
		defaultLanguage = language.English
	}

	bundle := i18n.NewBundle(defaultLanguage)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(messages, "messages/*.toml")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list message files")
	}

	for _, file := range files {
		if _, err := bundle.LoadMessageFileFS(messages, file); err != nil {
			return nil, errors.Wrapf(err, "failed to load message file %s", path.Base(file))
		}
	}

	return &Service{
		bundle:          bundle,
		matcher:         language.NewMatcher(bundle.LanguageTags()),
		defaultLanguage: defaultLanguage,
	}, nil
}

// Translate returns the message for key in lang. Missing keys yield the key itself.
func (s *Service) Translate(key string, lang language.Tag, data ...Data) string {
	localizer := i18n.NewLocalizer(s.bundle, lang.String(), s.defaultLanguage.String())

	cfg := &i18n.LocalizeConfig{MessageID: key}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}

	msg, err := localizer.Localize(cfg)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Str("lang", lang.String()).Msg("Failed to translate message")
		return key
	}

	return msg
}

// TranslatePlural is Translate with a plural count
func (s *Service) TranslatePlural(key string, count any, lang language.Tag, data ...Data) string {
	localizer := i18n.NewLocalizer(s.bundle, lang.String(), s.defaultLanguage.String())

	cfg := &i18n.LocalizeConfig{MessageID: key, PluralCount: count}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}

	msg, err := localizer.Localize(cfg)
	if err != nil {
		return key
	}

	return msg
}

// ParseAcceptLanguage picks the best bundled language for an Accept-Language header
func (s *Service) ParseAcceptLanguage(header string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return s.defaultLanguage
	}

	tag, _, _ := s.matcher.Match(tags...)
	base, _ := tag.Base()

	return language.Make(base.String())
}

// Summarize returns the user-facing summary of a failure reason in the default language
func (s *Service) Summarize(reason txfail.Reason) string {
	return s.SummarizeIn(reason, s.defaultLanguage)
}

// SummarizeIn returns the summary of reason in lang
func (s *Service) SummarizeIn(reason txfail.Reason, lang language.Tag) string {
	return s.Translate("failure."+string(reason), lang)
}

// Tags lists the bundled languages
func (s *Service) Tags() []language.Tag {
	return s.bundle.LanguageTags()
}
