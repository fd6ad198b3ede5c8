package i18n_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/i18n"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
	"golang.org/x/text/language"
)

func newService(t *testing.T) *i18n.Service {
	t.Helper()

	svc, err := i18n.New(config.Server{I18n: config.I18n{DefaultLanguage: language.English}})
	require.NoError(t, err)

	return svc
}

func TestEveryReasonHasASummary(t *testing.T) {
	svc := newService(t)

	for _, tag := range svc.Tags() {
		for _, reason := range txfail.Reasons() {
			summary := svc.SummarizeIn(reason, tag)
			assert.NotEqual(t, "failure."+string(reason), summary, "%s in %s", reason, tag)
		}
	}
}

func TestTranslateFallsBackToDefaultLanguage(t *testing.T) {
	svc := newService(t)

	assert.Equal(t,
		svc.Translate("pipeline.signatureRequired", language.English),
		svc.Translate("pipeline.signatureRequired", language.Japanese),
	)
	assert.Equal(t, "Bestätige die Transaktion auf deinem Gerät.", svc.Translate("pipeline.signatureRequired", language.German))
	assert.Equal(t, "does.not.exist", svc.Translate("does.not.exist", language.English))
}

func TestParseAcceptLanguage(t *testing.T) {
	svc := newService(t)

	assert.Equal(t, language.German, svc.ParseAcceptLanguage("de-AT,de;q=0.9,en;q=0.8"))
	assert.Equal(t, language.English, svc.ParseAcceptLanguage("fr-FR"))
	assert.Equal(t, language.English, svc.ParseAcceptLanguage(""))
}

func TestSummarizeUsesDefaultLanguage(t *testing.T) {
	svc, err := i18n.New(config.Server{I18n: config.I18n{DefaultLanguage: language.German}})
	require.NoError(t, err)

	assert.Equal(t, "Die Transaktion wurde auf deinem Signiergerät abgelehnt.", svc.Summarize(txfail.ReasonSignerRejected))
}
