package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"github/chapool/go-txpipeline/internal/wallet/chain"
	"golang.org/x/text/language"
)

type EchoServer struct {
	Debug                         bool
	ListenAddress                 string
	EnableCORSMiddleware          bool
	EnableLoggerMiddleware        bool
	EnableRecoverMiddleware       bool
	EnableRequestIDMiddleware     bool
	EnableTrailingSlashMiddleware bool
}

type LoggerServer struct {
	Level              zerolog.Level
	RequestLevel       zerolog.Level
	PrettyPrintConsole bool
	Caller             bool
}

// Chain configures the RPC nodes and the contracts transactions are encoded against
type Chain struct {
	RPCURLs []string
	// ChainID overrides the node's chain id when non-zero
	ChainID             int64
	RequestTimeout      time.Duration
	GoldTokenAddress    string
	StableTokenAddress  string
	ExchangeAddress     string
	EscrowAddress       string
	NativeFeeCurrency   string
	SupportedCurrencies []string
}

const (
	SignerModeSoftware = "software"
	SignerModeConsole  = "console"
)

type Signer struct {
	// Mode is "software" (signs immediately) or "console" (operator confirms each transaction)
	Mode             string
	KeystorePath     string
	KeystorePassword string `json:"-"`
	Passphrase       string `json:"-"`
	PathTemplate     string
	AccountIndex     int
	ExpectedAddress  string
}

type Pipeline struct {
	SignerTimeout     time.Duration
	SignatureCacheTTL time.Duration
	FeeTTL            time.Duration
	MaxFeeCandidates  int
	FeeCurrency       string
}

type Database struct {
	Host             string
	Port             int
	Username         string
	Password         string `json:"-"`
	Database         string
	AdditionalParams map[string]string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ConnectionString generates a connection string to be passed to sql.Open or equivalents, assuming Postgres syntax
func (c Database) ConnectionString() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s", c.Host, c.Port, c.Username, c.Password, c.Database))

	if _, ok := c.AdditionalParams["sslmode"]; !ok {
		b.WriteString(" sslmode=disable")
	}

	if len(c.AdditionalParams) > 0 {
		params := make([]string, 0, len(c.AdditionalParams))
		for param := range c.AdditionalParams {
			params = append(params, param)
		}

		sort.Strings(params)

		for _, param := range params {
			fmt.Fprintf(&b, " %s=%s", param, c.AdditionalParams[param])
		}
	}

	return b.String()
}

type Journal struct {
	// Enabled switches the attempt journal from memory to Postgres
	Enabled  bool
	Database Database
}

type Events struct {
	// Enabled publishes state transitions to a Redis stream
	Enabled       bool
	RedisAddr     string
	RedisPassword string `json:"-"`
	RedisDB       int
	Stream        string
	MaxLen        int64
}

type I18n struct {
	DefaultLanguage language.Tag
}

type Management struct {
	ReadinessTimeout        time.Duration
	LivenessTimeout         time.Duration
	ProbeWriteablePathsAbs  []string
	ProbeWriteableTouchfile string
}

type Server struct {
	Logger     LoggerServer
	Echo       EchoServer
	Chain      Chain
	Signer     Signer
	Pipeline   Pipeline
	Journal    Journal
	Events     Events
	I18n       I18n
	Management Management
}

// DotEnvTryLoad forcefully overrides ENV variables through **a maybe available** .env file.
func DotEnvTryLoad(absolutePathToEnvFile string) {
	err := gotenv.OverLoad(absolutePathToEnvFile)
	if err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", absolutePathToEnvFile).Msg("Failed to load .env file")
	}
}

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined below.
// We don't expect that ENV_VARs change while we are running our application or our tests
// (and it would be a bad thing to do anyways with parallel testing).
// Do NOT use os.Setenv / os.Unsetenv in tests utilizing DefaultServiceConfigFromEnv()!
func DefaultServiceConfigFromEnv() Server {
	// An `.env.local` file in your project root can override the currently set ENV variables.
	//
	// We never automatically apply `.env.local` when running "go test" as these ENV variables
	// may be sensitive (e.g. secrets to external APIs) and applying them modifies the process
	// global "os.Env" state (it should be applied via t.Setenv instead).
	if !runningInTest() {
		if wd, err := os.Getwd(); err == nil {
			DotEnvTryLoad(filepath.Join(wd, ".env.local"))
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return Server{
		Logger: LoggerServer{
			Level:              parseLevel(v.GetString("SERVER_LOGGER_LEVEL"), zerolog.InfoLevel),
			RequestLevel:       parseLevel(v.GetString("SERVER_LOGGER_REQUEST_LEVEL"), zerolog.DebugLevel),
			PrettyPrintConsole: v.GetBool("SERVER_LOGGER_PRETTY_PRINT_CONSOLE"),
			Caller:             v.GetBool("SERVER_LOGGER_CALLER"),
		},
		Echo: EchoServer{
			Debug:                         v.GetBool("SERVER_ECHO_DEBUG"),
			ListenAddress:                 v.GetString("SERVER_ECHO_LISTEN_ADDRESS"),
			EnableCORSMiddleware:          v.GetBool("SERVER_ECHO_ENABLE_CORS_MIDDLEWARE"),
			EnableLoggerMiddleware:        v.GetBool("SERVER_ECHO_ENABLE_LOGGER_MIDDLEWARE"),
			EnableRecoverMiddleware:       v.GetBool("SERVER_ECHO_ENABLE_RECOVER_MIDDLEWARE"),
			EnableRequestIDMiddleware:     v.GetBool("SERVER_ECHO_ENABLE_REQUEST_ID_MIDDLEWARE"),
			EnableTrailingSlashMiddleware: v.GetBool("SERVER_ECHO_ENABLE_TRAILING_SLASH_MIDDLEWARE"),
		},
		Chain: Chain{
			RPCURLs:             chain.ParseRPCURLs(v.GetString("CHAIN_RPC_URLS")),
			ChainID:             v.GetInt64("CHAIN_ID"),
			RequestTimeout:      v.GetDuration("CHAIN_REQUEST_TIMEOUT"),
			GoldTokenAddress:    v.GetString("CHAIN_GOLD_TOKEN_ADDRESS"),
			StableTokenAddress:  v.GetString("CHAIN_STABLE_TOKEN_ADDRESS"),
			ExchangeAddress:     v.GetString("CHAIN_EXCHANGE_ADDRESS"),
			EscrowAddress:       v.GetString("CHAIN_ESCROW_ADDRESS"),
			NativeFeeCurrency:   v.GetString("CHAIN_NATIVE_FEE_CURRENCY"),
			SupportedCurrencies: splitList(v.GetString("CHAIN_SUPPORTED_CURRENCIES")),
		},
		Signer: Signer{
			Mode:             v.GetString("SIGNER_MODE"),
			KeystorePath:     v.GetString("SIGNER_KEYSTORE_PATH"),
			KeystorePassword: v.GetString("SIGNER_KEYSTORE_PASSWORD"),
			Passphrase:       v.GetString("SIGNER_BIP39_PASSPHRASE"),
			PathTemplate:     v.GetString("SIGNER_PATH_TEMPLATE"),
			AccountIndex:     v.GetInt("SIGNER_ACCOUNT_INDEX"),
			ExpectedAddress:  v.GetString("SIGNER_EXPECTED_ADDRESS"),
		},
		Pipeline: Pipeline{
			SignerTimeout:     v.GetDuration("PIPELINE_SIGNER_TIMEOUT"),
			SignatureCacheTTL: v.GetDuration("PIPELINE_SIGNATURE_CACHE_TTL"),
			FeeTTL:            v.GetDuration("PIPELINE_FEE_TTL"),
			MaxFeeCandidates:  v.GetInt("PIPELINE_MAX_FEE_CANDIDATES"),
			FeeCurrency:       v.GetString("PIPELINE_FEE_CURRENCY"),
		},
		Journal: Journal{
			Enabled: v.GetBool("JOURNAL_ENABLED"),
			Database: Database{
				Host:     v.GetString("PGHOST"),
				Port:     v.GetInt("PGPORT"),
				Database: v.GetString("PGDATABASE"),
				Username: v.GetString("PGUSER"),
				Password: v.GetString("PGPASSWORD"),
				AdditionalParams: map[string]string{
					"sslmode": v.GetString("PGSSLMODE"),
				},
				MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
				MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
				ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			},
		},
		Events: Events{
			Enabled:       v.GetBool("EVENTS_ENABLED"),
			RedisAddr:     v.GetString("EVENTS_REDIS_ADDR"),
			RedisPassword: v.GetString("EVENTS_REDIS_PASSWORD"),
			RedisDB:       v.GetInt("EVENTS_REDIS_DB"),
			Stream:        v.GetString("EVENTS_STREAM"),
			MaxLen:        v.GetInt64("EVENTS_STREAM_MAX_LEN"),
		},
		I18n: I18n{
			DefaultLanguage: language.Make(v.GetString("SERVER_I18N_DEFAULT_LANGUAGE")),
		},
		Management: Management{
			ReadinessTimeout:        v.GetDuration("SERVER_MANAGEMENT_READINESS_TIMEOUT"),
			LivenessTimeout:         v.GetDuration("SERVER_MANAGEMENT_LIVENESS_TIMEOUT"),
			ProbeWriteablePathsAbs:  splitList(v.GetString("SERVER_MANAGEMENT_PROBE_WRITEABLE_PATHS_ABS")),
			ProbeWriteableTouchfile: v.GetString("SERVER_MANAGEMENT_PROBE_WRITEABLE_TOUCHFILE"),
		},
	}
}

//nolint:mnd // defaults
func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_LOGGER_LEVEL", "info")
	v.SetDefault("SERVER_LOGGER_REQUEST_LEVEL", "debug")
	v.SetDefault("SERVER_LOGGER_PRETTY_PRINT_CONSOLE", false)
	v.SetDefault("SERVER_LOGGER_CALLER", false)

	v.SetDefault("SERVER_ECHO_DEBUG", false)
	v.SetDefault("SERVER_ECHO_LISTEN_ADDRESS", ":8080")
	v.SetDefault("SERVER_ECHO_ENABLE_CORS_MIDDLEWARE", true)
	v.SetDefault("SERVER_ECHO_ENABLE_LOGGER_MIDDLEWARE", true)
	v.SetDefault("SERVER_ECHO_ENABLE_RECOVER_MIDDLEWARE", true)
	v.SetDefault("SERVER_ECHO_ENABLE_REQUEST_ID_MIDDLEWARE", true)
	v.SetDefault("SERVER_ECHO_ENABLE_TRAILING_SLASH_MIDDLEWARE", true)

	// Celo Alfajores testnet
	v.SetDefault("CHAIN_RPC_URLS", "https://alfajores-forno.celo-testnet.org")
	v.SetDefault("CHAIN_ID", 0)
	v.SetDefault("CHAIN_REQUEST_TIMEOUT", 10*time.Second)
	v.SetDefault("CHAIN_GOLD_TOKEN_ADDRESS", "0xF194afDf50B03e69Bd7D057c1Aa9e10c9954E4C9")
	v.SetDefault("CHAIN_STABLE_TOKEN_ADDRESS", "0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1")
	v.SetDefault("CHAIN_EXCHANGE_ADDRESS", "0x17bc3304F94c85618c46d0888aA937148007bD3C")
	v.SetDefault("CHAIN_ESCROW_ADDRESS", "0xb07E10c5837c282209c6B9B3DE0eDBeF16319a37")
	v.SetDefault("CHAIN_NATIVE_FEE_CURRENCY", "CELO")
	v.SetDefault("CHAIN_SUPPORTED_CURRENCIES", "CELO,cUSD")

	v.SetDefault("SIGNER_MODE", SignerModeSoftware)
	v.SetDefault("SIGNER_KEYSTORE_PATH", "keystore/wallet.json")
	v.SetDefault("SIGNER_KEYSTORE_PASSWORD", "")
	v.SetDefault("SIGNER_BIP39_PASSPHRASE", "")
	v.SetDefault("SIGNER_PATH_TEMPLATE", "m/44'/52752'/0'/0/%d")
	v.SetDefault("SIGNER_ACCOUNT_INDEX", 0)
	v.SetDefault("SIGNER_EXPECTED_ADDRESS", "")

	v.SetDefault("PIPELINE_SIGNER_TIMEOUT", 30*time.Second)
	v.SetDefault("PIPELINE_SIGNATURE_CACHE_TTL", 10*time.Minute)
	v.SetDefault("PIPELINE_FEE_TTL", 60*time.Second)
	v.SetDefault("PIPELINE_MAX_FEE_CANDIDATES", 3)
	v.SetDefault("PIPELINE_FEE_CURRENCY", "CELO")

	v.SetDefault("JOURNAL_ENABLED", false)
	v.SetDefault("PGHOST", "postgres")
	v.SetDefault("PGPORT", 5432)
	v.SetDefault("PGDATABASE", "development")
	v.SetDefault("PGUSER", "dbuser")
	v.SetDefault("PGPASSWORD", "")
	v.SetDefault("PGSSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute)

	v.SetDefault("EVENTS_ENABLED", false)
	v.SetDefault("EVENTS_REDIS_ADDR", "localhost:6379")
	v.SetDefault("EVENTS_REDIS_PASSWORD", "")
	v.SetDefault("EVENTS_REDIS_DB", 0)
	v.SetDefault("EVENTS_STREAM", "txpipeline:events")
	v.SetDefault("EVENTS_STREAM_MAX_LEN", 10000)

	v.SetDefault("SERVER_I18N_DEFAULT_LANGUAGE", "en")

	v.SetDefault("SERVER_MANAGEMENT_READINESS_TIMEOUT", 4*time.Second)
	v.SetDefault("SERVER_MANAGEMENT_LIVENESS_TIMEOUT", 9*time.Second)
	v.SetDefault("SERVER_MANAGEMENT_PROBE_WRITEABLE_PATHS_ABS", "")
	v.SetDefault("SERVER_MANAGEMENT_PROBE_WRITEABLE_TOUCHFILE", ".healthy")
}

func parseLevel(s string, fallback zerolog.Level) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return fallback
	}

	return level
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

func runningInTest() bool {
	return strings.HasSuffix(os.Args[0], ".test")
}
