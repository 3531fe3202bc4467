package config

import (
	"crypto/rsa"
	"encoding/base64"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"
	"github.com/poofware/inventory-service/internal/utils"
)

// Config holds all application configuration, including secrets, flags, etc.
type Config struct {
	OrganizationName          string
	AppName                   string
	AppPort                   string
	AppUrl                    string
	DBUrl                     string
	RedisURL                  string
	SendGridAPIKey            string
	RSAPrivateKey             *rsa.PrivateKey
	RSAPublicKey              *rsa.PublicKey
	TokenExpiry               time.Duration
	OTPLength                 int
	OTPExpiry                 time.Duration
	MaxOTPAttempts            int
	TempPasswordLength        int
	OverdueCron               string
	CleanupCron               string
	AllowedOrigins            []string
	EmailLimitPerIPPerHour    int
	EmailLimitPerEmailPerHour int
	GlobalEmailLimitPerHour   int
	LoginLimitPerIPPerHour    int
	LoginLimitPerEmailPerHour int
	RateLimitWindow           time.Duration
	SeedAdminEmail            string
	SeedAdminPassword         string

	// Static flags fetched once from LaunchDarkly (or their env defaults)
	LDFlag_SendgridFromEmail   string
	LDFlag_SendgridSandboxMode bool
	LDFlag_CORSHighSecurity    bool
	LDFlag_OverdueEmailDigest  bool
	LDFlag_UseCodeSequence     bool
}

const (
	OrganizationName                 = "Inventory"
	DefaultAppName                   = "inventory-service"
	DefaultAppPort                   = "8080"
	DefaultTokenExpiry               = 8 * time.Hour
	DefaultOTPLength                 = 6
	DefaultOTPExpiry                 = 10 * time.Minute
	DefaultMaxOTPAttempts            = 5
	DefaultTempPasswordLength        = 8
	DefaultOverdueCron               = "0 8 * * *"
	DefaultCleanupCron               = "0 3 * * *"
	DefaultEmailLimitPerIPPerHour    = 50
	DefaultEmailLimitPerEmailPerHour = 5
	DefaultGlobalEmailLimitPerHour   = 2000
	DefaultLoginLimitPerIPPerHour    = 100
	DefaultLoginLimitPerEmailPerHour = 20
	DefaultRateLimitWindow           = 1 * time.Hour
	LDConnectionTimeout              = 5 * time.Second
	LDServerContextKind              = "service"
)

// AppName may be overridden with -ldflags at build time.
var AppName = DefaultAppName

// LoadConfig reads the environment (after an optional .env file), applies
// LaunchDarkly flags when LD_SDK_KEY is set and returns a *Config. Missing
// required values are fatal.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		utils.Logger.WithError(err).Warn("Failed to load .env file")
	}

	appName := envOr("APP_NAME", AppName)
	utils.Logger.Info("Loading config for app: ", appName)

	cfg := &Config{
		OrganizationName:          OrganizationName,
		AppName:                   appName,
		AppPort:                   envOr("APP_PORT", DefaultAppPort),
		AppUrl:                    strings.TrimRight(mustEnv("APP_URL"), "/"),
		DBUrl:                     mustEnv("DATABASE_URL"),
		RedisURL:                  os.Getenv("REDIS_URL"),
		SendGridAPIKey:            mustEnv("SENDGRID_API_KEY"),
		TokenExpiry:               envDuration("TOKEN_EXPIRY", DefaultTokenExpiry),
		OTPLength:                 DefaultOTPLength,
		OTPExpiry:                 envDuration("OTP_EXPIRY", DefaultOTPExpiry),
		MaxOTPAttempts:            envInt("MAX_OTP_ATTEMPTS", DefaultMaxOTPAttempts),
		TempPasswordLength:        DefaultTempPasswordLength,
		OverdueCron:               envOr("OVERDUE_CRON", DefaultOverdueCron),
		CleanupCron:               envOr("CLEANUP_CRON", DefaultCleanupCron),
		AllowedOrigins:            splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		EmailLimitPerIPPerHour:    envInt("EMAIL_LIMIT_PER_IP_PER_HOUR", DefaultEmailLimitPerIPPerHour),
		EmailLimitPerEmailPerHour: envInt("EMAIL_LIMIT_PER_EMAIL_PER_HOUR", DefaultEmailLimitPerEmailPerHour),
		GlobalEmailLimitPerHour:   envInt("GLOBAL_EMAIL_LIMIT_PER_HOUR", DefaultGlobalEmailLimitPerHour),
		LoginLimitPerIPPerHour:    envInt("LOGIN_LIMIT_PER_IP_PER_HOUR", DefaultLoginLimitPerIPPerHour),
		LoginLimitPerEmailPerHour: envInt("LOGIN_LIMIT_PER_EMAIL_PER_HOUR", DefaultLoginLimitPerEmailPerHour),
		RateLimitWindow:           envDuration("RATE_LIMIT_WINDOW", DefaultRateLimitWindow),
		SeedAdminEmail:            os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:         os.Getenv("SEED_ADMIN_PASSWORD"),

		LDFlag_SendgridFromEmail:   os.Getenv("SENDGRID_FROM_EMAIL"),
		LDFlag_SendgridSandboxMode: envBool("SENDGRID_SANDBOX_MODE", false),
		LDFlag_CORSHighSecurity:    envBool("CORS_HIGH_SECURITY", false),
		LDFlag_OverdueEmailDigest:  envBool("OVERDUE_EMAIL_DIGEST", false),
		LDFlag_UseCodeSequence:     envBool("USE_CODE_SEQUENCE", true),
	}

	var err error
	cfg.RSAPrivateKey, cfg.RSAPublicKey, err = ParseRSAKeys(
		mustEnv("RSA_PRIVATE_KEY_BASE64"),
		mustEnv("RSA_PUBLIC_KEY_BASE64"),
	)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA key pair")
	}

	if key := os.Getenv("LD_SDK_KEY"); key != "" {
		applyLaunchDarklyFlags(cfg, key)
	} else {
		utils.Logger.Info("LD_SDK_KEY not set; using environment flag defaults")
	}

	if cfg.LDFlag_SendgridFromEmail == "" {
		utils.Logger.Fatal("sendgrid_from_email is empty (set SENDGRID_FROM_EMAIL or the LaunchDarkly flag)")
	}
	return cfg
}

func applyLaunchDarklyFlags(cfg *Config, sdkKey string) {
	ldClient, err := ld.MakeClient(sdkKey, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	defer ldClient.Close()
	if !ldClient.Initialized() {
		utils.Logger.Fatal("LaunchDarkly client failed to initialize")
	}

	context := ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), cfg.AppName)

	if v, err := ldClient.StringVariation("sendgrid_from_email", context, cfg.LDFlag_SendgridFromEmail); err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving sendgrid_from_email flag")
	} else {
		cfg.LDFlag_SendgridFromEmail = v
	}

	boolFlags := []struct {
		key string
		dst *bool
	}{
		{"sendgrid_sandbox_mode", &cfg.LDFlag_SendgridSandboxMode},
		{"cors_high_security", &cfg.LDFlag_CORSHighSecurity},
		{"overdue_email_digest", &cfg.LDFlag_OverdueEmailDigest},
		{"use_code_sequence", &cfg.LDFlag_UseCodeSequence},
	}
	for _, f := range boolFlags {
		v, err := ldClient.BoolVariation(f.key, context, *f.dst)
		if err != nil {
			utils.Logger.WithError(err).Fatalf("Error retrieving %s flag", f.key)
		}
		*f.dst = v
		utils.Logger.Debugf("%s flag: %t", f.key, v)
	}
}

// ParseRSAKeys decodes base64-wrapped PEM keys.
func ParseRSAKeys(privateB64, publicB64 string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privPEM, err := base64.StdEncoding.DecodeString(privateB64)
	if err != nil {
		return nil, nil, err
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, nil, err
	}
	pubPEM, err := base64.StdEncoding.DecodeString(publicB64)
	if err != nil {
		return nil, nil, err
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

func mustEnv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		utils.Logger.Fatalf("%s env var is missing", key)
	}
	return v
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		utils.Logger.Warnf("Invalid %s '%s', using %d", key, v, def)
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		utils.Logger.Warnf("Invalid %s '%s', using %t", key, v, def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		utils.Logger.Warnf("Invalid %s '%s', using %s", key, v, def)
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
