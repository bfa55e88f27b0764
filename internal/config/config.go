package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")
	ErrMissingTokenKey    = errors.New("TOKEN_KEY environment variable is required")
	ErrMissingAppURL      = errors.New("APP_URL environment variable is required")
	ErrMissingSMTPSender  = errors.New("SENDER_MAIL_ADDRESS and MAIL_APP_KEY are required for local mail")
	ErrMissingSESSender   = errors.New("SENDER_EMAIL_ADDRESS is required for hosted mail")
	ErrUnexpectedArgs     = errors.New("unexpected command line arguments")
	ErrMissingRecaptcha   = errors.New("RECAPTCHA_SECRET_KEY is required unless reCAPTCHA is disabled")
	ErrInvalidProxy       = errors.New("TRUSTED_PROXIES must list IP addresses or CIDR prefixes")
)

// Config is read once at boot and passed by pointer afterwards.
type Config struct {
	Port   string
	AppURL string
	Domain string

	DatabaseURL        string
	DBMaxOpenConns     int
	DBAcquireTimeout   time.Duration
	TokenKey           string
	ResetPasswordHash  string
	RecaptchaSecretKey string
	AllowedOrigins     []string
	// TrustedProxies are the peers whose X-Forwarded-For is believed.
	TrustedProxies    []netip.Prefix
	proxyErr          error
	TokenGenPerMinute int
	Location          *time.Location

	// Flags
	SameStudentEnable bool
	LocalMailEnable   bool
	RecaptchaDisable  bool

	// SMTP (local mail)
	SMTPHost          string
	SMTPPort          int
	SenderMailAddress string
	MailAppKey        string

	// Hosted mail (SES)
	SenderEmailAddress string
	AWSRegion          string
	MailTimeout        time.Duration

	// Google Form updater
	OAuthURI          string
	OAuthClientID     string
	OAuthClientSecret string
	GFormUpdateURL    string
}

// Flags are the boot flags accepted by the server binary.
type Flags struct {
	SameStudent bool
	LocalMail   bool
	NoRecaptcha bool
	Port        string
}

// ParseFlags parses args (without the program name). Positional arguments
// and unknown flags are rejected.
func ParseFlags(args []string) (Flags, error) {
	var f Flags
	fs := pflag.NewFlagSet("locker-backend", pflag.ContinueOnError)
	fs.BoolVar(&f.SameStudent, "same-student", false, "allow the same student id for both pair members")
	fs.BoolVar(&f.LocalMail, "local-mail", false, "send mail through the SMTP relay instead of SES")
	fs.BoolVar(&f.NoRecaptcha, "no-recaptcha", false, "accept token-gen without reCAPTCHA (local development only)")
	fs.StringVar(&f.Port, "port", "", "listen port (overrides PORT)")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	if fs.NArg() > 0 {
		return Flags{}, fmt.Errorf("%w: %s", ErrUnexpectedArgs, strings.Join(fs.Args(), " "))
	}
	return f, nil
}

// Load reads the environment. Call godotenv before Load if a .env file is used.
func Load(flags Flags) *Config {
	cfg := &Config{
		Port:   getenv("PORT", "5050"),
		AppURL: strings.TrimRight(os.Getenv("APP_URL"), "/"),
		Domain: os.Getenv("DOMAIN"),

		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBMaxOpenConns:     getenvInt("DB_MAX_OPEN_CONNS", 20),
		DBAcquireTimeout:   getenvDuration("DB_ACQUIRE_TIMEOUT", 5*time.Second),
		TokenKey:           os.Getenv("TOKEN_KEY"),
		ResetPasswordHash:  os.Getenv("LOCKER_RESET_PASSWORD_HASH"),
		RecaptchaSecretKey: os.Getenv("RECAPTCHA_SECRET_KEY"),
		AllowedOrigins:     getenvList("ALLOWED_ORIGINS"),
		TokenGenPerMinute:  getenvInt("TOKEN_GEN_RATE_PER_MIN", 10),
		Location:           loadLocation(getenv("TIMEZONE", "Asia/Tokyo")),

		SameStudentEnable: flags.SameStudent || getenvBool("SAME_STUDENT_ENABLE", false),
		LocalMailEnable:   flags.LocalMail || getenvBool("LOCAL_MAIL_ENABLE", false),
		RecaptchaDisable:  flags.NoRecaptcha || getenvBool("RECAPTCHA_DISABLE", false),

		SMTPHost:          getenv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:          getenvInt("SMTP_PORT", 587),
		SenderMailAddress: os.Getenv("SENDER_MAIL_ADDRESS"),
		MailAppKey:        os.Getenv("MAIL_APP_KEY"),

		SenderEmailAddress: os.Getenv("SENDER_EMAIL_ADDRESS"),
		AWSRegion:          getenv("AWS_REGION", "ap-northeast-1"),
		MailTimeout:        getenvDuration("MAIL_TIMEOUT", 30*time.Second),

		OAuthURI:          os.Getenv("OAUTH_URI"),
		OAuthClientID:     os.Getenv("OAUTH_CLIENT_ID"),
		OAuthClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
		GFormUpdateURL:    os.Getenv("GFORM_UPDATE_URL"),
	}
	if flags.Port != "" {
		cfg.Port = flags.Port
	}
	cfg.TrustedProxies, cfg.proxyErr = parsePrefixes(getenvList("TRUSTED_PROXIES"))
	return cfg
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.TokenKey == "" {
		return ErrMissingTokenKey
	}
	if c.AppURL == "" {
		return ErrMissingAppURL
	}
	if c.RecaptchaSecretKey == "" && !c.RecaptchaDisable {
		return ErrMissingRecaptcha
	}
	if c.proxyErr != nil {
		return c.proxyErr
	}
	if c.LocalMailEnable {
		if c.SenderMailAddress == "" || c.MailAppKey == "" {
			return ErrMissingSMTPSender
		}
	} else if c.SenderEmailAddress == "" {
		return ErrMissingSESSender
	}
	return nil
}

// Now returns the current time in the configured campus timezone.
func (c *Config) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Containers without tzdata still need JST for the registration year.
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// parsePrefixes accepts bare addresses as single-host prefixes.
func parsePrefixes(values []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, v := range values {
		if p, err := netip.ParsePrefix(v); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, v)
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}
