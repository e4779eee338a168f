package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DBPath      string
	TokenSecret string
	TokenTTL    time.Duration
	Debug       bool

	// Base URL of the public result viewer, used to build the deep link in
	// confirmation mails: {FrontendURL}/result/{token}
	FrontendURL string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	AdminEmail    string
	AdminPassword string

	// Question numbers feeding the dashboard charts.
	PieQuestions   []int
	RadarQuestions []int

	// Public endpoint throttling: RateLimit requests per RateWindow per client.
	RateLimit  int
	RateWindow time.Duration
}

func ParseFlags() (cfg Config, err error) {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	var host string
	flag.StringVar(&host, "host", envOr("HOST", "0.0.0.0"), "listen host name")
	var port uint
	flag.UintVar(&port, "port", uint(envOrInt("PORT", 8000)), "listen port number")
	flag.StringVar(&cfg.DBPath, "db-path", envOr("DB_PATH", "bigscreen.sqlite"), "path to SQLite3 DB file")
	flag.StringVar(&cfg.TokenSecret, "token-secret", envOr("TOKEN_SECRET", ""), "secret key for signing access tokens")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", uint(envOrInt("TOKEN_TTL", 3600)), "access token TTL in seconds")
	flag.BoolVar(&cfg.Debug, "debug", os.Getenv("DEBUG") == "true", "log at DEBUG level")

	flag.StringVar(&cfg.FrontendURL, "frontend-url", envOr("FRONTEND_URL", "http://localhost:8080"), "base URL of the public result viewer")

	flag.StringVar(&cfg.SMTPHost, "smtp-host", envOr("SMTP_HOST", ""), "SMTP host (empty disables confirmation mails)")
	flag.IntVar(&cfg.SMTPPort, "smtp-port", envOrInt("SMTP_PORT", 587), "SMTP port")
	flag.StringVar(&cfg.SMTPUser, "smtp-user", envOr("SMTP_USER", ""), "SMTP username")
	flag.StringVar(&cfg.SMTPPass, "smtp-pass", envOr("SMTP_PASS", ""), "SMTP password")
	flag.StringVar(&cfg.MailFrom, "mail-from", envOr("MAIL_FROM", "noreply@bigscreen.local"), "confirmation mail sender address")

	flag.StringVar(&cfg.AdminEmail, "admin-email", envOr("ADMIN_EMAIL", ""), "admin account to ensure at startup")
	flag.StringVar(&cfg.AdminPassword, "admin-password", envOr("ADMIN_PASSWORD", ""), "password for the bootstrapped admin account")

	var pie, radar string
	flag.StringVar(&pie, "pie-questions", envOr("PIE_QUESTIONS", "6,7,10"), "question numbers for dashboard pie charts (CSV)")
	flag.StringVar(&radar, "radar-questions", envOr("RADAR_QUESTIONS", "11,12,13,14,15"), "question numbers for the dashboard radar chart (CSV)")

	flag.IntVar(&cfg.RateLimit, "rate-limit", envOrInt("RATE_LIMIT", 10), "public endpoint requests per window per client")
	var window uint
	flag.UintVar(&window, "rate-window", uint(envOrInt("RATE_WINDOW", 60)), "public rate limit window in seconds")

	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.RateWindow = time.Duration(window) * time.Second

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
		return
	}

	cfg.PieQuestions, err = parseCSVInts(pie)
	if err != nil {
		return
	}
	cfg.RadarQuestions, err = parseCSVInts(radar)
	return
}

func (cfg Config) Url() string {
	url := cfg.Addr
	url = strings.Replace(url, "0.0.0.0", "localhost", 1)
	return "http://" + url
}

func (cfg Config) MailEnabled() bool {
	return cfg.SMTPHost != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseCSVInts(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.New("invalid question number list: " + s)
		}
		out = append(out, n)
	}
	return out, nil
}
