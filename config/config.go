package config

import (
	"strings"
	"time"

	"rdpmon/utils"
)

// Config carries all startup settings. Values come from the
// environment; the webhook URL may also be supplied on the command
// line, which takes precedence.
type Config struct {
	Port         int
	DataPath     string
	PublicDir    string
	StoreBackend string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	RedisURL string
	CacheTTL time.Duration

	WebhookURL    string
	WebhookSource string

	DashboardPublicURL      string
	DashboardPublicProtocol string
	DashboardPublicPort     int
}

// Load reads the environment and the command-line arguments.
// `--webhook` and `--slack-webhook` are accepted, either as
// `--webhook=URL` or as a separate value argument.
func Load(args []string) Config {
	cfg := Config{
		Port:         utils.GetEnvAsInt("PORT", 3000),
		DataPath:     utils.GetEnvAsString("DATA_PATH", "data/state.json"),
		PublicDir:    utils.GetEnvAsString("PUBLIC_DIR", "public"),
		StoreBackend: utils.GetEnvAsString("STORE_BACKEND", "file"),

		MongoURI:        utils.GetEnvAsString("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   utils.GetEnvAsString("MONGO_DB", "rdpmon"),
		MongoCollection: utils.GetEnvAsString("MONGO_COLLECTION", "state"),

		RedisURL: utils.GetEnvAsString("REDIS_URL", ""),
		CacheTTL: time.Duration(utils.GetEnvAsInt("CACHE_TTL_SECONDS", 5)) * time.Second,

		DashboardPublicProtocol: utils.GetEnvAsString("DASHBOARD_PUBLIC_PROTOCOL", "http"),
		DashboardPublicPort:     utils.GetEnvAsInt("DASHBOARD_PUBLIC_PORT", 0),
	}

	cfg.DashboardPublicURL = utils.GetEnvAsString("DASHBOARD_PUBLIC_URL", "")
	if cfg.DashboardPublicURL == "" {
		cfg.DashboardPublicURL = utils.GetEnvAsString("PUBLIC_DASHBOARD_URL", "")
	}

	cfg.WebhookURL = utils.GetEnvAsString("SLACK_WEBHOOK_URL", "")
	cfg.WebhookSource = "SLACK_WEBHOOK_URL"
	if url, ok := webhookFromArgs(args); ok {
		cfg.WebhookURL = url
		cfg.WebhookSource = "command line"
	}

	return cfg
}

func webhookFromArgs(args []string) (string, bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--webhook" || arg == "--slack-webhook":
			if i+1 < len(args) {
				return args[i+1], true
			}
			return "", true
		case strings.HasPrefix(arg, "--webhook="):
			return strings.TrimPrefix(arg, "--webhook="), true
		case strings.HasPrefix(arg, "--slack-webhook="):
			return strings.TrimPrefix(arg, "--slack-webhook="), true
		}
	}
	return "", false
}
