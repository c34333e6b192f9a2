package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultMaxPhotoBytes = 10 * 1024 * 1024 // 10 MiB

type Config struct {
	ListenAddr    string
	DBPath        string
	PhotoBackend  string
	PhotoPath     string
	PublicBaseURL string
	ZoneCount     int
	MaxPhotoBytes int64
	LogLevel      string
	LogFile       string

	SMTPHost            string
	SMTPPort            int
	SMTPUser            string
	SMTPPass            string
	EmailFrom           string
	ApproverEmail       string
	ZoneManagerEmails   map[int]string
	DefaultManagerEmail string
	NotifyDisabled      bool
	NotifyTimeout       time.Duration
	BlobTimeout         time.Duration
}

// Load reads configuration from the environment, first merging in a .env file
// if one exists in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "/data/zonetrack.db"),
		PhotoBackend:  getEnv("PHOTO_BACKEND", "local"),
		PhotoPath:     getEnv("PHOTO_LOCAL_PATH", "/data/uploads"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		ZoneCount:     getEnvInt("ZONE_COUNT", 13),
		MaxPhotoBytes: int64(getEnvInt("MAX_PHOTO_BYTES", defaultMaxPhotoBytes)),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),

		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            getEnvInt("SMTP_PORT", 587),
		SMTPUser:            getEnv("SMTP_USER", ""),
		SMTPPass:            getEnv("SMTP_PASS", ""),
		EmailFrom:           getEnv("EMAIL_FROM", ""),
		ApproverEmail:       getEnv("APPROVER_EMAIL", ""),
		ZoneManagerEmails:   parseZoneEmails(getEnv("ZONE_MANAGER_EMAILS", "")),
		DefaultManagerEmail: getEnv("DEFAULT_MANAGER_EMAIL", ""),
		NotifyDisabled:      os.Getenv("NOTIFY_DISABLED") == "1",
		NotifyTimeout:       getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
		BlobTimeout:         getEnvDuration("BLOB_TIMEOUT", 30*time.Second),
	}
}

// ManagerEmail returns the notification address for a zone's manager, falling
// back to the deployment-wide default address.
func (c *Config) ManagerEmail(zoneID int) string {
	if email, ok := c.ZoneManagerEmails[zoneID]; ok {
		return email
	}
	return c.DefaultManagerEmail
}

// parseZoneEmails parses "1=a@x.com,2=b@y.com" into a zone-id keyed map.
// Malformed entries are skipped.
func parseZoneEmails(s string) map[int]string {
	out := make(map[int]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, email, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		zoneID, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil || zoneID <= 0 {
			continue
		}
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		out[zoneID] = email
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
