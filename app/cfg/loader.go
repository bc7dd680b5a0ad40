package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	Store      string `long:"store" env:"STORE" default:"csv" choice:"csv" choice:"sqlite" description:"Storage backend for collected rows"`
	OutputCSV  string `long:"output-csv" env:"OUTPUT_CSV" default:"data/jobs.csv" description:"Path of the CSV file rows are appended to"`
	SQLitePath string `long:"sqlite-path" env:"SQLITE_PATH" default:"data/jobs.db" description:"Path of the SQLite database (store=sqlite)"`

	// Skill extraction
	SkillList string `long:"skills" env:"SKILL_LIST" default:"python, sql, pandas" description:"Comma-separated skill whitelist (empty scans the full catalog)"`

	// Sources
	LeverCompanies    string        `long:"lever-companies" env:"LEVER_COMPANIES" description:"Comma-separated Lever account slugs"`
	GreenhouseBoards  string        `long:"greenhouse-boards" env:"GREENHOUSE_BOARDS" description:"Comma-separated Greenhouse board tokens"`
	GreenhouseContent bool          `long:"greenhouse-content" env:"GREENHOUSE_CONTENT" description:"Request full job descriptions from Greenhouse"`
	FeedsDir          string        `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing RSS feed configuration files"`
	FetchTimeout      time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30s" description:"Timeout for a single source request"`
	FetchWorkers      int           `long:"fetch-workers" env:"FETCH_WORKERS" default:"4" description:"Number of sources fetched in parallel"`

	// Response cache
	RedisAddr     string        `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for caching source responses (optional)"`
	RedisPassword string        `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB       int           `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`
	CacheTTL      time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"15m" description:"How long source responses stay cached (capped to half of COLLECT_INTERVAL while serving)"`

	// Alerts
	EmailFrom        string `long:"email-from" env:"EMAIL_FROM" description:"Alert sender address"`
	EmailTo          string `long:"email-to" env:"EMAIL_TO" description:"Alert recipient address"`
	EmailAppPassword string `long:"email-app-password" env:"EMAIL_APP_PASSWORD" description:"SMTP password for the sender"`
	SMTPHost         string `long:"smtp-host" env:"SMTP_HOST" default:"smtp.gmail.com" description:"SMTP server host"`
	SMTPPort         int    `long:"smtp-port" env:"SMTP_PORT" default:"465" description:"SMTP server port (implicit TLS)"`
	AlertTargetSkill string `long:"alert-skill" env:"ALERT_TARGET_SKILL" default:"python" description:"Skill watched for mention spikes"`
	AlertMinMentions int    `long:"alert-min-mentions" env:"ALERT_MIN_MENTIONS" default:"10" description:"Mentions needed before an alert is sent"`

	// Dashboard
	Port            string        `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	CollectInterval time.Duration `long:"collect-interval" env:"COLLECT_INTERVAL" default:"0s" description:"Run a collection periodically while serving (0 disables)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"JobSkillsTrendBot/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

type collectCommand struct{}

type serveCommand struct{}

// Load reads .env (if present), environment variables and command-line
// arguments. It returns nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.SubcommandsOptional = true

	if _, err := parser.AddCommand(CommandCollect, "Collect postings once",
		"Fetch every configured source, extract skills, append rows and send alerts.", &collectCommand{}); err != nil {
		return nil, fmt.Errorf("failed to register %s command: %w", CommandCollect, err)
	}
	if _, err := parser.AddCommand(CommandServe, "Serve the dashboard",
		"Serve the skills dashboard and optionally collect on an interval.", &serveCommand{}); err != nil {
		return nil, fmt.Errorf("failed to register %s command: %w", CommandServe, err)
	}

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	command := CommandCollect
	if parser.Active != nil {
		command = parser.Active.Name
	}

	cfg := &Cfg{
		Command:           command,
		Store:             raw.Store,
		OutputCSV:         raw.OutputCSV,
		SQLitePath:        raw.SQLitePath,
		Skills:            SplitList(raw.SkillList),
		LeverCompanies:    SplitList(raw.LeverCompanies),
		GreenhouseBoards:  SplitList(raw.GreenhouseBoards),
		GreenhouseContent: raw.GreenhouseContent,
		FeedsDir:          raw.FeedsDir,
		FetchTimeout:      raw.FetchTimeout,
		FetchWorkers:      max(raw.FetchWorkers, 1),
		RedisAddr:         raw.RedisAddr,
		RedisPassword:     raw.RedisPassword,
		RedisDB:           raw.RedisDB,
		CacheTTL:          raw.CacheTTL,
		EmailFrom:         raw.EmailFrom,
		EmailTo:           raw.EmailTo,
		EmailAppPassword:  raw.EmailAppPassword,
		SMTPHost:          raw.SMTPHost,
		SMTPPort:          raw.SMTPPort,
		AlertTargetSkill:  strings.ToLower(strings.TrimSpace(raw.AlertTargetSkill)),
		AlertMinMentions:  raw.AlertMinMentions,
		Port:              raw.Port,
		CollectInterval:   raw.CollectInterval,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

// SplitList splits a comma-separated setting into trimmed, lowercased,
// non-empty entries.
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
