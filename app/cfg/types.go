package cfg

import "time"

const (
	CommandCollect = "collect"
	CommandServe   = "serve"
)

const (
	StoreCSV    = "csv"
	StoreSQLite = "sqlite"
)

type Cfg struct {
	Command string

	// Storage
	Store      string
	OutputCSV  string
	SQLitePath string

	// Skill extraction
	Skills []string

	// Sources
	LeverCompanies    []string
	GreenhouseBoards  []string
	GreenhouseContent bool
	FeedsDir          string
	FetchTimeout      time.Duration
	FetchWorkers      int

	// Response cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Alerts
	EmailFrom        string
	EmailTo          string
	EmailAppPassword string
	SMTPHost         string
	SMTPPort         int
	AlertTargetSkill string
	AlertMinMentions int

	// Dashboard
	Port            string
	CollectInterval time.Duration

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// AlertsEnabled reports whether all mail credentials are present.
func (c *Cfg) AlertsEnabled() bool {
	return c.EmailFrom != "" && c.EmailTo != "" && c.EmailAppPassword != ""
}

// CacheEnabled reports whether source responses should be cached in Redis.
func (c *Cfg) CacheEnabled() bool {
	return c.RedisAddr != "" && c.ResponseCacheTTL() > 0
}

// ResponseCacheTTL is CacheTTL capped to half the collect interval, so a
// scheduled run never replays the responses the previous one fetched.
func (c *Cfg) ResponseCacheTTL() time.Duration {
	if c.CollectInterval > 0 && c.CacheTTL >= c.CollectInterval {
		return c.CollectInterval / 2
	}
	return c.CacheTTL
}
