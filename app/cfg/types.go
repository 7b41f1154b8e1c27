package cfg

type Cfg struct {
	// Storage configuration
	DBPath   string
	SiteFile string

	// HTTP configuration
	Port      string
	APIPrefix string
	APIKey    string

	// Webhook configuration
	WebhookURL     string
	WebhookToken   string
	WebhookTimeout int

	// Background processing
	WorkerCount       int
	SchedulerInterval int

	// Cache and release channel
	RedisAddr       string
	ReleaseFeedURL  string
	ReleaseCacheTTL int

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
