package site

// Profile describes the host site: identity, platform version and which
// SEO and page-builder plugins are installed.
type Profile struct {
	Name            string          `yaml:"name"`
	URL             string          `yaml:"url"`
	PlatformVersion string          `yaml:"platform_version"`
	Plugins         Plugins         `yaml:"plugins"`
	Webhook         WebhookSettings `yaml:"webhook"`
}

type Plugins struct {
	RankMath  Plugin `yaml:"rank_math"`
	Yoast     Plugin `yaml:"yoast"`
	Elementor Plugin `yaml:"elementor"`
}

type Plugin struct {
	Active  bool   `yaml:"active"`
	Version string `yaml:"version"`
}

type WebhookSettings struct {
	PostTypes []string `yaml:"post_types"` // record types that trigger notifications
}
