package site

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"
)

var defaultWebhookPostTypes = []string{"post", "page"}

type ProfileCache struct {
	profileFile string
	profile     *Profile
	mu          sync.RWMutex
}

func NewProfileCache(profileFile string) *ProfileCache {
	return &ProfileCache{profileFile: profileFile}
}

// Run loads the profile file into the cache.
func (pc *ProfileCache) Run() error {
	profile, err := pc.LoadProfile()
	if err != nil {
		return err
	}

	slog.Debug("Site profile loaded",
		"site", profile.Name,
		"rank_math", profile.Plugins.RankMath.Active,
		"yoast", profile.Plugins.Yoast.Active,
		"elementor", profile.Plugins.Elementor.Active)

	return nil
}

func (pc *ProfileCache) LoadProfile() (*Profile, error) {
	profile, err := pc.parseProfile(pc.profileFile)
	if err != nil {
		return nil, err
	}

	if err := validateProfile(profile); err != nil {
		return nil, fmt.Errorf("invalid site profile %s: %w", pc.profileFile, err)
	}

	pc.Set(profile)

	return profile, nil
}

// Set replaces the cached profile.
func (pc *ProfileCache) Set(profile *Profile) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.profile = profile
}

func (pc *ProfileCache) Get() *Profile {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.profile == nil {
		return &Profile{Webhook: WebhookSettings{PostTypes: defaultWebhookPostTypes}}
	}
	return pc.profile
}

func (pc *ProfileCache) parseProfile(profileFile string) (*Profile, error) {
	data, err := os.ReadFile(profileFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	profile.URL = strings.TrimRight(profile.URL, "/")
	if len(profile.Webhook.PostTypes) == 0 {
		profile.Webhook.PostTypes = defaultWebhookPostTypes
	}

	return &profile, nil
}

func validateProfile(profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is nil")
	}

	if err := validation.ValidateStruct(profile,
		validation.Field(&profile.Name, validation.Required),
		validation.Field(&profile.URL, validation.Required, is.URL),
	); err != nil {
		return err
	}

	if err := validation.Validate(profile.Webhook.PostTypes,
		validation.Each(validation.Required, is.LowerCase)); err != nil {
		return fmt.Errorf("webhook post types: %w", err)
	}

	return nil
}

func (p *Profile) RankMathActive() bool {
	return p.Plugins.RankMath.Active
}

func (p *Profile) YoastActive() bool {
	return p.Plugins.Yoast.Active
}

func (p *Profile) ElementorActive() bool {
	return p.Plugins.Elementor.Active
}

// ElementorVersion is empty when the builder is not installed.
func (p *Profile) ElementorVersion() string {
	if !p.Plugins.Elementor.Active {
		return ""
	}
	return p.Plugins.Elementor.Version
}

func (p *Profile) WebhookAllows(postType string) bool {
	return slices.Contains(p.Webhook.PostTypes, postType)
}

// Permalink builds the public URL of a record. Published records use their
// slug; everything else falls back to the ?p= form.
func (p *Profile) Permalink(id int64, slug, status string) string {
	if status == "publish" && slug != "" {
		return p.URL + "/" + slug + "/"
	}
	return p.URL + "/?p=" + strconv.FormatInt(id, 10)
}

// Capability checks against the current profile, so consumers see reloads.

func (pc *ProfileCache) RankMathActive() bool { return pc.Get().RankMathActive() }

func (pc *ProfileCache) YoastActive() bool { return pc.Get().YoastActive() }

func (pc *ProfileCache) ElementorActive() bool { return pc.Get().ElementorActive() }

func (pc *ProfileCache) ElementorVersion() string { return pc.Get().ElementorVersion() }

func (pc *ProfileCache) SiteName() string { return pc.Get().Name }

func (pc *ProfileCache) SiteURL() string { return pc.Get().URL }

func (pc *ProfileCache) Permalink(id int64, slug, status string) string {
	return pc.Get().Permalink(id, slug, status)
}

func (pc *ProfileCache) PlatformVersion() string { return pc.Get().PlatformVersion }

func (pc *ProfileCache) WebhookAllows(postType string) bool { return pc.Get().WebhookAllows(postType) }
