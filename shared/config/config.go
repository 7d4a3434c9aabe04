package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/dfryer1193/micropub/api"
	"github.com/dfryer1193/micropub/blog/application"
)

const (
	defaultAddr                = ":8080"
	defaultJournalPath         = "./micropub.db"
	defaultMediaDir            = "assets/images"
	defaultArticlePathTemplate = "_posts/{date:%Y-%m-%d}-{slug}.md"
	defaultArticleURLTemplate  = "{site_url}/posts/{date:%Y/%m/%d}/{slug}"
	defaultNotePathTemplate    = "_notes/{date:%Y-%m-%d}-{slug}.md"
	defaultNoteURLTemplate     = "{site_url}/notes/{date:%Y/%m/%d}/{slug}"
	defaultHTTPTimeout         = 10 * time.Second
)

// Config holds everything the server needs. It is loaded once at startup and
// not modified afterwards.
type Config struct {
	Me            string `toml:"me"`
	TokenEndpoint string `toml:"token_endpoint"`
	SiteURL       string `toml:"site_url"`
	MediaEndpoint string `toml:"media_endpoint"`

	GithubUser   string `toml:"github_user"`
	GithubRepo   string `toml:"github_repo"`
	GithubToken  string `toml:"github_token"`
	GithubBranch string `toml:"github_branch"`
	CommitName   string `toml:"commit_name"`
	CommitEmail  string `toml:"commit_email"`

	MediaDir            string `toml:"media_dir"`
	ArticlePathTemplate string `toml:"article_path_template"`
	ArticleURLTemplate  string `toml:"article_url_template"`
	NotePathTemplate    string `toml:"note_path_template"`
	NoteURLTemplate     string `toml:"note_url_template"`
	Timezone            string `toml:"timezone"`

	Addr        string   `toml:"addr"`
	JournalPath string   `toml:"journal_path"`
	ReadmePath  string   `toml:"readme_path"`
	StaticDir   string   `toml:"static_dir"`
	LogLevel    string   `toml:"log_level"`
	LogFormat   string   `toml:"log_format"`
	HTTPTimeout Duration `toml:"http_timeout"`

	SyndicateTo []api.SyndicationTarget `toml:"syndicate_to"`
}

// Duration is a time.Duration written as a string such as "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Read decodes a Config from r and applies defaults. Environment overrides are not applied.
func Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.setDefaults()
	return &cfg, nil
}

// Load reads the config file at path, if any, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		cfg, err = Read(f)
		if err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envOverrides = []struct {
	key   string
	field func(*Config) *string
}{
	{"MICROPUB_ME", func(c *Config) *string { return &c.Me }},
	{"MICROPUB_TOKEN_ENDPOINT", func(c *Config) *string { return &c.TokenEndpoint }},
	{"MICROPUB_SITE_URL", func(c *Config) *string { return &c.SiteURL }},
	{"MICROPUB_MEDIA_ENDPOINT", func(c *Config) *string { return &c.MediaEndpoint }},
	{"MICROPUB_MEDIA_DIR", func(c *Config) *string { return &c.MediaDir }},
	{"MICROPUB_ADDR", func(c *Config) *string { return &c.Addr }},
	{"MICROPUB_JOURNAL_PATH", func(c *Config) *string { return &c.JournalPath }},
	{"MICROPUB_LOG_LEVEL", func(c *Config) *string { return &c.LogLevel }},
	{"MICROPUB_TIMEZONE", func(c *Config) *string { return &c.Timezone }},
	{"GITHUB_USER", func(c *Config) *string { return &c.GithubUser }},
	{"GITHUB_REPO", func(c *Config) *string { return &c.GithubRepo }},
	{"GITHUB_TOKEN", func(c *Config) *string { return &c.GithubToken }},
	{"GITHUB_BRANCH", func(c *Config) *string { return &c.GithubBranch }},
}

func (c *Config) applyEnv() {
	for _, o := range envOverrides {
		if v := os.Getenv(o.key); v != "" {
			*o.field(c) = v
		}
	}
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.JournalPath == "" {
		c.JournalPath = defaultJournalPath
	}
	if c.MediaDir == "" {
		c.MediaDir = defaultMediaDir
	}
	if c.ArticlePathTemplate == "" {
		c.ArticlePathTemplate = defaultArticlePathTemplate
	}
	if c.ArticleURLTemplate == "" {
		c.ArticleURLTemplate = defaultArticleURLTemplate
	}
	if c.NotePathTemplate == "" {
		c.NotePathTemplate = defaultNotePathTemplate
	}
	if c.NoteURLTemplate == "" {
		c.NoteURLTemplate = defaultNoteURLTemplate
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTPTimeout.Duration == 0 {
		c.HTTPTimeout.Duration = defaultHTTPTimeout
	}
}

// Validate reports every missing or malformed required setting.
func (c *Config) Validate() error {
	var errs []error
	for _, f := range []struct{ name, value string }{
		{"me", c.Me},
		{"token_endpoint", c.TokenEndpoint},
		{"site_url", c.SiteURL},
	} {
		name, v := f.name, f.value
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
			continue
		}
		if u, err := url.Parse(v); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", name, v))
		}
	}
	if c.GithubUser == "" || c.GithubRepo == "" {
		errs = append(errs, errors.New("github_user and github_repo are required"))
	}
	if c.GithubToken == "" {
		errs = append(errs, errors.New("github_token is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := c.Templates(); err != nil {
		errs = append(errs, err)
	}
	for _, t := range c.SyndicateTo {
		if t.UID == "" || t.Name == "" {
			errs = append(errs, fmt.Errorf("syndication target %q needs both uid and name", t.UID))
		}
	}
	return errors.Join(errs...)
}

// Location returns the timezone post dates are rendered in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Templates compiles the article and note path and URL templates.
func (c *Config) Templates() (article application.PostTemplates, note application.PostTemplates, err error) {
	var errs []error
	compile := func(name, raw string) *application.PathTemplate {
		t, err := application.ParseTemplate(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return t
	}

	article = application.PostTemplates{
		Path: compile("article_path_template", c.ArticlePathTemplate),
		URL:  compile("article_url_template", c.ArticleURLTemplate),
	}
	note = application.PostTemplates{
		Path: compile("note_path_template", c.NotePathTemplate),
		URL:  compile("note_url_template", c.NoteURLTemplate),
	}
	if len(errs) > 0 {
		return article, note, errors.Join(errs...)
	}

	if err := article.Check(); err != nil {
		errs = append(errs, fmt.Errorf("article templates: %w", err))
	}
	if err := note.Check(); err != nil {
		errs = append(errs, fmt.Errorf("note templates: %w", err))
	}
	return article, note, errors.Join(errs...)
}
