package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Mongo     MongoConfig
	Scheduler SchedulerConfig
	Scraper   ScraperConfig
	Output    OutputConfig
	S3        S3Config
	DBPath    string
	LogPath   string
	Sites     map[string]*SiteConfig
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ScraperConfig struct {
	DelayMS     int
	Retries     int
	MaxPages    int
	MaxDetailed int
	ProxyURL    string
}

type OutputConfig struct {
	DatasetPath string
	ImagesDir   string
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	KeyPrefix       string
}

type SiteConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Handler     string `yaml:"handler"`
	BaseURL     string `yaml:"base_url"`
	SearchPath  string `yaml:"search_path"`
	RateLimitMS int    `yaml:"rate_limit_ms"`
	MaxPages    int    `yaml:"max_pages"`
}

// SearchURL builds the listing-search URL for a results page; page 1
// is the bare path, later pages carry the /p<N> suffix.
func (s *SiteConfig) SearchURL(page int) string {
	base := s.BaseURL + s.SearchPath
	if page <= 1 {
		return base
	}
	return base + "/p" + strconv.Itoa(page)
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Mongo: MongoConfig{
			URI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:   getEnv("MONGO_DB", "project_real_estate"),
			Collection: getEnv("MONGO_COLLECTION", "listings"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Scraper: ScraperConfig{
			DelayMS:     getEnvInt("SCRAPE_DELAY_MS", 3000),
			Retries:     getEnvInt("SCRAPE_RETRIES", 3),
			MaxPages:    getEnvInt("SCRAPE_MAX_PAGES", 3),
			MaxDetailed: getEnvInt("SCRAPE_MAX_DETAILED", 30),
			ProxyURL:    os.Getenv("SCRAPE_PROXY_URL"),
		},
		Output: OutputConfig{
			DatasetPath: getEnv("DATASET_PATH", "hcmc_real_estate.json"),
			ImagesDir:   getEnv("IMAGES_DIR", "scraped_images"),
		},
		S3: S3Config{
			Enabled:         os.Getenv("S3_BUCKET") != "",
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "ap-southeast-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "listings"),
		},
		DBPath:  getEnv("DB_PATH", "scraper.db"),
		LogPath: getEnv("LOG_PATH", "scraper.log"),
		Sites:   make(map[string]*SiteConfig),
	}

	cfg.Scheduler.Interval = 12 * time.Hour
	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadSiteConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSiteConfigs() error {
	configDir := "config/sites"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var site SiteConfig
		if err := yaml.Unmarshal(data, &site); err != nil {
			return err
		}

		c.Sites[site.ID] = &site
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
