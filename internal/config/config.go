// Package config assembles the runtime configuration from flags, the
// environment, an optional .env file and the s3cmd-compatible .s3cfg file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrNoCredentials is returned when direct S3 access is configured without
// an access key pair.
var ErrNoCredentials = errors.New("no S3 credentials configured")

const defaultRegion = "us-east-1"

// Config is everything the browser and the server need.
type Config struct {
	// Endpoint is the S3 endpoint URL; empty means AWS.
	Endpoint string
	// Bucket is the S3 bucket whose top-level prefixes are browsed.
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	PathStyle bool
	// Suffix filters listed files, ".json" by default.
	Suffix string

	// Addr is the listen address of the HTTP server.
	Addr string
	// Remote, when set, makes the browser use an s4json server instead of S3.
	Remote string

	Refresh  time.Duration
	LogLevel string
	LogFile  string
}

// Defaults registers the default value of every key on v.
func Defaults(v *viper.Viper) {
	v.SetDefault("path_style", true)
	v.SetDefault("suffix", ".json")
	v.SetDefault("port", 3000)
	v.SetDefault("refresh", 30*time.Second)
	v.SetDefault("log_level", "info")
}

// Prepare registers defaults on v, binds it to the environment (BUCKET,
// ACCESS_KEY, SECRET_KEY, PORT, ...) and reads dotenv when it exists.
func Prepare(v *viper.Viper, dotenv string) error {
	Defaults(v)
	v.AutomaticEnv()

	if dotenv == "" {
		return nil
	}
	if _, err := os.Stat(dotenv); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(dotenv)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", dotenv, err)
	}
	return nil
}

// NewViper is Prepare on a fresh viper instance.
func NewViper(dotenv string) (*viper.Viper, error) {
	v := viper.New()
	if err := Prepare(v, dotenv); err != nil {
		return nil, err
	}
	return v, nil
}

// Load builds a Config from v. Credentials and endpoint missing from v are
// taken from the first .s3cfg found, if any.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Endpoint:  v.GetString("endpoint"),
		AccessKey: v.GetString("access_key"),
		SecretKey: v.GetString("secret_key"),
		Region:    v.GetString("region"),
		PathStyle: v.GetBool("path_style"),
		Suffix:    v.GetString("suffix"),
		Addr:      v.GetString("addr"),
		Remote:    v.GetString("remote"),
		Refresh:   v.GetDuration("refresh"),
		LogLevel:  v.GetString("log_level"),
		LogFile:   v.GetString("log_file"),
	}

	if err := cfg.setBucket(v.GetString("bucket")); err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		cfg.Addr = fmt.Sprintf(":%d", v.GetInt("port"))
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = 30 * time.Second
	}

	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		if s3cfg, err := LoadS3Config(); err == nil {
			cfg.Merge(s3cfg)
		}
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	return cfg, nil
}

// setBucket accepts either a bare bucket name or a URL of the form
// http://host:9000/bucket, which also sets the endpoint.
func (c *Config) setBucket(value string) error {
	if !strings.Contains(value, "://") {
		c.Bucket = value
		return nil
	}

	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid BUCKET URL %q: %w", value, err)
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if name == "" {
		return fmt.Errorf("invalid BUCKET URL %q: no bucket name in path", value)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	if c.Endpoint == "" {
		c.Endpoint = fmt.Sprintf("%s://%s:%s", u.Scheme, u.Hostname(), port)
	}
	c.Bucket = name
	return nil
}

// Merge fills credentials, endpoint and region from an .s3cfg without
// overriding values already set.
func (c *Config) Merge(s *S3Config) {
	if c.AccessKey == "" {
		c.AccessKey = s.AccessKey
	}
	if c.SecretKey == "" {
		c.SecretKey = s.SecretKey
	}
	if c.Endpoint == "" {
		c.Endpoint = s.GetEndpointURL()
	}
	if c.Region == "" {
		c.Region = s.Region
	}
}

// ValidateStore checks the fields needed to talk to S3 directly.
func (c *Config) ValidateStore() error {
	if c.Bucket == "" {
		return errors.New("no bucket configured: pass --bucket or set BUCKET")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return ErrNoCredentials
	}
	return nil
}
