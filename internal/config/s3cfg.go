package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// ErrSetupDeclined is returned by Setup when the user answers no.
var ErrSetupDeclined = errors.New("setup declined by user")

// S3Config is the [default] section of an s3cmd configuration file.
type S3Config struct {
	AccessKey  string
	SecretKey  string
	HostBase   string
	HostBucket string
	UseHTTPS   bool
	Region     string
}

// S3ConfigPaths lists the locations searched for .s3cfg, in order.
func S3ConfigPaths() []string {
	paths := []string{".s3cfg"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".s3cfg"))
	}
	return append(paths, "/etc/s3cfg")
}

// LoadS3Config reads the first .s3cfg found in S3ConfigPaths.
func LoadS3Config() (*S3Config, error) {
	for _, path := range S3ConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return ReadS3Config(path)
		}
	}
	return nil, errors.New(".s3cfg file not found in any of the standard locations")
}

// ReadS3Config parses the s3cmd file at path.
func ReadS3Config(path string) (*S3Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	section := f.Section("default")
	cfg := &S3Config{
		AccessKey:  section.Key("access_key").String(),
		SecretKey:  section.Key("secret_key").String(),
		HostBase:   section.Key("host_base").MustString("s3.amazonaws.com"),
		HostBucket: section.Key("host_bucket").MustString("%(bucket)s.s3.amazonaws.com"),
		UseHTTPS:   section.Key("use_https").MustBool(true),
		Region:     section.Key("bucket_location").MustString("us-east-1"),
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("access_key and secret_key must be specified in %s", path)
	}
	return cfg, nil
}

// GetEndpointURL returns the endpoint URL, or "" for plain AWS so the SDK
// resolves the regional endpoint itself.
func (c *S3Config) GetEndpointURL() string {
	if c.HostBase == "" || c.HostBase == "s3.amazonaws.com" {
		return ""
	}
	scheme := "https"
	if !c.UseHTTPS {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, c.HostBase)
}

// Save writes c as an s3cmd file.
func (c *S3Config) Save(path string) error {
	f := ini.Empty()
	section := f.Section("default")
	section.Key("access_key").SetValue(c.AccessKey)
	section.Key("secret_key").SetValue(c.SecretKey)
	section.Key("host_base").SetValue(c.HostBase)
	section.Key("host_bucket").SetValue(c.HostBucket)
	section.Key("use_https").SetValue(pyBool(c.UseHTTPS))
	section.Key("signature_v2").SetValue(pyBool(false))
	section.Key("bucket_location").SetValue(c.Region)
	return f.SaveTo(path)
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Setup walks the user through creating an .s3cfg, reading answers from in
// and writing prompts to out. home is the directory offered as the second
// save location.
func Setup(in io.Reader, out io.Writer, home string) (*S3Config, error) {
	p := &prompter{scanner: bufio.NewScanner(in), out: out}

	fmt.Fprintln(out, "s4json setup")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "No S3 credentials were found. Create an .s3cfg now? (y/N)")
	answer, err := p.ask("> ")
	if err != nil {
		return nil, err
	}
	if a := strings.ToLower(answer); a != "y" && a != "yes" {
		return nil, ErrSetupDeclined
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  AWS S3: your AWS credentials and s3.amazonaws.com")
	fmt.Fprintln(out, "  MinIO:  your MinIO credentials and localhost:9000")
	fmt.Fprintln(out)

	cfg := &S3Config{}
	if cfg.AccessKey, err = p.required("Access Key ID: ", "access key"); err != nil {
		return nil, err
	}
	if cfg.SecretKey, err = p.required("Secret Access Key: ", "secret key"); err != nil {
		return nil, err
	}
	if cfg.HostBase, err = p.optional("S3 Endpoint (default: s3.amazonaws.com): ", "s3.amazonaws.com"); err != nil {
		return nil, err
	}
	if cfg.Region, err = p.optional("Region (default: us-east-1): ", "us-east-1"); err != nil {
		return nil, err
	}

	cfg.HostBucket = cfg.HostBase + "/%(bucket)s"
	if cfg.HostBase == "s3.amazonaws.com" {
		cfg.HostBucket = "%(bucket)s.s3.amazonaws.com"
	}
	cfg.UseHTTPS = !strings.Contains(cfg.HostBase, "localhost") && !strings.Contains(cfg.HostBase, "127.0.0.1")

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Save to:")
	fmt.Fprintln(out, "1. Current directory (.s3cfg)")
	fmt.Fprintf(out, "2. Home directory (%s)\n", filepath.Join(home, ".s3cfg"))
	choice, err := p.ask("Choice (1-2, default: 2): ")
	if err != nil {
		return nil, err
	}

	var path string
	switch choice {
	case "1":
		path = ".s3cfg"
	case "", "2":
		path = filepath.Join(home, ".s3cfg")
	default:
		return nil, fmt.Errorf("invalid choice %q", choice)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}
	fmt.Fprintf(out, "\nConfiguration saved to %s\n\n", path)
	return cfg, nil
}

type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (p *prompter) ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

func (p *prompter) required(prompt, what string) (string, error) {
	v, err := p.ask(prompt)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%s cannot be empty", what)
	}
	return v, nil
}

func (p *prompter) optional(prompt, def string) (string, error) {
	v, err := p.ask(prompt)
	if err != nil || v != "" {
		return v, err
	}
	return def, nil
}
