package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps Load away from any .s3cfg on the machine running the tests.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestSetBucket(t *testing.T) {
	tests := []struct {
		value    string
		bucket   string
		endpoint string
		wantErr  bool
	}{
		{value: "reports", bucket: "reports"},
		{value: "http://localhost:9000/reports", bucket: "reports", endpoint: "http://localhost:9000"},
		{value: "http://minio/reports/ignored", bucket: "reports", endpoint: "http://minio:80"},
		{value: "https://s3.example.com/reports", bucket: "reports", endpoint: "https://s3.example.com:443"},
		{value: "http://localhost:9000/", wantErr: true},
		{value: "http://localhost:9000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			var c Config
			err := c.setBucket(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, c.Bucket)
			assert.Equal(t, tt.endpoint, c.Endpoint)
		})
	}
}

func TestSetBucketKeepsExplicitEndpoint(t *testing.T) {
	c := Config{Endpoint: "http://override:9000"}
	require.NoError(t, c.setBucket("http://localhost:9000/reports"))
	assert.Equal(t, "http://override:9000", c.Endpoint)
	assert.Equal(t, "reports", c.Bucket)
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	v := viper.New()
	Defaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.True(t, cfg.PathStyle)
	assert.Equal(t, ".json", cfg.Suffix)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.Refresh)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.ErrorIs(t, cfg.ValidateStore(), ErrNoCredentials)
}

func TestLoadDotenv(t *testing.T) {
	dir := isolate(t)
	env := strings.Join([]string{
		"BUCKET=http://localhost:9000/data",
		"ACCESS_KEY=minio",
		"SECRET_KEY=minio123",
		"PORT=8080",
	}, "\n")
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(env), 0o600))

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Bucket)
	assert.Equal(t, "http://localhost:9000", cfg.Endpoint)
	assert.Equal(t, "minio", cfg.AccessKey)
	assert.Equal(t, "minio123", cfg.SecretKey)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.NoError(t, cfg.ValidateStore())
}

func TestNewViperMissingDotenv(t *testing.T) {
	dir := isolate(t)
	_, err := NewViper(filepath.Join(dir, "missing.env"))
	assert.NoError(t, err)
}

func TestLoadFallsBackToS3cfg(t *testing.T) {
	dir := isolate(t)
	s3cfg := &S3Config{
		AccessKey: "ak",
		SecretKey: "sk",
		HostBase:  "localhost:9000",
		UseHTTPS:  false,
		Region:    "eu-west-1",
	}
	require.NoError(t, s3cfg.Save(filepath.Join(dir, ".s3cfg")))

	v := viper.New()
	Defaults(v)
	v.Set("bucket", "reports")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "ak", cfg.AccessKey)
	assert.Equal(t, "sk", cfg.SecretKey)
	assert.Equal(t, "http://localhost:9000", cfg.Endpoint)
	assert.Equal(t, "eu-west-1", cfg.Region)

	v.Set("region", "ap-south-1")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "ap-south-1", cfg.Region)
}

func TestReadS3ConfigRequiresKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s3cfg")
	require.NoError(t, os.WriteFile(path, []byte("[default]\nhost_base = localhost:9000\n"), 0o600))

	_, err := ReadS3Config(path)
	assert.ErrorContains(t, err, "access_key and secret_key")
}

func TestGetEndpointURL(t *testing.T) {
	assert.Equal(t, "", (&S3Config{HostBase: "s3.amazonaws.com", UseHTTPS: true}).GetEndpointURL())
	assert.Equal(t, "https://storage.example.com", (&S3Config{HostBase: "storage.example.com", UseHTTPS: true}).GetEndpointURL())
	assert.Equal(t, "http://localhost:9000", (&S3Config{HostBase: "localhost:9000"}).GetEndpointURL())
}

func TestSetup(t *testing.T) {
	dir := isolate(t)
	in := strings.NewReader("y\nAK\nSK\nlocalhost:9000\n\n2\n")
	var out strings.Builder

	cfg, err := Setup(in, &out, dir)
	require.NoError(t, err)
	assert.Equal(t, "AK", cfg.AccessKey)
	assert.Equal(t, "SK", cfg.SecretKey)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.False(t, cfg.UseHTTPS)
	assert.Equal(t, "localhost:9000/%(bucket)s", cfg.HostBucket)
	assert.Contains(t, out.String(), "Configuration saved")

	saved, err := ReadS3Config(filepath.Join(dir, ".s3cfg"))
	require.NoError(t, err)
	assert.Equal(t, cfg, saved)
}

func TestSetupDeclined(t *testing.T) {
	_, err := Setup(strings.NewReader("n\n"), &strings.Builder{}, t.TempDir())
	assert.ErrorIs(t, err, ErrSetupDeclined)
}

func TestSetupRejectsEmptyKey(t *testing.T) {
	_, err := Setup(strings.NewReader("y\n\n"), &strings.Builder{}, t.TempDir())
	assert.ErrorContains(t, err, "access key cannot be empty")
}

func TestSetupTruncatedInput(t *testing.T) {
	_, err := Setup(strings.NewReader("yes\nAK\n"), &strings.Builder{}, t.TempDir())
	assert.Error(t, err)
}
