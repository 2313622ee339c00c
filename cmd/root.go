// Package cmd provides the s4json command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slmtnm/s4json/internal/config"
	"github.com/slmtnm/s4json/internal/nav"
)

var rootCmd = &cobra.Command{
	Use:   "s4json [address]",
	Short: "Browse date-bucketed JSON files in S3",
	Long: `s4json is a read-only terminal browser for JSON files kept in S3 under
date-named prefixes (2024-06-01/run.json). Listings refresh periodically
while you browse.

The optional address opens a bucket or file directly, e.g.
  s4json 2024-06-01
  s4json '#2024-06-01/run.json'

Credentials come from flags, the environment (BUCKET, ACCESS_KEY,
SECRET_KEY), a .env file or an s3cmd .s3cfg file.`,
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: prepareConfig,
	RunE:              runBrowse,
	SilenceUsage:      true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("env_file", ".env", "Optional dotenv file read at startup")
	pf.String("bucket", "", "S3 bucket, or a URL like http://localhost:9000/bucket (env BUCKET)")
	pf.String("endpoint", "", "S3 endpoint URL; empty for AWS")
	pf.String("access_key", "", "S3 access key (env ACCESS_KEY)")
	pf.String("secret_key", "", "S3 secret key (env SECRET_KEY)")
	pf.String("region", "", "S3 region (default us-east-1)")
	pf.Bool("path_style", true, "Use path-style addressing (MinIO)")
	pf.String("suffix", ".json", "Only list files with this suffix")
	pf.String("log_level", "info", "Log level (debug, info, warn, error)")
	viper.BindPFlags(pf)

	f := rootCmd.Flags()
	f.String("remote", "", "Browse through an s4json server at this URL instead of S3")
	f.Duration("refresh", nav.DefaultRefreshInterval, "Listing refresh interval")
	f.String("log_file", "", "Write logs to this file; the terminal is used by the browser")
	viper.BindPFlags(f)
}

func prepareConfig(cmd *cobra.Command, args []string) error {
	return config.Prepare(viper.GetViper(), viper.GetString("env_file"))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
