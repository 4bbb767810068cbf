package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/nickyhof/BatchDB"
	"github.com/nickyhof/BatchDB/ps"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the server configuration, read from flags, BATCHDB_*
// environment variables and the config file, in that order of precedence.
type Config struct {
	Port     int
	HTTPPort int
	TLSCert  string
	TLSKey   string

	Database BatchDB.Config

	Auth AuthConfig

	GlogV        uint64
	GlogVmodule  string
	LogDirectory string
}

func SetupRunFlags(cmd *cobra.Command) {
	// Listeners
	cmd.PersistentFlags().Int("port", 3306, "TCP port to listen on")
	cmd.PersistentFlags().Int("http-port", 0, "HTTP port to listen on. The HTTP front end is off when zero")
	cmd.PersistentFlags().String("tls-cert", "", "TLS certificate file. TLS is used when both cert and key are set")
	cmd.PersistentFlags().String("tls-key", "", "TLS private key file")

	// Storage
	cmd.PersistentFlags().String("driver", "sqlite3", "Storage engine: sqlite3 or duckdb")
	cmd.PersistentFlags().String("base-dir", "",
		"Directory holding one storage file per database name. "+
			"Defaults to $HOME/.batchdb/data")
	cmd.PersistentFlags().Bool("legacy-null-as-empty-text", false,
		"Bind every query parameter as text, sending null as an empty string")

	// Archive
	cmd.PersistentFlags().String("archive", "",
		"Where deleted databases are archived: s3://bucket/prefix or git://dir. Off when empty")
	cmd.PersistentFlags().String("archive-git-remote", "", "Git remote pushed to after every archive commit")
	cmd.PersistentFlags().String("archive-git-token", "", "Token for the archive git remote")
	cmd.PersistentFlags().String("archive-s3-region", "", "S3 region for the archive bucket")
	cmd.PersistentFlags().String("archive-s3-endpoint", "", "Custom S3-compatible endpoint")
	cmd.PersistentFlags().String("archive-s3-access-key", "", "S3 access key")
	cmd.PersistentFlags().String("archive-s3-secret-key", "", "S3 secret key")

	// Auth
	cmd.PersistentFlags().String("jwt-secret", "", "Shared HS256 secret. Clients must authenticate when set")
	cmd.PersistentFlags().String("jwt-issuer", "", "Expected JWT issuer")
	cmd.PersistentFlags().String("jwt-audience", "", "Expected JWT audience")

	// Logging
	cmd.PersistentFlags().Uint64("glog-v", 0, "The log level. 0 = INFO, 1 = DEBUG, 2 = TRACE. Defaults to zero")
	cmd.PersistentFlags().String("glog-vmodule", "", "The syntax of the argument is a comma-separated list of pattern=N")
	cmd.PersistentFlags().String("log-dir", "", "The directory for logs. Defaults to stderr only")

	cmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		viper.BindPFlag(flag.Name, flag)
	})
}

// LoadConfig reads the bound flags through viper.
func LoadConfig() (*Config, error) {
	config := Config{
		Port:         viper.GetInt("port"),
		HTTPPort:     viper.GetInt("http-port"),
		TLSCert:      viper.GetString("tls-cert"),
		TLSKey:       viper.GetString("tls-key"),
		GlogV:        viper.GetUint64("glog-v"),
		GlogVmodule:  viper.GetString("glog-vmodule"),
		LogDirectory: viper.GetString("log-dir"),
	}

	if (config.TLSCert == "") != (config.TLSKey == "") {
		return nil, fmt.Errorf("both --tls-cert and --tls-key are needed for TLS")
	}

	baseDir := viper.GetString("base-dir")
	if baseDir == "" {
		home, err := homedir.Expand("~/.batchdb")
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(home, "data")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create base directory %s: %w", baseDir, err)
	}

	config.Database = BatchDB.Config{
		Driver:                viper.GetString("driver"),
		BaseDir:               baseDir,
		ArchiveTarget:         viper.GetString("archive"),
		LegacyNullAsEmptyText: viper.GetBool("legacy-null-as-empty-text"),
		Archive: ps.ArchiveConfig{
			S3: ps.S3Config{
				AccessKey: viper.GetString("archive-s3-access-key"),
				SecretKey: viper.GetString("archive-s3-secret-key"),
				Region:    viper.GetString("archive-s3-region"),
				Endpoint:  viper.GetString("archive-s3-endpoint"),
			},
			Git: ps.GitConfig{
				RemoteURL: viper.GetString("archive-git-remote"),
			},
		},
	}
	if token := viper.GetString("archive-git-token"); token != "" {
		config.Database.Archive.Git.Auth = &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: token}
	}

	if secret := viper.GetString("jwt-secret"); secret != "" {
		config.Auth = AuthConfig{
			Enabled:   true,
			JWTSecret: secret,
			Issuer:    viper.GetString("jwt-issuer"),
			Audience:  viper.GetString("jwt-audience"),
		}
	}

	return &config, nil
}

func (config *Config) Print() {
	if config.LogDirectory != "" {
		glog.Infof("Logging to directory %s", config.LogDirectory)
	}
	glog.Infof("Driver: %s", config.Database.Driver)
	glog.Infof("Base Directory: %s", config.Database.BaseDir)
	if config.Database.ArchiveTarget != "" {
		glog.Infof("Archive: %s", config.Database.ArchiveTarget)
	}
	if config.TLSCert != "" {
		glog.Infof("TLS: ON")
	}
	if config.Auth.Enabled {
		glog.Infof("JWT Authentication: ON")
	}
}
