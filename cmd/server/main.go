package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/nickyhof/BatchDB"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "batchdb-server",
	Short: "BatchDB SQL batch server",
	Long: `Serves named SQLite or DuckDB databases. Each database runs its
statements one batch at a time on its own worker.`,
	Version: Version,
	RunE:    Run,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.batchdb/batchdb.yaml)")
	SetupRunFlags(rootCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Expand("~/.batchdb")
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigName("batchdb")
	}

	// Environment variable support
	viper.SetEnvPrefix("BATCHDB")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupLogging(config *Config) {
	if config.LogDirectory != "" {
		os.MkdirAll(config.LogDirectory, 0755)
		flag.Set("log_dir", config.LogDirectory)
	}
	flag.Set("v", fmt.Sprintf("%d", config.GlogV))
	flag.Set("vmodule", config.GlogVmodule)
	flag.Set("alsologtostderr", "true")
	flag.CommandLine.Parse([]string{})
}

func Run(cmd *cobra.Command, args []string) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}
	setupLogging(config)
	defer glog.Flush()
	config.Print()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance, err := BatchDB.Open(ctx, config.Database)
	if err != nil {
		return err
	}

	server := NewServerWithAuth(instance, &config.Auth)
	addr := fmt.Sprintf(":%d", config.Port)
	if config.TLSCert != "" {
		err = server.StartTLS(addr, config.TLSCert, config.TLSKey)
	} else {
		err = server.Start(addr)
	}
	if err != nil {
		return err
	}

	if config.HTTPPort != 0 {
		if err := server.StartHTTP(fmt.Sprintf(":%d", config.HTTPPort)); err != nil {
			return err
		}
	}

	fmt.Printf("BatchDB server v%s listening on port %d\n", Version, config.Port)
	fmt.Println("Send one JSON request per line, 'quit' to disconnect")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	glog.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	server.StopHTTP(shutdownCtx)
	server.Stop()
	if err := instance.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("Run: Problem closing databases: %v", err)
	}
	glog.Info("Shutdown complete")
	return nil
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
