// Package main provides the entry point for the memodisk CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/memodisk/memo"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	cacheDir   string

	rootCmd = &cobra.Command{
		Use:   "memodisk",
		Short: "Inspect and maintain disk-backed memoization caches",
		Long: paragraph(
			fmt.Sprintf("\nInspect and maintain %s function caches from the command line.", keyword("memodisk")),
		),
		SilenceErrors: false,
		SilenceUsage:  true,
	}

	lsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List cached functions",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cache, err := openCache()
			if err != nil {
				return err
			}

			stats, err := cache.Functions()
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No cached functions in", cache.Dir())
				return nil
			}

			fmt.Printf("%-40s %8s %10s\n", "FUNCTION", "ENTRIES", "SIZE")
			for _, s := range stats {
				fmt.Printf("%-40s %8d %10s\n", s.Name, s.Entries, humanize.Bytes(uint64(s.SizeBytes)))
			}
			return nil
		},
	}

	pruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Remove expired and orphaned cache entries",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cache, err := openCache()
			if err != nil {
				// New already runs a prune pass, so a failure here is
				// the prune outcome itself.
				return err
			}

			res, err := cache.Prune()
			if err != nil {
				return err
			}

			fmt.Printf("Expired %d cache entries\n", res.RemovedEntries)
			for _, f := range res.RemovedFiles {
				fmt.Printf("\t%s\n", f)
			}
			return nil
		},
	}

	clearCmd = &cobra.Command{
		Use:   "clear [function]",
		Short: "Remove every cache entry for a function",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cache, err := openCache()
			if err != nil {
				return err
			}

			removed, err := cache.ClearFunction(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Removed %d cache entries for %s\n", removed, args[0])
			return nil
		},
	}
)

// openCache builds the cache from the environment, the config file, and
// command-line flags, in increasing order of precedence.
func openCache() (*memo.Cache, error) {
	cfg, err := memo.FromEnv()
	if err != nil {
		return nil, err
	}

	// Viper only overrides what the config file or a flag actually set;
	// otherwise the MEMODISK_* values parsed by FromEnv stand.
	if dir := viper.GetString("cache.dir"); dir != "" {
		cfg.Dir = dir
	}
	if f := viper.GetString("cache.metadata_file"); viper.IsSet("cache.metadata_file") && f != "" {
		cfg.MetadataFile = f
	}
	if viper.IsSet("cache.default_max_age_days") {
		cfg.DefaultMaxAgeDays = viper.GetInt("cache.default_max_age_days")
	}
	if viper.IsSet("cache.compression") {
		cfg.EnableCompression = viper.GetBool("cache.compression")
	}
	if viper.IsSet("cache.compression_level") {
		cfg.CompressionLevel = viper.GetInt("cache.compression_level")
	}
	cfg.Logger = log.Default()

	return memo.New(cfg)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVarP(&cacheDir, "dir", "d", "", "cache directory")

	// Config bindings
	_ = viper.BindPFlag("cache.dir", rootCmd.PersistentFlags().Lookup("dir"))

	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.metadata_file", "memodisk_caches.json")
	viper.SetDefault("cache.default_max_age_days", 7)
	viper.SetDefault("cache.compression", true)
	viper.SetDefault("cache.compression_level", 3)

	rootCmd.AddCommand(lsCmd, pruneCmd, clearCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "memodisk")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "memodisk")}, dirs...)
	}

	if c := os.Getenv("MEMODISK_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("memodisk")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("memodisk")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "memodisk.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
