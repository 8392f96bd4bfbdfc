package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cyberpath-HQ/sentinel/sentinel/store"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel CLI - JSON document store management",
	Long: `Sentinel is an embedded JSON document store with collections,
filtered queries and durable file-backed persistence.

The CLI operates on a store directory. Documents are passed and printed
as JSON text.

Examples:
  # Insert a document
  sentinel --store ./data insert users u1 '{"name":"alice","age":28}'

  # Read it back
  sentinel --store ./data get users u1

  # Query with filters
  sentinel --store ./data query users --where 'age>25' --sort age --limit 10

  # List collections
  sentinel --store ./data collections`,
	SilenceUsage: true,
}

var (
	// Global flags that apply to all commands
	storePath   string
	backendName string
	configFile  string
	keepDeleted bool
	noWAL       bool
	verbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&storePath, "store", "s", ".", "Store directory path")
	rootCmd.PersistentFlags().StringVarP(&backendName, "backend", "b", "file", "Storage backend: file|bolt|memory")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&keepDeleted, "keep-deleted", false, "Archive deleted documents instead of removing them")
	rootCmd.PersistentFlags().BoolVar(&noWAL, "no-wal", false, "Disable the mutation journal")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	viper.SetEnvPrefix("SENTINEL")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("keep_deleted", rootCmd.PersistentFlags().Lookup("keep-deleted"))
	_ = viper.BindPFlag("no_wal", rootCmd.PersistentFlags().Lookup("no-wal"))
}

// storeOptions resolves flags, environment and config file into open options.
// Precedence: flags > environment > config file.
func storeOptions() ([]store.Option, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	opts := []store.Option{
		store.WithBackend(store.BackendKind(viper.GetString("backend"))),
		store.WithLogger(newLogger(verbose)),
	}
	if viper.GetBool("keep_deleted") {
		opts = append(opts, store.WithKeepDeleted())
	}
	if viper.GetBool("no_wal") {
		opts = append(opts, store.WithoutWAL())
	}
	if n := viper.GetInt("workers"); n > 0 {
		opts = append(opts, store.WithWorkers(n))
	}
	// Never a flag: a passphrase on the command line leaks into shell history.
	if p := viper.GetString("passphrase"); p != "" {
		opts = append(opts, store.WithPassphrase(p))
	}
	return opts, nil
}

// withStore opens the store, runs fn and closes the store afterwards.
func withStore(fn func(*store.Store) error) error {
	opts, err := storeOptions()
	if err != nil {
		return err
	}
	s, err := store.Open(viper.GetString("store"), opts...)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// withCollection opens the store and one collection for fn.
func withCollection(name string, fn func(*store.Collection) error) error {
	return withStore(func(s *store.Store) error {
		col, err := s.Collection(name)
		if err != nil {
			return err
		}
		defer col.Close()
		return fn(col)
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
