package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"southwinds.dev/rotor"
	"southwinds.dev/rotor/audit"
	"southwinds.dev/rotor/persist"
)

var (
	cfgFile     string
	rotator     *rotor.Rotator
	metadata    *rotor.MetadataStore
	history     *rotor.RotationHistoryStore
	auditLogger audit.Logger
	resolver    *rotor.Environment
	stage       rotor.Stage
	store       persist.Store
)

var rootCmd = &cobra.Command{
	Use:   "rotor",
	Short: "Secret key lifecycle management for environment variable files",
	Long: `Rotor encrypts sensitive values in per-environment variable files with a
rotating symmetric secret key. It tracks key metadata, enforces expiration
policy, and rotates keys by safely re-encrypting every protected value under
a fresh key.`,
	PersistentPreRunE: initializeEngine,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if auditLogger != nil {
			auditLogger.Close()
		}
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rotor.yaml)")
	rootCmd.PersistentFlags().StringP("data-path", "p", "", "path for lifecycle documents (metadata, audit, history)")
	rootCmd.PersistentFlags().StringP("env-dir", "e", "", "directory holding the per-stage variable files")
	rootCmd.PersistentFlags().StringP("stage", "s", "", "deployment stage (dev, qa, uat, preprod, prod)")
	rootCmd.PersistentFlags().String("store-type", "", "storage backend type (filesystem, s3, memory)")
	rootCmd.PersistentFlags().Bool("audit", true, "enable audit logging")

	bindFlagOrPanic("rotor.data_path", "data-path")
	bindFlagOrPanic("rotor.env_dir", "env-dir")
	bindFlagOrPanic("rotor.stage", "stage")
	bindFlagOrPanic("rotor.store_type", "store-type")
	bindFlagOrPanic("audit.enabled", "audit")

	rootCmd.PersistentFlags().String("s3-endpoint", "", "S3 endpoint URL")
	rootCmd.PersistentFlags().String("s3-region", "", "S3 region")
	rootCmd.PersistentFlags().String("s3-bucket", "", "S3 bucket name")
	rootCmd.PersistentFlags().String("s3-prefix", "", "S3 key prefix")
	rootCmd.PersistentFlags().String("s3-access-key", "", "S3 access key ID")
	rootCmd.PersistentFlags().String("s3-secret-key", "", "S3 secret access key")
	rootCmd.PersistentFlags().Bool("s3-use-ssl", true, "use SSL for S3 connections")

	bindFlagOrPanic("rotor.s3.endpoint", "s3-endpoint")
	bindFlagOrPanic("rotor.s3.region", "s3-region")
	bindFlagOrPanic("rotor.s3.bucket", "s3-bucket")
	bindFlagOrPanic("rotor.s3.key_prefix", "s3-prefix")
	bindFlagOrPanic("rotor.s3.access_key_id", "s3-access-key")
	bindFlagOrPanic("rotor.s3.secret_access_key", "s3-secret-key")
	bindFlagOrPanic("rotor.s3.use_ssl", "s3-use-ssl")
}

func bindFlagOrPanic(configKey, flagName string) {
	if err := viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func initConfig() {
	setDefaults()

	// A local .env can hold ROTOR_* settings for the current project.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")

		viper.SetConfigType("yaml")
		viper.SetConfigName(".rotor")
	}

	viper.SetEnvPrefix("ROTOR")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

func setDefaults() {
	viper.SetDefault("rotor.data_path", ".rotor")
	viper.SetDefault("rotor.env_dir", ".")
	viper.SetDefault("rotor.stage", string(rotor.StageDev))
	viper.SetDefault("rotor.store_type", string(persist.StoreTypeFileSystem))

	viper.SetDefault("rotor.s3.region", "us-east-1")
	viper.SetDefault("rotor.s3.key_prefix", "rotor/")
	viper.SetDefault("rotor.s3.use_ssl", true)

	viper.SetDefault("audit.enabled", true)
}

func initializeEngine(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
		return nil
	}

	var err error
	stage, err = rotor.ParseStage(viper.GetString("rotor.stage"))
	if err != nil {
		return err
	}

	store, err = buildStore()
	if err != nil {
		return err
	}

	if viper.GetBool("audit.enabled") {
		auditLogger = audit.NewStoreLogger(store)
	} else {
		auditLogger = &audit.NoOpLogger{}
	}

	resolver = &rotor.Environment{BaseDir: viper.GetString("rotor.env_dir")}

	metadata = rotor.NewMetadataStore(store, auditLogger)
	history = rotor.NewRotationHistoryStore(store)
	tracking := rotor.NewEncryptionTrackingStore(store, auditLogger)

	rotator = rotor.NewRotator(rotor.NewCryptoEngine(), metadata, history, tracking, auditLogger, resolver)
	if level := rotator.MemoryProtection(); level != "full" {
		fmt.Fprintf(os.Stderr, "warning: memory protection is %s; key material may be swapped to disk\n", level)
	}
	return nil
}

func buildStore() (persist.Store, error) {
	storeType := persist.StoreType(viper.GetString("rotor.store_type"))

	switch storeType {
	case persist.StoreTypeFileSystem:
		basePath := viper.GetString("rotor.data_path")
		if err := os.MkdirAll(basePath, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return persist.NewStore(persist.StoreConfig{
			Type:   persist.StoreTypeFileSystem,
			Config: map[string]interface{}{"base_path": filepath.Clean(basePath)},
		})
	case persist.StoreTypeS3:
		return persist.NewStore(persist.StoreConfig{
			Type: persist.StoreTypeS3,
			Config: map[string]interface{}{
				"endpoint":          viper.GetString("rotor.s3.endpoint"),
				"region":            viper.GetString("rotor.s3.region"),
				"bucket":            viper.GetString("rotor.s3.bucket"),
				"key_prefix":        viper.GetString("rotor.s3.key_prefix"),
				"access_key_id":     viper.GetString("rotor.s3.access_key_id"),
				"secret_access_key": viper.GetString("rotor.s3.secret_access_key"),
				"use_ssl":           viper.GetBool("rotor.s3.use_ssl"),
			},
		})
	case persist.StoreTypeMemory:
		return persist.NewStore(persist.StoreConfig{Type: persist.StoreTypeMemory})
	default:
		return nil, fmt.Errorf("unknown store type: %s", storeType)
	}
}
