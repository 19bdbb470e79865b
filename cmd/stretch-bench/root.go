package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jhwagner/stretch-bench/pkg/config"
	"github.com/jhwagner/stretch-bench/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile    string
	verbose    bool
	kubeconfig string
	namespace  string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "stretch-bench",
	Short: "Manage clusters for stretch deployments",
	Long: `stretch-bench registers the Kubernetes clusters a stretch deployment
spans, keeps their credentials as Secrets on a central cluster, and
checks that every cluster can be reached.

Each member cluster is addressed by its API endpoint and the name of the
Secret holding its credentials. Clusters can be existing ones or be
provisioned locally with kind, and can be exported to Kueue's MultiKueue.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(viper.GetBool("verbose"))
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.stretch-bench.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&kubeconfig, "kubeconfig", "", "path to the central cluster kubeconfig (default is $HOME/.kube/config)")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "namespace holding credential Secrets (default is "+config.DefaultCentralNamespace+")")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("kubeconfig", rootCmd.PersistentFlags().Lookup("kubeconfig"))
	_ = viper.BindPFlag("namespace", rootCmd.PersistentFlags().Lookup("namespace"))

	viper.SetDefault("probe.concurrency", 4)
	viper.SetDefault("probe.timeout", 10*time.Second)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".stretch-bench")
	}

	viper.SetEnvPrefix("STRETCH_BENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// probeSettings reads the probe section of the CLI configuration.
// Keys are read one by one so flags and env vars override the config file.
func probeSettings() config.ProbeSettings {
	return config.ProbeSettings{
		Concurrency: viper.GetInt("probe.concurrency"),
		Timeout:     viper.GetDuration("probe.timeout"),
	}
}
