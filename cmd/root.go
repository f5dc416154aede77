// Root of command-line argument parsing.
// This file was based off the standard cobra template, see
// https://github.com/spf13/cobra
package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/emccode/ecs-cf-service-broker/pkg/broker"
)

var cfgFile string

var brokerConfig struct {
	v       *viper.Viper
	cfg     *broker.Config
	catalog *broker.Catalog
	logger  *logrus.Logger
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ecs-broker",
	Short: "Cloud Foundry service broker for ECS object storage",
	Long: `Provisions and manages object-storage resources (buckets, namespaces,
users, quotas, retention policies, ACLs, NFS exports) on an ECS management
endpoint.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		brokerConfig.logger = logrus.New()

		v := viper.New()
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			home, err := homedir.Dir()
			if err == nil {
				v.AddConfigPath(home)
			}
			v.AddConfigPath("./configs")
			v.SetConfigName("broker")
		}
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to load config: %v", err)
		}
		brokerConfig.v = v

		cfg, err := broker.LoadConfig(v)
		if err != nil {
			return err
		}
		brokerConfig.cfg = cfg

		catalog, err := broker.LoadCatalog(v)
		if err != nil {
			return err
		}
		brokerConfig.catalog = catalog
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if brokerConfig.logger == nil {
			fmt.Printf("%v\n", err)
		} else {
			brokerConfig.logger.Error(err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/broker.yaml)")
}
