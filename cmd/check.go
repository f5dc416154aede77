// Handles the "ecs-broker check" command

package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/emccode/ecs-cf-service-broker/pkg/broker"
	"github.com/emccode/ecs-cf-service-broker/pkg/bucketwipe"
	"github.com/emccode/ecs-cf-service-broker/pkg/ecs"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Connect to the management endpoint and run the full startup sequence",
	Long: `Resolves the object endpoint and replication group, validates the default
reclaim policy and bootstraps the repository bucket and user. This is exactly
what happens when the broker starts serving; a clean run means the
configuration is usable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := brokerConfig.cfg
		logger := brokerConfig.logger

		conn := ecs.NewConnection(cfg.ManagementEndpoint, cfg.Username, cfg.Password, cfg.InsecureSkipVerify)
		ctx := context.Background()
		if err := conn.Login(ctx); err != nil {
			return errors.Wrap(err, "management endpoint login failed")
		}

		newWiper := func(endpoint, accessKey, secretKey string) (broker.ObjectWiper, error) {
			return bucketwipe.New(endpoint, accessKey, secretKey, logger.WithField("module", "bucketwipe"))
		}
		svc, err := broker.NewEcsService(ctx, conn, cfg, brokerConfig.catalog,
			logger.WithField("module", "broker"), newWiper)
		if err != nil {
			return errors.Wrap(err, "startup check failed")
		}

		logger.Infof("startup check passed, object endpoint: %s", svc.ObjectEndpoint())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
