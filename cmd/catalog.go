// Handles the "ecs-broker catalog" command

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the services and plans this broker offers",
	Run: func(cmd *cobra.Command, args []string) {
		for _, svc := range brokerConfig.catalog.Services {
			repo := ""
			if svc.Repository {
				repo = " (repository)"
			}
			fmt.Printf("%s [%s]%s\n", svc.Name, svc.ID, repo)
			for _, plan := range svc.Plans {
				fmt.Printf("    %s [%s] %s\n", plan.Name, plan.ID, plan.Description)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
