package main

/*
#
# check-rds-pending
#
# DESCRIPTION:
#   Checks RDS instances for pending maintenance actions.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-rds-pending -r us-east-1
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/arn"
	"github.com/aws/aws-sdk-go/service/rds"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var awsConfig aws_session.Config

type rdsClient interface {
	DescribePendingMaintenanceActionsPages(*rds.DescribePendingMaintenanceActionsInput, func(*rds.DescribePendingMaintenanceActionsOutput, bool) bool) error
}

// resourceName returns the identifier at the end of an rds arn.
func resourceName(resourceArn string) string {
	parsed, err := arn.Parse(resourceArn)
	if err != nil {
		return resourceArn
	}
	parts := strings.Split(parsed.Resource, ":")
	return parts[len(parts)-1]
}

func checkPending(client rdsClient) (int, error) {
	var pending []string
	err := client.DescribePendingMaintenanceActionsPages(&rds.DescribePendingMaintenanceActionsInput{}, func(page *rds.DescribePendingMaintenanceActionsOutput, lastPage bool) bool {
		for _, resource := range page.PendingMaintenanceActions {
			actions := make([]string, 0, len(resource.PendingMaintenanceActionDetails))
			for _, detail := range resource.PendingMaintenanceActionDetails {
				actions = append(actions, aws.StringValue(detail.Action))
			}
			pending = append(pending, fmt.Sprintf("%s (%s)", resourceName(aws.StringValue(resource.ResourceIdentifier)), strings.Join(actions, ", ")))
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe pending maintenance actions")
	}

	if len(pending) == 0 {
		return utils.Ok("no pending maintenance actions"), nil
	}
	return utils.Critical("instances w/ pending maintenance required: %s", strings.Join(pending, ", ")), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkPending(rds.New(sess)))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-rds-pending",
		Short: "Checks RDS instances for pending maintenance actions",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)

	return cmd
}
