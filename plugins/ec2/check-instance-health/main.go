package main

/*
#
# check-instance-health
#
# DESCRIPTION:
#   Checks the EC2 system and instance status checks. Impaired instances are
#   critical, instances still initializing or with insufficient data are a warning.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-instance-health --aws-region=us-east-1
#   ./check-instance-health --filter tag:Role=db
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/filter"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig   aws_session.Config
	filterFlags filter.Flags
	instanceIDs string
)

type ec2Client interface {
	DescribeInstanceStatusPages(*ec2.DescribeInstanceStatusInput, func(*ec2.DescribeInstanceStatusOutput, bool) bool) error
}

func summaryStatus(summary *ec2.InstanceStatusSummary) string {
	if summary == nil {
		return ""
	}
	return aws.StringValue(summary.Status)
}

func checkInstanceHealth(client ec2Client, ids []string, filters []*ec2.Filter) (int, error) {
	input := &ec2.DescribeInstanceStatusInput{Filters: filters}
	if len(ids) > 0 {
		input.InstanceIds = aws.StringSlice(ids)
	}

	var impaired, degraded []string
	err := client.DescribeInstanceStatusPages(input, func(page *ec2.DescribeInstanceStatusOutput, lastPage bool) bool {
		for _, status := range page.InstanceStatuses {
			id := aws.StringValue(status.InstanceId)
			system, instance := summaryStatus(status.SystemStatus), summaryStatus(status.InstanceStatus)
			switch {
			case system == ec2.SummaryStatusImpaired || instance == ec2.SummaryStatusImpaired:
				impaired = append(impaired, fmt.Sprintf("%s (system %s, instance %s)", id, system, instance))
			case system == ec2.SummaryStatusInsufficientData || instance == ec2.SummaryStatusInsufficientData ||
				system == ec2.SummaryStatusInitializing || instance == ec2.SummaryStatusInitializing:
				degraded = append(degraded, fmt.Sprintf("%s (system %s, instance %s)", id, system, instance))
			}
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe instance status")
	}

	switch {
	case len(impaired) > 0:
		return utils.Critical("impaired instances: %s", strings.Join(append(impaired, degraded...), ", ")), nil
	case len(degraded) > 0:
		return utils.Warning("instances without a passing status: %s", strings.Join(degraded, ", ")), nil
	}
	return utils.Ok("all instance status checks pass"), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	filters, err := filterFlags.EC2()
	if err != nil {
		return err
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkInstanceHealth(ec2.New(sess), utils.SplitList(instanceIDs), filters))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-instance-health",
		Short: "Checks EC2 system and instance status checks",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	filterFlags.Register(cmd, "")
	cmd.Flags().StringVarP(&instanceIDs, "instance-ids", "i", "", "Comma separated instance ids to check, all by default")

	return cmd
}
