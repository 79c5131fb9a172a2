package main

/*
#
# check-alb-target-group-health
#
# DESCRIPTION:
#   This plugin checks the health of Application Load Balancer target groups
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   Check all target groups in a region
#   ./check-alb-target-group-health --aws-region=us-east-1
#
#   Check multiple target groups in a region
#   ./check-alb-target-group-health --aws-region=us-east-1 --target-groups=target-group-a,target-group-b
#
*/

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/elbv2"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	awsConfig    aws_session.Config
	targetGroups string
	critical     bool
)

type elbClient interface {
	DescribeTargetGroups(*elbv2.DescribeTargetGroupsInput) (*elbv2.DescribeTargetGroupsOutput, error)
	DescribeTargetHealth(*elbv2.DescribeTargetHealthInput) (*elbv2.DescribeTargetHealthOutput, error)
}

func checkHealth(client elbClient, groups []string, critical bool) (int, error) {
	input := &elbv2.DescribeTargetGroupsInput{}
	if len(groups) > 0 {
		input.Names = aws.StringSlice(groups)
	}
	output, err := client.DescribeTargetGroups(input)
	if err != nil {
		return sensu.CheckStateCritical, errors.Wrap(err, "error while calling DescribeTargetGroups")
	}
	if output == nil || len(output.TargetGroups) == 0 {
		return utils.Ok("no ALB target groups found"), nil
	}

	unhealthyTargets := make(map[string][]string)
	for _, targetGroup := range output.TargetGroups {
		name := aws.StringValue(targetGroup.TargetGroupName)
		health, err := client.DescribeTargetHealth(&elbv2.DescribeTargetHealthInput{
			TargetGroupArn: targetGroup.TargetGroupArn,
		})
		if err != nil {
			return sensu.CheckStateCritical, errors.Wrapf(err, "error while calling DescribeTargetHealth for %s", name)
		}
		if health == nil {
			continue
		}
		for _, target := range health.TargetHealthDescriptions {
			if target.TargetHealth == nil || aws.StringValue(target.TargetHealth.State) != elbv2.TargetHealthStateEnumUnhealthy {
				continue
			}
			unhealthyTargets[name] = append(unhealthyTargets[name], aws.StringValue(target.Target.Id))
		}
	}

	if len(unhealthyTargets) == 0 {
		return utils.Ok("all ALB target groups are healthy"), nil
	}

	names := make([]string, 0, len(unhealthyTargets))
	for name := range unhealthyTargets {
		names = append(names, name)
	}
	sort.Strings(names)
	details := make([]string, 0, len(names))
	for _, name := range names {
		details = append(details, fmt.Sprintf("%s has %d unhealthy targets: %s", name, len(unhealthyTargets[name]), strings.Join(unhealthyTargets[name], ", ")))
	}
	logger.Get().Debug("unhealthy target groups", zap.Strings("groups", names))

	if critical {
		return utils.Critical("%s", strings.Join(details, "; ")), nil
	}
	return utils.Warning("%s", strings.Join(details, "; ")), nil
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
	utils.Exit(checkHealth(elbv2.New(sess), utils.SplitList(targetGroups), critical))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-alb-target-group-health",
		Short: "Checks the health of Application Load Balancer target groups",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&targetGroups, "target-groups", "t", "", "The ALB target group(s) to check. Separate multiple target groups with commas")
	cmd.Flags().BoolVarP(&critical, "critical", "c", false, "Critical instead of warn when unhealthy targets are found")

	return cmd
}
