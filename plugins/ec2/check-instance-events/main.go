package main

/*
#
# check-instance-events
#
# DESCRIPTION:
#   Raises a critical when EC2 instances have scheduled events (reboots,
#   retirements, maintenance) that are not completed yet.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-instance-events --aws-region=us-west-1
#   ./check-instance-events --instance-ids=i-1,i-2 --filter tag:Env=prod
#
*/

import (
	"fmt"
	"sort"
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

func pendingEvent(event *ec2.InstanceStatusEvent) bool {
	description := aws.StringValue(event.Description)
	return !strings.HasPrefix(description, "[Completed]") && !strings.HasPrefix(description, "[Canceled]")
}

func checkEvents(client ec2Client, ids []string, filters []*ec2.Filter) (int, error) {
	input := &ec2.DescribeInstanceStatusInput{Filters: filters}
	if len(ids) > 0 {
		input.InstanceIds = aws.StringSlice(ids)
	}

	events := make(map[string][]string)
	err := client.DescribeInstanceStatusPages(input, func(page *ec2.DescribeInstanceStatusOutput, lastPage bool) bool {
		for _, status := range page.InstanceStatuses {
			id := aws.StringValue(status.InstanceId)
			for _, event := range status.Events {
				if pendingEvent(event) {
					events[id] = append(events[id], aws.StringValue(event.Code))
				}
			}
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe instance status")
	}

	if len(events) == 0 {
		return utils.Ok("no instances have scheduled events"), nil
	}
	affected := make([]string, 0, len(events))
	for id, codes := range events {
		affected = append(affected, fmt.Sprintf("%s (%s)", id, strings.Join(codes, ", ")))
	}
	sort.Strings(affected)
	return utils.Critical("%d instances have scheduled events: %s", len(events), strings.Join(affected, ", ")), nil
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
	utils.Exit(checkEvents(ec2.New(sess), utils.SplitList(instanceIDs), filters))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-instance-events",
		Short: "Checks EC2 instances for pending scheduled events",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	filterFlags.Register(cmd, "")
	cmd.Flags().StringVarP(&instanceIDs, "instance-ids", "i", "", "Comma separated instance ids to check, all by default")

	return cmd
}
