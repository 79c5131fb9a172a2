package main

/*
#
# check-cloudwatch-alarms
#
# DESCRIPTION:
#   This plugin raises a critical if any cloudwatch alarm is in the given state.
#   Alarms matching one of the --exclude-alarms glob patterns are ignored.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-cloudwatch-alarms --exclude-alarms=CPUAlarmLow
#   ./check-cloudwatch-alarms --aws-region=eu-west-1 --exclude-alarms='CPUAlarm*,awseb-*'
#   ./check-cloudwatch-alarms --state=INSUFFICIENT_DATA
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	awsConfig     aws_session.Config
	excludeAlarms string
	state         string
)

type cloudwatchClient interface {
	DescribeAlarmsPages(*cloudwatch.DescribeAlarmsInput, func(*cloudwatch.DescribeAlarmsOutput, bool) bool) error
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid exclude pattern %q", pattern)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func excluded(name string, excludes []glob.Glob) bool {
	for _, g := range excludes {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func checkAlarms(client cloudwatchClient, state string, excludes []glob.Glob) (int, error) {
	var selected []string
	err := client.DescribeAlarmsPages(&cloudwatch.DescribeAlarmsInput{
		StateValue: aws.String(state),
	}, func(page *cloudwatch.DescribeAlarmsOutput, lastPage bool) bool {
		for _, alarm := range page.MetricAlarms {
			name := aws.StringValue(alarm.AlarmName)
			if excluded(name, excludes) {
				logger.Get().Debug("alarm excluded", zap.String("alarm", name))
				continue
			}
			selected = append(selected, name)
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "failed to get cloudwatch alarm details")
	}

	if len(selected) == 0 {
		return utils.Ok("no alarms in %s state", state), nil
	}
	return utils.Critical("%d alarms in %s state: %s", len(selected), state, strings.Join(selected, ", ")), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	excludes, err := compileExcludes(utils.SplitList(excludeAlarms))
	if err != nil {
		return err
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkAlarms(cloudwatch.New(sess), state, excludes))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-cloudwatch-alarms",
		Short: "Raises a critical if cloudwatch alarms are in the given state",
		RunE:  run,
	}
	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&excludeAlarms, "exclude-alarms", "e", "", "Comma separated alarm names or glob patterns to ignore")
	cmd.Flags().StringVarP(&state, "state", "s", cloudwatch.StateValueAlarm, "State of the alarm: OK, ALARM or INSUFFICIENT_DATA")
	return cmd
}
