package main

/*
#
# check-cloudwatch-alarm
#
# DESCRIPTION:
#   This plugin reports the state of a single cloudwatch alarm.
#   ALARM is critical, INSUFFICIENT_DATA is unknown (or a warning with --insufficient-data-warning).
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-cloudwatch-alarm --name=HighCPU
#   ./check-cloudwatch-alarm --aws-region=eu-west-1 --name=HighCPU --insufficient-data-warning
#
*/

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig               aws_session.Config
	alarmName               string
	insufficientDataWarning bool
)

type cloudwatchClient interface {
	DescribeAlarms(*cloudwatch.DescribeAlarmsInput) (*cloudwatch.DescribeAlarmsOutput, error)
}

func checkAlarm(client cloudwatchClient, name string, insufficientDataWarning bool) (int, error) {
	output, err := client.DescribeAlarms(&cloudwatch.DescribeAlarmsInput{
		AlarmNames: aws.StringSlice([]string{name}),
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "failed to get cloudwatch alarm details")
	}
	if output == nil || len(output.MetricAlarms) == 0 {
		return utils.Unknown("alarm %s not found", name), nil
	}

	alarm := output.MetricAlarms[0]
	state := aws.StringValue(alarm.StateValue)
	reason := aws.StringValue(alarm.StateReason)
	switch state {
	case cloudwatch.StateValueOk:
		return utils.Ok("alarm %s is %s", name, state), nil
	case cloudwatch.StateValueAlarm:
		return utils.Critical("alarm %s is %s: %s", name, state, reason), nil
	case cloudwatch.StateValueInsufficientData:
		if insufficientDataWarning {
			return utils.Warning("alarm %s is %s: %s", name, state, reason), nil
		}
	}
	return utils.Unknown("alarm %s is %s: %s", name, state, reason), nil
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
	utils.Exit(checkAlarm(cloudwatch.New(sess), alarmName, insufficientDataWarning))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-cloudwatch-alarm",
		Short: "Checks the state of a cloudwatch alarm",
		RunE:  run,
	}
	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&alarmName, "name", "n", "", "Alarm name")
	cmd.Flags().BoolVar(&insufficientDataWarning, "insufficient-data-warning", false, "Warn instead of unknown when the alarm has insufficient data")

	_ = cmd.MarkFlagRequired("name")
	return cmd
}
