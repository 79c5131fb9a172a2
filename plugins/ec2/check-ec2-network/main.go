package main

/*
#
# check-ec2-network
#
# DESCRIPTION:
#   Checks the NetworkIn or NetworkOut of an EC2 instance against thresholds (bytes).
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-ec2-network --instance-id=i-12345678 -w 1000000 -c 1500000
#   ./check-ec2-network --instance-id=i-12345678 --direction=NetworkOut --end-time=2019-11-12T11:45:26Z
#
*/

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig aws_session.Config
	opts      networkOptions
	endTime   string
)

type networkOptions struct {
	InstanceID string
	Direction  string
	Period     int64
	EndTime    time.Time
	Warning    float64
	Critical   float64
}

func networkRequest(o networkOptions) *cloudwatch.GetMetricStatisticsInput {
	request := cloudwatch_common.MetricsRequest(cloudwatch_common.Config{
		Namespace:  "AWS/EC2",
		Dimensions: []*cloudwatch.Dimension{{Name: aws.String("InstanceId"), Value: aws.String(o.InstanceID)}},
		Period:     o.Period,
		Statistic:  cloudwatch.StatisticAverage,
		Unit:       cloudwatch.StandardUnitBytes,
	}, o.Direction)
	if !o.EndTime.IsZero() {
		request.EndTime = aws.Time(o.EndTime)
		request.StartTime = aws.Time(o.EndTime.Add(-time.Duration(o.Period*10) * time.Second))
	}
	return request
}

func checkNetwork(client cloudwatchiface.CloudWatchAPI, o networkOptions) (int, error) {
	dp, ok, err := cloudwatch_common.LatestValue(client, networkRequest(o))
	if err != nil {
		return sensu.CheckStateUnknown, err
	}
	if !ok {
		return utils.Unknown("%s of %s could not be retrieved", o.Direction, o.InstanceID), nil
	}
	return utils.Status(utils.Above(dp.Value, o.Warning, o.Critical), "%s of %s at %.0f bytes", o.Direction, o.InstanceID, dp.Value), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if opts.Direction != "NetworkIn" && opts.Direction != "NetworkOut" {
		return errors.Errorf("invalid direction %q, expected NetworkIn or NetworkOut", opts.Direction)
	}
	if endTime != "" {
		t, err := time.Parse(time.RFC3339, endTime)
		if err != nil {
			return errors.Wrap(err, "invalid --end-time")
		}
		opts.EndTime = t
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkNetwork(cloudwatch.New(sess), opts))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-ec2-network",
		Short: "Checks EC2 instance network traffic against thresholds",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&opts.InstanceID, "instance-id", "i", "", "EC2 Instance ID to check")
	cmd.Flags().StringVarP(&opts.Direction, "direction", "d", "NetworkIn", "Direction of traffic: NetworkIn or NetworkOut")
	cmd.Flags().Int64VarP(&opts.Period, "period", "p", 60, "CloudWatch metric statistics period in seconds")
	cmd.Flags().StringVarP(&endTime, "end-time", "t", "", "CloudWatch metric statistics end time (RFC3339), defaults to now")
	cmd.Flags().Float64VarP(&opts.Critical, "critical", "c", 1500000, "Trigger a critical if network traffic is over specified bytes")
	cmd.Flags().Float64VarP(&opts.Warning, "warning", "w", 1000000, "Trigger a warning if network traffic is over specified bytes")

	_ = cmd.MarkFlagRequired("instance-id")
	return cmd
}
