package main

/*
#
# check-cloudwatch-metric
#
# DESCRIPTION:
#   Checks the latest value of any cloudwatch metric against thresholds.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-cloudwatch-metric --namespace AWS/ELB --metric-name Latency --dimensions="LoadBalancerName=test-elb" --period=60 --statistics=Maximum --operator=greater --critical=0.5
#
*/

import (
	"fmt"

	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/spf13/cobra"
)

var (
	awsConfig   aws_session.Config
	metricFlags cloudwatch_common.Flags
	namespace   string
	metricName  string
)

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	cfg, err := metricFlags.Config(cmd, namespace, metricName)
	if err != nil {
		return err
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(cloudwatch_common.Check(cloudwatch.New(sess), cfg))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-cloudwatch-metric",
		Short: "Checks a cloudwatch metric against thresholds",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	metricFlags.Register(cmd)
	cmd.Flags().StringVar(&namespace, "namespace", "AWS/EC2", "CloudWatch namespace for metric")
	cmd.Flags().StringVarP(&metricName, "metric-name", "m", "", "Metric name")

	_ = cmd.MarkFlagRequired("metric-name")
	return cmd
}
