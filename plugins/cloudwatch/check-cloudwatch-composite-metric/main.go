package main

/*
#
# check-cloudwatch-composite-metric
#
# DESCRIPTION:
#   This plugin retrieves the latest values of two cloudwatch metrics,
#   computes the percentage the numerator metric makes of the denominator metric
#   and triggers alarms based on the thresholds specified.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-cloudwatch-composite-metric --namespace AWS/ELB --dimensions="LoadBalancerName=test-elb" \
#     --numerator-metric-name HTTPCode_Backend_5XX --denominator-metric-name RequestCount \
#     --period=60 --statistics=Sum --operator=greater --critical=10
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
	awsConfig             aws_session.Config
	metricFlags           cloudwatch_common.Flags
	namespace             string
	numeratorMetricName   string
	denominatorMetricName string
	numeratorDefault      float64
	noDenominatorDataOk   bool
	zeroDenominatorDataOk bool
)

func compositeConfig(cmd *cobra.Command) (cloudwatch_common.CompositeConfig, error) {
	cfg, err := metricFlags.Config(cmd, namespace, numeratorMetricName)
	if err != nil {
		return cloudwatch_common.CompositeConfig{}, err
	}
	composite := cloudwatch_common.CompositeConfig{
		Config:                cfg,
		NumeratorMetricName:   numeratorMetricName,
		DenominatorMetricName: denominatorMetricName,
		NoDenominatorDataOk:   noDenominatorDataOk,
		ZeroDenominatorDataOk: zeroDenominatorDataOk,
	}
	if cmd.Flags().Changed("numerator-default") {
		value := numeratorDefault
		composite.NumeratorDefault = &value
	}
	return composite, nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	cfg, err := compositeConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(cloudwatch_common.CompositeCheck(cloudwatch.New(sess), cfg))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-cloudwatch-composite-metric",
		Short: "Checks the percentage of two cloudwatch metrics against thresholds",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	metricFlags.Register(cmd)
	cmd.Flags().StringVar(&namespace, "namespace", "AWS/EC2", "CloudWatch namespace for metric")
	cmd.Flags().StringVarP(&numeratorMetricName, "numerator-metric-name", "N", "", "Numerator metric name")
	cmd.Flags().StringVarP(&denominatorMetricName, "denominator-metric-name", "D", "", "Denominator metric name")
	cmd.Flags().Float64Var(&numeratorDefault, "numerator-default", 0, "Default for numerator if no data is returned for metric")
	cmd.Flags().BoolVar(&noDenominatorDataOk, "no-denominator-data-ok", false, "Returns ok if no data is returned from denominator metric")
	cmd.Flags().BoolVar(&zeroDenominatorDataOk, "zero-denominator-data-ok", false, "Returns ok if denominator metric is zero")

	_ = cmd.MarkFlagRequired("numerator-metric-name")
	_ = cmd.MarkFlagRequired("denominator-metric-name")
	return cmd
}
