package main

/*
#
# check-elb-sum-requests
#
# DESCRIPTION:
#   Checks the sum of requests served by classic load balancers over a period.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-elb-sum-requests --warning-over 1000000 --critical-over 2000000
#   ./check-elb-sum-requests --elb-names web,api --period 300 --critical-over 50000
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/elb"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig    aws_session.Config
	elbNames     string
	period       int64
	warningOver  float64
	criticalOver float64
)

type elbClient interface {
	DescribeLoadBalancersPages(*elb.DescribeLoadBalancersInput, func(*elb.DescribeLoadBalancersOutput, bool) bool) error
}

func checkSumRequests(elbClient elbClient, cwClient cloudwatchiface.CloudWatchAPI, names []string, period int64, warning, critical float64) (int, error) {
	input := &elb.DescribeLoadBalancersInput{}
	if len(names) > 0 {
		input.LoadBalancerNames = aws.StringSlice(names)
	}
	var found []string
	err := elbClient.DescribeLoadBalancersPages(input, func(page *elb.DescribeLoadBalancersOutput, lastPage bool) bool {
		for _, lb := range page.LoadBalancerDescriptions {
			found = append(found, aws.StringValue(lb.LoadBalancerName))
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe load balancers")
	}

	status := sensu.CheckStateOK
	var busy []string
	for _, name := range found {
		dp, ok, err := cloudwatch_common.LatestValue(cwClient, cloudwatch_common.MetricsRequest(cloudwatch_common.Config{
			Namespace:  "AWS/ELB",
			Dimensions: []*cloudwatch.Dimension{{Name: aws.String("LoadBalancerName"), Value: aws.String(name)}},
			Period:     period,
			Statistic:  cloudwatch.StatisticSum,
		}, "RequestCount"))
		if err != nil {
			return sensu.CheckStateUnknown, err
		}
		if !ok {
			continue
		}
		elbStatus := utils.Above(dp.Value, warning, critical)
		if elbStatus != sensu.CheckStateOK {
			status = utils.Worst(status, elbStatus)
			busy = append(busy, fmt.Sprintf("%s served %.0f requests in %d seconds", name, dp.Value, period))
		}
	}

	if status == sensu.CheckStateOK {
		return utils.Ok("request count of %d load balancer(s) is within thresholds", len(found)), nil
	}
	return utils.Status(status, "%s", strings.Join(busy, ", ")), nil
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
	utils.Exit(checkSumRequests(elb.New(sess), cloudwatch.New(sess), utils.SplitList(elbNames), period, warningOver, criticalOver))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-elb-sum-requests",
		Short: "Checks the number of requests served by classic load balancers",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&elbNames, "elb-names", "n", "", "Comma separated load balancer names, all load balancers when empty")
	cmd.Flags().Int64VarP(&period, "period", "p", 60, "CloudWatch metric statistics period in seconds")
	cmd.Flags().Float64VarP(&warningOver, "warning-over", "w", 0, "Warn when the request count is over this value")
	cmd.Flags().Float64VarP(&criticalOver, "critical-over", "c", 0, "Critical when the request count is over this value")

	_ = cmd.MarkFlagRequired("warning-over")
	_ = cmd.MarkFlagRequired("critical-over")
	return cmd
}
