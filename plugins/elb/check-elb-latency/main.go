package main

/*
#
# check-elb-latency
#
# DESCRIPTION:
#   Checks the Latency CloudWatch metric of classic load balancers.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-elb-latency --warning-over 1 --critical-over 3
#   ./check-elb-latency --elb-names web,api --statistic Maximum --critical-over 5
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
	statistic    string
	warningOver  float64
	criticalOver float64
)

type elbClient interface {
	DescribeLoadBalancersPages(*elb.DescribeLoadBalancersInput, func(*elb.DescribeLoadBalancersOutput, bool) bool) error
}

func loadBalancerNames(client elbClient, names []string) ([]string, error) {
	input := &elb.DescribeLoadBalancersInput{}
	if len(names) > 0 {
		input.LoadBalancerNames = aws.StringSlice(names)
	}
	var found []string
	err := client.DescribeLoadBalancersPages(input, func(page *elb.DescribeLoadBalancersOutput, lastPage bool) bool {
		for _, lb := range page.LoadBalancerDescriptions {
			found = append(found, aws.StringValue(lb.LoadBalancerName))
		}
		return true
	})
	return found, errors.Wrap(err, "describe load balancers")
}

type latencyOptions struct {
	Names        []string
	Period       int64
	Statistic    string
	WarningOver  float64
	CriticalOver float64
}

func checkLatency(elbClient elbClient, cwClient cloudwatchiface.CloudWatchAPI, opts latencyOptions) (int, error) {
	names, err := loadBalancerNames(elbClient, opts.Names)
	if err != nil {
		return sensu.CheckStateUnknown, err
	}

	status := sensu.CheckStateOK
	var slow []string
	for _, name := range names {
		dp, ok, err := cloudwatch_common.LatestValue(cwClient, cloudwatch_common.MetricsRequest(cloudwatch_common.Config{
			Namespace:  "AWS/ELB",
			Dimensions: []*cloudwatch.Dimension{{Name: aws.String("LoadBalancerName"), Value: aws.String(name)}},
			Period:     opts.Period,
			Statistic:  opts.Statistic,
		}, "Latency"))
		if err != nil {
			return sensu.CheckStateUnknown, err
		}
		if !ok {
			continue
		}
		elbStatus := utils.Above(dp.Value, opts.WarningOver, opts.CriticalOver)
		if elbStatus != sensu.CheckStateOK {
			status = utils.Worst(status, elbStatus)
			slow = append(slow, fmt.Sprintf("%s %s latency is %.3f seconds", name, strings.ToLower(opts.Statistic), dp.Value))
		}
	}

	if status == sensu.CheckStateOK {
		return utils.Ok("latency of %d load balancer(s) is below %g seconds", len(names), opts.WarningOver), nil
	}
	return utils.Status(status, "%s", strings.Join(slow, ", ")), nil
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
	utils.Exit(checkLatency(elb.New(sess), cloudwatch.New(sess), latencyOptions{
		Names:        utils.SplitList(elbNames),
		Period:       period,
		Statistic:    statistic,
		WarningOver:  warningOver,
		CriticalOver: criticalOver,
	}))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-elb-latency",
		Short: "Checks the latency of classic load balancers",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&elbNames, "elb-names", "n", "", "Comma separated load balancer names, all load balancers when empty")
	cmd.Flags().Int64VarP(&period, "period", "p", 60, "CloudWatch metric statistics period in seconds")
	cmd.Flags().StringVarP(&statistic, "statistic", "s", cloudwatch.StatisticAverage, "CloudWatch statistic")
	cmd.Flags().Float64VarP(&warningOver, "warning-over", "w", 1, "Warn when latency is over this many seconds")
	cmd.Flags().Float64VarP(&criticalOver, "critical-over", "c", 3, "Critical when latency is over this many seconds")

	return cmd
}
