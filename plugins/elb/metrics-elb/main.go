package main

/*
#
# metrics-elb
#
# DESCRIPTION:
#   Gets classic load balancer metrics from CloudWatch and prints them in
#   graphite format.
#
# OUTPUT:
#   metric-data
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./metrics-elb --elb-names web,api
#   ./metrics-elb --metrics Latency,RequestCount --scheme mycorp.elb --fetch-age 120
#
*/

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/elb"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/metrics"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/spf13/cobra"
)

// statistics maps every collected metric to the statistic read from it.
var statistics = map[string]string{
	"Latency":                 cloudwatch.StatisticAverage,
	"RequestCount":            cloudwatch.StatisticSum,
	"UnHealthyHostCount":      cloudwatch.StatisticAverage,
	"HealthyHostCount":        cloudwatch.StatisticAverage,
	"HTTPCode_Backend_2XX":    cloudwatch.StatisticSum,
	"HTTPCode_Backend_3XX":    cloudwatch.StatisticSum,
	"HTTPCode_Backend_4XX":    cloudwatch.StatisticSum,
	"HTTPCode_Backend_5XX":    cloudwatch.StatisticSum,
	"HTTPCode_ELB_4XX":        cloudwatch.StatisticSum,
	"HTTPCode_ELB_5XX":        cloudwatch.StatisticSum,
	"BackendConnectionErrors": cloudwatch.StatisticSum,
	"SurgeQueueLength":        cloudwatch.StatisticMaximum,
	"SpilloverCount":          cloudwatch.StatisticSum,
}

var (
	awsConfig   aws_session.Config
	metricFlags metrics.Flags
	elbNames    string
	metricNames string
	period      int64
	fetchAge    int64
)

type elbClient interface {
	DescribeLoadBalancersPages(*elb.DescribeLoadBalancersInput, func(*elb.DescribeLoadBalancersOutput, bool) bool) error
}

type collectOptions struct {
	Names    []string
	Metrics  []string
	Period   int64
	FetchAge int64
}

func selectedMetrics(names []string) ([]string, error) {
	if len(names) == 0 {
		for name := range statistics {
			names = append(names, name)
		}
	}
	for _, name := range names {
		if _, ok := statistics[name]; !ok {
			return nil, errors.Errorf("unknown ELB metric %q", name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func collect(elbClient elbClient, cwClient cloudwatchiface.CloudWatchAPI, opts collectOptions, emitter *metrics.Emitter) error {
	input := &elb.DescribeLoadBalancersInput{}
	if len(opts.Names) > 0 {
		input.LoadBalancerNames = aws.StringSlice(opts.Names)
	}
	var names []string
	err := elbClient.DescribeLoadBalancersPages(input, func(page *elb.DescribeLoadBalancersOutput, lastPage bool) bool {
		for _, lb := range page.LoadBalancerDescriptions {
			names = append(names, aws.StringValue(lb.LoadBalancerName))
		}
		return true
	})
	if err != nil {
		return errors.Wrap(err, "describe load balancers")
	}

	end := emitter.Now().Add(-time.Duration(opts.FetchAge) * time.Second)
	for _, name := range names {
		for _, metric := range opts.Metrics {
			statistic := statistics[metric]
			request := cloudwatch_common.MetricsRequest(cloudwatch_common.Config{
				Namespace:  "AWS/ELB",
				Dimensions: []*cloudwatch.Dimension{{Name: aws.String("LoadBalancerName"), Value: aws.String(name)}},
				Period:     opts.Period,
				Statistic:  statistic,
			}, metric)
			request.EndTime = aws.Time(end)
			request.StartTime = aws.Time(end.Add(-time.Duration(opts.Period) * time.Second))

			dp, ok, err := cloudwatch_common.LatestValue(cwClient, request)
			if err != nil {
				return err
			}
			if ok {
				emitter.Add(dp.Value, dp.Timestamp, name, strings.ToLower(metric), strings.ToLower(statistic))
			}
		}
	}
	return nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	selected, err := selectedMetrics(utils.SplitList(metricNames))
	if err != nil {
		return err
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}

	opts := collectOptions{Names: utils.SplitList(elbNames), Metrics: selected, Period: period, FetchAge: fetchAge}
	metricFlags.Collect(func(e *metrics.Emitter) error {
		return collect(elb.New(sess), cloudwatch.New(sess), opts, e)
	})
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics-elb",
		Short: "Collects classic load balancer CloudWatch metrics",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	metricFlags.Register(cmd, "sensu.aws.elb")
	cmd.Flags().StringVarP(&elbNames, "elb-names", "n", "", "Comma separated load balancer names, all load balancers when empty")
	cmd.Flags().StringVarP(&metricNames, "metrics", "m", "", "Comma separated metrics to collect, all when empty")
	cmd.Flags().Int64VarP(&period, "period", "p", 60, "CloudWatch metric statistics period in seconds")
	cmd.Flags().Int64VarP(&fetchAge, "fetch-age", "f", 0, "How long ago to fetch metrics for in seconds")

	return cmd
}
