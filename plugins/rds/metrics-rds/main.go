package main

/*
#
# metrics-rds
#
# DESCRIPTION:
#   Gets RDS instance metrics from CloudWatch and prints them in graphite
#   format, one path per instance.
#
# OUTPUT:
#   metric-data
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./metrics-rds -r us-east-1
#   ./metrics-rds --db-instance-id my-db --scheme mycorp.rds --statistic Maximum
#
*/

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/rds"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/metrics"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/spf13/cobra"
)

var metricNames = []string{
	"BinLogDiskUsage",
	"CPUUtilization",
	"DatabaseConnections",
	"DiskQueueDepth",
	"FreeStorageSpace",
	"FreeableMemory",
	"ReadIOPS",
	"ReadLatency",
	"ReadThroughput",
	"ReplicaLag",
	"SwapUsage",
	"WriteIOPS",
	"WriteLatency",
	"WriteThroughput",
}

var (
	awsConfig    aws_session.Config
	metricFlags  metrics.Flags
	dbInstanceID string
	period       int64
	fetchAge     int64
	statistic    string
)

type rdsClient interface {
	DescribeDBInstancesPages(*rds.DescribeDBInstancesInput, func(*rds.DescribeDBInstancesOutput, bool) bool) error
}

type collectOptions struct {
	InstanceID string
	Period     int64
	FetchAge   int64
	Statistic  string
}

func collect(rdsClient rdsClient, cwClient cloudwatchiface.CloudWatchAPI, opts collectOptions, emitter *metrics.Emitter) error {
	input := &rds.DescribeDBInstancesInput{}
	if opts.InstanceID != "" {
		input.DBInstanceIdentifier = aws.String(opts.InstanceID)
	}
	var instances []string
	err := rdsClient.DescribeDBInstancesPages(input, func(page *rds.DescribeDBInstancesOutput, lastPage bool) bool {
		for _, instance := range page.DBInstances {
			instances = append(instances, aws.StringValue(instance.DBInstanceIdentifier))
		}
		return true
	})
	if err != nil {
		return errors.Wrap(err, "describe db instances")
	}

	end := emitter.Now().Add(-time.Duration(opts.FetchAge) * time.Second)
	for _, instance := range instances {
		for _, metric := range metricNames {
			request := cloudwatch_common.MetricsRequest(cloudwatch_common.Config{
				Namespace:  "AWS/RDS",
				Dimensions: []*cloudwatch.Dimension{{Name: aws.String("DBInstanceIdentifier"), Value: aws.String(instance)}},
				Period:     opts.Period,
				Statistic:  opts.Statistic,
			}, metric)
			request.EndTime = aws.Time(end)
			request.StartTime = aws.Time(end.Add(-time.Duration(opts.Period) * time.Second))

			dp, ok, err := cloudwatch_common.LatestValue(cwClient, request)
			if err != nil {
				return err
			}
			if ok {
				emitter.Add(dp.Value, dp.Timestamp, instance, strings.ToLower(metric), strings.ToLower(opts.Statistic))
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
	normalized, err := cloudwatch_common.NormalizeStatistic(statistic)
	if err != nil {
		return err
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}

	opts := collectOptions{InstanceID: dbInstanceID, Period: period, FetchAge: fetchAge, Statistic: normalized}
	metricFlags.Collect(func(e *metrics.Emitter) error {
		return collect(rds.New(sess), cloudwatch.New(sess), opts, e)
	})
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics-rds",
		Short: "Collects RDS instance CloudWatch metrics",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	metricFlags.Register(cmd, "sensu.aws.rds")
	cmd.Flags().StringVarP(&dbInstanceID, "db-instance-id", "i", "", "DB instance identifier, all instances when empty")
	cmd.Flags().Int64VarP(&period, "period", "p", 60, "CloudWatch metric statistics period in seconds")
	cmd.Flags().Int64VarP(&fetchAge, "fetch-age", "f", 0, "How long ago to fetch metrics for in seconds")
	cmd.Flags().StringVar(&statistic, "statistic", cloudwatch.StatisticAverage, "CloudWatch statistic")

	return cmd
}
