package main

/*
#
# check-dynamodb-throttle
#
# DESCRIPTION:
#   Checks the number of throttled read and write requests of DynamoDB tables.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-dynamodb-throttle --table-names users --warning-over 10 --critical-over 50
#   ./check-dynamodb-throttle --throttle-for write --period 300
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var throttleMetrics = map[string]string{
	"read":  "ReadThrottleEvents",
	"write": "WriteThrottleEvents",
}

var (
	awsConfig    aws_session.Config
	tableNames   string
	throttleFor  string
	period       int64
	warningOver  float64
	criticalOver float64
)

type dynamoClient interface {
	ListTablesPages(*dynamodb.ListTablesInput, func(*dynamodb.ListTablesOutput, bool) bool) error
}

type throttleOptions struct {
	Tables       []string
	Kinds        []string
	Period       int64
	WarningOver  float64
	CriticalOver float64
}

func checkThrottle(dynamo dynamoClient, cw cloudwatchiface.CloudWatchAPI, opts throttleOptions) (int, error) {
	tables := opts.Tables
	if len(tables) == 0 {
		err := dynamo.ListTablesPages(&dynamodb.ListTablesInput{}, func(page *dynamodb.ListTablesOutput, lastPage bool) bool {
			tables = append(tables, aws.StringValueSlice(page.TableNames)...)
			return true
		})
		if err != nil {
			return sensu.CheckStateUnknown, errors.Wrap(err, "list tables")
		}
	}

	status := sensu.CheckStateOK
	var problems []string
	for _, name := range tables {
		for _, kind := range opts.Kinds {
			dp, ok, err := cloudwatch_common.LatestValue(cw, cloudwatch_common.MetricsRequest(cloudwatch_common.Config{
				Namespace:  "AWS/DynamoDB",
				Dimensions: []*cloudwatch.Dimension{{Name: aws.String("TableName"), Value: aws.String(name)}},
				Period:     opts.Period,
				Statistic:  cloudwatch.StatisticSum,
			}, throttleMetrics[kind]))
			if err != nil {
				return sensu.CheckStateUnknown, err
			}
			if !ok {
				continue
			}
			tableStatus := utils.Above(dp.Value, opts.WarningOver, opts.CriticalOver)
			if tableStatus != sensu.CheckStateOK {
				status = utils.Worst(status, tableStatus)
				problems = append(problems, fmt.Sprintf("%s %.0f %s requests throttled", name, dp.Value, kind))
			}
		}
	}

	if status != sensu.CheckStateOK {
		return utils.Status(status, "%s", strings.Join(problems, ", ")), nil
	}
	return utils.Ok("throttled requests of %d table(s) are below %g", len(tables), opts.WarningOver), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	kinds := utils.SplitList(throttleFor)
	for _, kind := range kinds {
		if _, ok := throttleMetrics[kind]; !ok {
			return fmt.Errorf("invalid throttle kind %q, expected read or write", kind)
		}
	}
	if len(kinds) == 0 {
		return fmt.Errorf("--throttle-for must name read and/or write")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkThrottle(dynamodb.New(sess), cloudwatch.New(sess), throttleOptions{
		Tables:       utils.SplitList(tableNames),
		Kinds:        kinds,
		Period:       period,
		WarningOver:  warningOver,
		CriticalOver: criticalOver,
	}))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-dynamodb-throttle",
		Short: "Checks throttled requests of DynamoDB tables",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&tableNames, "table-names", "t", "", "Comma separated table names, all tables when empty")
	cmd.Flags().StringVar(&throttleFor, "throttle-for", "read,write", "Comma separated request kinds to check: read, write")
	cmd.Flags().Int64VarP(&period, "period", "p", 60, "CloudWatch metric statistics period in seconds")
	cmd.Flags().Float64VarP(&warningOver, "warning-over", "w", 50, "Warn when throttled requests reach this count")
	cmd.Flags().Float64VarP(&criticalOver, "critical-over", "c", 100, "Critical when throttled requests reach this count")

	return cmd
}
