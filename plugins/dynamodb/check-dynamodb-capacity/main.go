package main

/*
#
# check-dynamodb-capacity
#
# DESCRIPTION:
#   Checks the consumed read and write capacity of DynamoDB tables as a
#   percentage of their provisioned capacity. On-demand tables are skipped.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-dynamodb-capacity --table-names users,orders --warning-over 70 --critical-over 90
#   ./check-dynamodb-capacity --capacity-for write --period 300
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

const (
	capacityRead  = "read"
	capacityWrite = "write"
)

var (
	awsConfig    aws_session.Config
	tableNames   string
	capacityFor  string
	period       int64
	warningOver  float64
	criticalOver float64
)

type dynamoClient interface {
	ListTablesPages(*dynamodb.ListTablesInput, func(*dynamodb.ListTablesOutput, bool) bool) error
	DescribeTable(*dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error)
}

type capacityOptions struct {
	Tables       []string
	Kinds        []string
	Period       int64
	WarningOver  float64
	CriticalOver float64
}

func listTables(client dynamoClient, names []string) ([]string, error) {
	if len(names) > 0 {
		return names, nil
	}
	err := client.ListTablesPages(&dynamodb.ListTablesInput{}, func(page *dynamodb.ListTablesOutput, lastPage bool) bool {
		names = append(names, aws.StringValueSlice(page.TableNames)...)
		return true
	})
	return names, errors.Wrap(err, "list tables")
}

func provisioned(table *dynamodb.TableDescription, kind string) int64 {
	if table.ProvisionedThroughput == nil {
		return 0
	}
	if kind == capacityRead {
		return aws.Int64Value(table.ProvisionedThroughput.ReadCapacityUnits)
	}
	return aws.Int64Value(table.ProvisionedThroughput.WriteCapacityUnits)
}

func consumedMetric(kind string) string {
	if kind == capacityRead {
		return "ConsumedReadCapacityUnits"
	}
	return "ConsumedWriteCapacityUnits"
}

func checkCapacity(dynamo dynamoClient, cw cloudwatchiface.CloudWatchAPI, opts capacityOptions) (int, error) {
	tables, err := listTables(dynamo, opts.Tables)
	if err != nil {
		return sensu.CheckStateUnknown, err
	}

	status := sensu.CheckStateOK
	var problems []string
	for _, name := range tables {
		out, err := dynamo.DescribeTable(&dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err != nil {
			return sensu.CheckStateUnknown, errors.Wrapf(err, "describe table %s", name)
		}
		for _, kind := range opts.Kinds {
			units := provisioned(out.Table, kind)
			if units == 0 {
				continue
			}
			dp, ok, err := cloudwatch_common.LatestValue(cw, cloudwatch_common.MetricsRequest(cloudwatch_common.Config{
				Namespace:  "AWS/DynamoDB",
				Dimensions: []*cloudwatch.Dimension{{Name: aws.String("TableName"), Value: aws.String(name)}},
				Period:     opts.Period,
				Statistic:  cloudwatch.StatisticSum,
			}, consumedMetric(kind)))
			if err != nil {
				return sensu.CheckStateUnknown, err
			}
			if !ok {
				continue
			}
			percent := dp.Value / float64(opts.Period) / float64(units) * 100
			tableStatus := utils.Above(percent, opts.WarningOver, opts.CriticalOver)
			if tableStatus != sensu.CheckStateOK {
				status = utils.Worst(status, tableStatus)
				problems = append(problems, fmt.Sprintf("%s %s capacity at %.1f%% of %d units", name, kind, percent, units))
			}
		}
	}

	if status != sensu.CheckStateOK {
		return utils.Status(status, "%s", strings.Join(problems, ", ")), nil
	}
	return utils.Ok("%s capacity of %d table(s) is below %g%%", strings.Join(opts.Kinds, "/"), len(tables), opts.WarningOver), nil
}

func capacityKinds(value string) ([]string, error) {
	kinds := utils.SplitList(value)
	if len(kinds) == 0 {
		return nil, errors.New("--capacity-for must name read and/or write")
	}
	for _, kind := range kinds {
		if kind != capacityRead && kind != capacityWrite {
			return nil, errors.Errorf("invalid capacity %q, expected read or write", kind)
		}
	}
	return kinds, nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	kinds, err := capacityKinds(capacityFor)
	if err != nil {
		return err
	}
	if period <= 0 {
		return fmt.Errorf("--period must be positive")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkCapacity(dynamodb.New(sess), cloudwatch.New(sess), capacityOptions{
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
		Use:   "check-dynamodb-capacity",
		Short: "Checks consumed capacity of DynamoDB tables",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&tableNames, "table-names", "t", "", "Comma separated table names, all tables when empty")
	cmd.Flags().StringVar(&capacityFor, "capacity-for", "read,write", "Comma separated capacities to check: read, write")
	cmd.Flags().Int64VarP(&period, "period", "p", 60, "CloudWatch metric statistics period in seconds")
	cmd.Flags().Float64VarP(&warningOver, "warning-over", "w", 80, "Warn when consumed capacity is over this percentage")
	cmd.Flags().Float64VarP(&criticalOver, "critical-over", "c", 90, "Critical when consumed capacity is over this percentage")

	return cmd
}
