package main

/*
#
# metrics-billing
#
# DESCRIPTION:
#   Collects the month to date unblended cost per service from Cost
#   Explorer, plus the total. Cost Explorer is only served from us-east-1.
#
# OUTPUT:
#   metric-data
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./metrics-billing
#   ./metrics-billing --services AmazonEC2,AmazonS3 --scheme aws.billing
#
*/

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/costexplorer"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/metrics"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/spf13/cobra"
)

const (
	costExplorerRegion = "us-east-1"
	costMetric         = "UnblendedCost"
	dateLayout         = "2006-01-02"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

var (
	awsConfig   aws_session.Config
	metricFlags metrics.Flags
	services    string
)

type costClient interface {
	GetCostAndUsage(*costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error)
}

// metricName turns "Amazon Elastic Compute Cloud - Compute" into
// "amazon_elastic_compute_cloud_compute".
func metricName(service string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(service), "_"), "_")
}

// monthToDate spans the first of the month up to and including today.
func monthToDate(now time.Time) *costexplorer.DateInterval {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return &costexplorer.DateInterval{
		Start: aws.String(start.Format(dateLayout)),
		End:   aws.String(end.Format(dateLayout)),
	}
}

func amount(values map[string]*costexplorer.MetricValue) (float64, error) {
	value, ok := values[costMetric]
	if !ok {
		return 0, nil
	}
	return strconv.ParseFloat(aws.StringValue(value.Amount), 64)
}

func collect(client costClient, only []string, emitter *metrics.Emitter) error {
	wanted := map[string]bool{}
	for _, s := range only {
		wanted[s] = true
	}

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod:  monthToDate(emitter.Now()),
		Granularity: aws.String(costexplorer.GranularityMonthly),
		Metrics:     aws.StringSlice([]string{costMetric}),
		GroupBy: []*costexplorer.GroupDefinition{{
			Type: aws.String(costexplorer.GroupDefinitionTypeDimension),
			Key:  aws.String(costexplorer.DimensionService),
		}},
	}

	costs := map[string]float64{}
	var order []string
	total := 0.0
	for {
		out, err := client.GetCostAndUsage(input)
		if err != nil {
			return errors.Wrap(err, "get cost and usage")
		}
		for _, result := range out.ResultsByTime {
			for _, group := range result.Groups {
				service := strings.Join(aws.StringValueSlice(group.Keys), " ")
				value, err := amount(group.Metrics)
				if err != nil {
					return errors.Wrapf(err, "parse cost of %s", service)
				}
				total += value
				if len(wanted) > 0 && !wanted[service] {
					continue
				}
				if _, seen := costs[service]; !seen {
					order = append(order, service)
				}
				costs[service] += value
			}
		}
		if aws.StringValue(out.NextPageToken) == "" {
			break
		}
		input.NextPageToken = out.NextPageToken
	}

	ts := emitter.Now()
	for _, service := range order {
		emitter.Add(costs[service], ts, metricName(service), "unblended_cost")
	}
	emitter.Add(total, ts, "total", "unblended_cost")
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
	awsConfig.Region = costExplorerRegion
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	metricFlags.Collect(func(e *metrics.Emitter) error {
		return collect(costexplorer.New(sess), utils.SplitList(services), e)
	})
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics-billing",
		Short: "Collects month to date cost per service",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	metricFlags.Register(cmd, "sensu.aws.billing")
	cmd.Flags().StringVar(&services, "services", "", "Comma separated Cost Explorer service names, all services when empty")

	return cmd
}
