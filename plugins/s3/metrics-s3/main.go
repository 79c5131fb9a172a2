package main

/*
#
# metrics-s3
#
# DESCRIPTION:
#   Gets the size and object count of S3 buckets from CloudWatch and prints
#   them in graphite format.
#
# OUTPUT:
#   metric-data
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./metrics-s3 -r us-east-1
#   ./metrics-s3 --buckets logs,backups --scheme mycorp.s3
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/metrics"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/spf13/cobra"
)

// S3 storage metrics are published once a day.
const storagePeriod = 24 * 60 * 60

var bucketMetrics = []struct {
	metric      string
	storageType string
	path        string
}{
	{"BucketSizeBytes", "StandardStorage", "bucket_size_bytes"},
	{"NumberOfObjects", "AllStorageTypes", "number_of_objects"},
}

var (
	awsConfig   aws_session.Config
	metricFlags metrics.Flags
	buckets     string
)

type s3Client interface {
	ListBuckets(*s3.ListBucketsInput) (*s3.ListBucketsOutput, error)
}

func collect(s3Client s3Client, cwClient cloudwatchiface.CloudWatchAPI, names []string, emitter *metrics.Emitter) error {
	if len(names) == 0 {
		out, err := s3Client.ListBuckets(&s3.ListBucketsInput{})
		if err != nil {
			return errors.Wrap(err, "list buckets")
		}
		for _, bucket := range out.Buckets {
			names = append(names, aws.StringValue(bucket.Name))
		}
	}

	for _, name := range names {
		for _, m := range bucketMetrics {
			dp, ok, err := cloudwatch_common.LatestValue(cwClient, cloudwatch_common.MetricsRequest(cloudwatch_common.Config{
				Namespace: "AWS/S3",
				Dimensions: []*cloudwatch.Dimension{
					{Name: aws.String("BucketName"), Value: aws.String(name)},
					{Name: aws.String("StorageType"), Value: aws.String(m.storageType)},
				},
				Period:    storagePeriod,
				Statistic: cloudwatch.StatisticAverage,
			}, m.metric))
			if err != nil {
				return err
			}
			if ok {
				emitter.Add(dp.Value, dp.Timestamp, strings.ReplaceAll(name, ".", "_"), m.path)
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
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	metricFlags.Collect(func(e *metrics.Emitter) error {
		return collect(s3.New(sess), cloudwatch.New(sess), utils.SplitList(buckets), e)
	})
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics-s3",
		Short: "Collects S3 bucket size and object count",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	metricFlags.Register(cmd, "sensu.aws.s3.buckets")
	cmd.Flags().StringVarP(&buckets, "buckets", "b", "", "Comma separated buckets, all listed buckets when empty")

	return cmd
}
