package main

/*
#
# metrics-elasticache
#
# DESCRIPTION:
#   Collects CloudWatch metrics of ElastiCache cache nodes. The metric set
#   depends on the cluster engine.
#
# OUTPUT:
#   metric-data
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./metrics-elasticache
#   ./metrics-elasticache --cache-cluster-id sessions-001 --period 300
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/elasticache"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/metrics"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/spf13/cobra"
)

var engineMetrics = map[string][]string{
	"redis": {
		"CPUUtilization", "EngineCPUUtilization", "CurrConnections", "NewConnections",
		"Evictions", "Reclaimed", "CacheHits", "CacheMisses", "BytesUsedForCache",
		"CurrItems", "ReplicationLag", "FreeableMemory", "NetworkBytesIn", "NetworkBytesOut",
	},
	"memcached": {
		"CPUUtilization", "CurrConnections", "NewConnections", "Evictions", "Reclaimed",
		"GetHits", "GetMisses", "BytesUsedForCacheItems", "CurrItems", "FreeableMemory",
		"NetworkBytesIn", "NetworkBytesOut",
	},
}

var (
	awsConfig      aws_session.Config
	metricFlags    metrics.Flags
	cacheClusterID string
	period         int64
	statistic      string
)

type elasticacheClient interface {
	DescribeCacheClustersPages(*elasticache.DescribeCacheClustersInput, func(*elasticache.DescribeCacheClustersOutput, bool) bool) error
}

func cacheClusters(client elasticacheClient, id string) ([]*elasticache.CacheCluster, error) {
	input := &elasticache.DescribeCacheClustersInput{ShowCacheNodeInfo: aws.Bool(true)}
	if id != "" {
		input.CacheClusterId = aws.String(id)
	}
	var clusters []*elasticache.CacheCluster
	err := client.DescribeCacheClustersPages(input, func(page *elasticache.DescribeCacheClustersOutput, lastPage bool) bool {
		clusters = append(clusters, page.CacheClusters...)
		return true
	})
	return clusters, errors.Wrap(err, "describe cache clusters")
}

func collect(client elasticacheClient, cw cloudwatchiface.CloudWatchAPI, id string, cfg cloudwatch_common.Config, emitter *metrics.Emitter) error {
	clusters, err := cacheClusters(client, id)
	if err != nil {
		return err
	}

	for _, cluster := range clusters {
		clusterID := aws.StringValue(cluster.CacheClusterId)
		names, ok := engineMetrics[aws.StringValue(cluster.Engine)]
		if !ok {
			continue
		}
		for _, node := range cluster.CacheNodes {
			nodeID := aws.StringValue(node.CacheNodeId)
			cfg.Dimensions = []*cloudwatch.Dimension{
				{Name: aws.String("CacheClusterId"), Value: aws.String(clusterID)},
				{Name: aws.String("CacheNodeId"), Value: aws.String(nodeID)},
			}
			for _, name := range names {
				dp, ok, err := cloudwatch_common.LatestValue(cw, cloudwatch_common.MetricsRequest(cfg, name))
				if err != nil {
					return err
				}
				if ok {
					emitter.Add(dp.Value, dp.Timestamp, clusterID, nodeID, strings.ToLower(name), strings.ToLower(cfg.Statistic))
				}
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
	stat, err := cloudwatch_common.NormalizeStatistic(statistic)
	if err != nil {
		return err
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	cfg := cloudwatch_common.Config{Namespace: "AWS/ElastiCache", Period: period, Statistic: stat}
	metricFlags.Collect(func(e *metrics.Emitter) error {
		return collect(elasticache.New(sess), cloudwatch.New(sess), cacheClusterID, cfg, e)
	})
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics-elasticache",
		Short: "Collects ElastiCache node metrics",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	metricFlags.Register(cmd, "sensu.aws.elasticache")
	cmd.Flags().StringVarP(&cacheClusterID, "cache-cluster-id", "c", "", "Cache cluster id, all clusters when empty")
	cmd.Flags().Int64VarP(&period, "period", "p", 60, "CloudWatch metric statistics period in seconds")
	cmd.Flags().StringVar(&statistic, "statistic", cloudwatch.StatisticAverage, "CloudWatch statistic")

	return cmd
}
