package main

/*
#
# metrics-ec2-count
#
# DESCRIPTION:
#   Counts EC2 instances by state or by instance type.
#
# OUTPUT:
#   metric-data
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./metrics-ec2-count --metric-type=status
#   ./metrics-ec2-count --metric-type=instance --scheme=mycorp.aws.ec2
#
*/

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/metrics"
	"github.com/sensu/sensu-aws-plugins/models"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/spf13/cobra"
)

const (
	byStatus   = "status"
	byInstance = "instance"
)

var (
	awsConfig   aws_session.Config
	metricFlags metrics.Flags
	metricType  string
)

func collect(client ec2iface.EC2API, metricType string, emitter *metrics.Emitter) error {
	instances, err := utils.GetInstances(client, nil)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, instance := range instances {
		awsInstance := models.NewAwsInstance(instance)
		if metricType == byStatus {
			counts[awsInstance.State]++
		} else {
			counts[awsInstance.Type]++
		}
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	now := emitter.Now()
	for _, key := range keys {
		emitter.Add(float64(counts[key]), now, "count", metricType, key)
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
	if metricType != byStatus && metricType != byInstance {
		return fmt.Errorf("--metric-type must be %s or %s", byStatus, byInstance)
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}

	metricFlags.Collect(func(e *metrics.Emitter) error {
		return collect(ec2.New(sess), metricType, e)
	})
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics-ec2-count",
		Short: "Counts EC2 instances by state or instance type",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	metricFlags.Register(cmd, "sensu.aws.ec2")
	cmd.Flags().StringVarP(&metricType, "metric-type", "t", byInstance, "Count by type: status, instance")

	return cmd
}
