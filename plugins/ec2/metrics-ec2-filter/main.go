package main

/*
#
# metrics-ec2-filter
#
# DESCRIPTION:
#   Emits the number of EC2 instances matching a filter as a graphite metric.
#
# OUTPUT:
#   metric-data
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./metrics-ec2-filter --filter-name=web --filter tag:Role=web --filter instance-state-name=running
#
*/

import (
	"fmt"

	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/filter"
	"github.com/sensu/sensu-aws-plugins/metrics"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/spf13/cobra"
)

var (
	awsConfig   aws_session.Config
	filterFlags filter.Flags
	metricFlags metrics.Flags
	filterName  string
)

func collect(client ec2iface.EC2API, filters []*ec2.Filter, emitter *metrics.Emitter, name string) error {
	instances, err := utils.GetInstances(client, filters)
	if err != nil {
		return err
	}
	emitter.Add(float64(len(instances)), emitter.Now(), name, "count")
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
	filters, err := filterFlags.EC2()
	if err != nil {
		return err
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}

	metricFlags.Collect(func(e *metrics.Emitter) error {
		return collect(ec2.New(sess), filters, e, filterName)
	})
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics-ec2-filter",
		Short: "Emits the number of EC2 instances matching a filter",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	metricFlags.Register(cmd, "sensu.aws.ec2")
	filterFlags.Register(cmd, "")
	cmd.Flags().StringVarP(&filterName, "filter-name", "f", "filter", "Name of the filter, used in the metric path")

	return cmd
}
