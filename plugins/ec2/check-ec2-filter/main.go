package main

/*
#
# check-ec2-filter
#
# DESCRIPTION:
#   This plugin retrieves EC2 instances matching a given filter and
#   returns the number matched. Warning and Critical thresholds may be set as needed.
#   Thresholds may be compared to the count using [equal, not, greater, less] operators.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-ec2-filter --filters='{"filters":[{"name":"instance-state-name","values":["running"]}]}'
#   ./check-ec2-filter --filter tag:Role=web --exclude-tags='{"Env":"dev"}' --operator=less --critical=2
#   ./check-ec2-filter --filter-string='{name:tag-value,values:[infrastructure]}'
#
*/

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/filter"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/models"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	awsConfig   aws_session.Config
	filterFlags filter.Flags
	options     checkOptions
	excludeTags string
)

type checkOptions struct {
	Critical       int
	Warning        int
	Compare        string
	Detailed       bool
	MinRunningSecs float64
	ExcludeTags    models.ExcludeTags
	Now            func() time.Time
}

func selectInstances(client ec2iface.EC2API, filters []*ec2.Filter, opts checkOptions) ([]models.AwsInstance, error) {
	instances, err := utils.GetInstances(client, filters)
	if err != nil {
		return nil, err
	}
	var selected []models.AwsInstance
	for _, instance := range instances {
		awsInstance := models.NewAwsInstance(instance)
		if opts.ExcludeTags.Matches(awsInstance) {
			logger.Get().Debug("instance excluded by tag", zap.String("instance", awsInstance.Id))
			continue
		}
		if opts.MinRunningSecs > 0 && opts.Now().Sub(awsInstance.LaunchTime).Seconds() < opts.MinRunningSecs {
			logger.Get().Debug("instance too young", zap.String("instance", awsInstance.Id))
			continue
		}
		selected = append(selected, awsInstance)
	}
	return selected, nil
}

func checkFilter(client ec2iface.EC2API, filters []*ec2.Filter, opts checkOptions) (int, error) {
	instances, err := selectInstances(client, filters, opts)
	if err != nil {
		return sensu.CheckStateUnknown, err
	}

	count := len(instances)
	message := fmt.Sprintf("Current count: %d", count)
	if opts.Detailed && count > 0 {
		ids := make([]string, 0, count)
		for _, instance := range instances {
			ids = append(ids, instance.Id)
		}
		message += " (" + strings.Join(ids, ", ") + ")"
	}

	if cloudwatch_common.Compare(float64(count), float64(opts.Critical), opts.Compare) {
		return utils.Critical("%s, comparison=%s threshold=%d", message, opts.Compare, opts.Critical), nil
	}
	if cloudwatch_common.Compare(float64(count), float64(opts.Warning), opts.Compare) {
		return utils.Warning("%s, comparison=%s threshold=%d", message, opts.Compare, opts.Warning), nil
	}
	return utils.Ok("%s", message), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if err := cloudwatch_common.ValidateCompare(options.Compare); err != nil {
		return err
	}
	filters, err := filterFlags.EC2()
	if err != nil {
		return err
	}
	if options.ExcludeTags, err = filter.ParseExcludeTags(excludeTags); err != nil {
		return err
	}
	options.Now = time.Now

	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkFilter(ec2.New(sess), filters, options))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-ec2-filter",
		Short: "Counts EC2 instances matching a filter and checks the count against thresholds",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	filterFlags.Register(cmd, "")
	cmd.Flags().IntVarP(&options.Critical, "critical", "c", 1, "Critical threshold for filter")
	cmd.Flags().IntVarP(&options.Warning, "warning", "w", 2, "Warning threshold for filter")
	cmd.Flags().StringVarP(&excludeTags, "exclude-tags", "e", "", `JSON tags to exclude, e.g. {"Env":"dev"}`)
	cmd.Flags().StringVarP(&options.Compare, "operator", "o", cloudwatch_common.CompareEqual, "Comparison operator for threshold: equal, not, greater, less")
	cmd.Flags().BoolVarP(&options.Detailed, "detailed-message", "d", false, "List the matching instance ids")
	cmd.Flags().Float64VarP(&options.MinRunningSecs, "min-running-secs", "m", 0, "Ignore instances launched less than this many seconds ago")

	return cmd
}
