package main

/*
#
# check-elb-nodes
#
# DESCRIPTION:
#   Checks that a classic load balancer has a minimum number or percentage of
#   InService nodes.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   Warning if the load balancer has 3 or fewer healthy nodes and critical if 2 or fewer
#   ./check-elb-nodes --warning 3 --critical 2 --load-balancer my-elb
#
#   Warning if the load balancer has 50% or less healthy nodes and critical if 25% or less
#   ./check-elb-nodes --warning-percentage 50 --critical-percentage 25 --load-balancer my-elb
#
*/

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/elb"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig aws_session.Config
	elbName   string
	limits    nodeLimits
)

type elbClient interface {
	DescribeInstanceHealth(*elb.DescribeInstanceHealthInput) (*elb.DescribeInstanceHealthOutput, error)
}

// nodeLimits holds the thresholds; negative values are disabled.
type nodeLimits struct {
	Warning            int
	Critical           int
	WarningPercentage  float64
	CriticalPercentage float64
}

func (l nodeLimits) validate() error {
	if l.Warning < 0 && l.Critical < 0 && l.WarningPercentage < 0 && l.CriticalPercentage < 0 {
		return errors.New("set --warning/--critical and/or --warning-percentage/--critical-percentage")
	}
	return nil
}

func checkNodes(client elbClient, name string, limits nodeLimits) (int, error) {
	out, err := client.DescribeInstanceHealth(&elb.DescribeInstanceHealthInput{LoadBalancerName: aws.String(name)})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == elb.ErrCodeAccessPointNotFoundException {
			return utils.Critical("load balancer %s not found", name), nil
		}
		return sensu.CheckStateUnknown, errors.Wrapf(err, "describe instance health of %s", name)
	}
	if len(out.InstanceStates) == 0 {
		return utils.Critical("load balancer %s has no nodes", name), nil
	}

	counts := map[string]int{}
	for _, state := range out.InstanceStates {
		counts[aws.StringValue(state.State)]++
	}
	states := make([]string, 0, len(counts))
	for state, count := range counts {
		states = append(states, fmt.Sprintf("%s=%d", state, count))
	}
	sort.Strings(states)
	summary := strings.Join(states, ", ")

	healthy := counts["InService"]
	percentage := float64(healthy) / float64(len(out.InstanceStates)) * 100

	switch {
	case limits.Critical >= 0 && healthy <= limits.Critical:
		return utils.Critical("%s: %d InService nodes (%s)", name, healthy, summary), nil
	case limits.CriticalPercentage >= 0 && percentage <= limits.CriticalPercentage:
		return utils.Critical("%s: %.0f%% InService nodes (%s)", name, percentage, summary), nil
	case limits.Warning >= 0 && healthy <= limits.Warning:
		return utils.Warning("%s: %d InService nodes (%s)", name, healthy, summary), nil
	case limits.WarningPercentage >= 0 && percentage <= limits.WarningPercentage:
		return utils.Warning("%s: %.0f%% InService nodes (%s)", name, percentage, summary), nil
	}
	return utils.Ok("%s: %s", name, summary), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if err := limits.validate(); err != nil {
		return err
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkNodes(elb.New(sess), elbName, limits))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-elb-nodes",
		Short: "Checks the number of InService nodes of a load balancer",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&elbName, "load-balancer", "l", "", "The name of the load balancer")
	cmd.Flags().IntVarP(&limits.Warning, "warning", "w", -1, "Warn when this many or fewer nodes are InService")
	cmd.Flags().IntVarP(&limits.Critical, "critical", "c", -1, "Critical when this many or fewer nodes are InService")
	cmd.Flags().Float64Var(&limits.WarningPercentage, "warning-percentage", -1, "Warn when the percentage of InService nodes is at or below this number")
	cmd.Flags().Float64Var(&limits.CriticalPercentage, "critical-percentage", -1, "Critical when the percentage of InService nodes is at or below this number")

	_ = cmd.MarkFlagRequired("load-balancer")
	return cmd
}
