package main

/*
#
# check-elb-instances-inservice
#
# DESCRIPTION:
#   Checks that the instances behind classic load balancers are InService.
#   A load balancer with no healthy instance is critical, one with some
#   unhealthy instances is a warning.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   all load balancers
#   ./check-elb-instances-inservice -r us-east-1
#
#   one load balancer
#   ./check-elb-instances-inservice --elb-name my-elb
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
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
)

type elbClient interface {
	DescribeLoadBalancersPages(*elb.DescribeLoadBalancersInput, func(*elb.DescribeLoadBalancersOutput, bool) bool) error
	DescribeInstanceHealth(*elb.DescribeInstanceHealthInput) (*elb.DescribeInstanceHealthOutput, error)
}

func checkInService(client elbClient, name string) (int, error) {
	input := &elb.DescribeLoadBalancersInput{}
	if name != "" {
		input.LoadBalancerNames = aws.StringSlice([]string{name})
	}
	var names []string
	err := client.DescribeLoadBalancersPages(input, func(page *elb.DescribeLoadBalancersOutput, lastPage bool) bool {
		for _, lb := range page.LoadBalancerDescriptions {
			names = append(names, aws.StringValue(lb.LoadBalancerName))
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe load balancers")
	}

	status := sensu.CheckStateOK
	var problems []string
	for _, lb := range names {
		out, err := client.DescribeInstanceHealth(&elb.DescribeInstanceHealthInput{LoadBalancerName: aws.String(lb)})
		if err != nil {
			return sensu.CheckStateUnknown, errors.Wrapf(err, "describe instance health of %s", lb)
		}
		var unhealthy []string
		for _, state := range out.InstanceStates {
			if aws.StringValue(state.State) != "InService" {
				unhealthy = append(unhealthy, fmt.Sprintf("%s::%s", aws.StringValue(state.InstanceId), aws.StringValue(state.State)))
			}
		}
		switch {
		case len(unhealthy) == 0:
			continue
		case len(unhealthy) == len(out.InstanceStates):
			status = utils.Worst(status, sensu.CheckStateCritical)
			problems = append(problems, fmt.Sprintf("%s has no InService instances", lb))
		default:
			status = utils.Worst(status, sensu.CheckStateWarning)
			problems = append(problems, fmt.Sprintf("%s unhealthy instances: %s", lb, strings.Join(unhealthy, ", ")))
		}
	}

	if status == sensu.CheckStateOK {
		return utils.Ok("all instances of %d load balancer(s) are InService", len(names)), nil
	}
	return utils.Status(status, "%s", strings.Join(problems, "; ")), nil
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
	utils.Exit(checkInService(elb.New(sess), elbName))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-elb-instances-inservice",
		Short: "Checks that load balancer instances are InService",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&elbName, "elb-name", "n", "", "Load balancer to check, all load balancers when empty")

	return cmd
}
