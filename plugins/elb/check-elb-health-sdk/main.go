package main

/*
# check-elb-health-sdk
#
# DESCRIPTION:
#   Checks the health of the instances behind classic Elastic Load Balancers.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-elb-health-sdk -r us-east-1
#   ./check-elb-health-sdk --elb-name my-elb --instances i-1,i-2
#   ./check-elb-health-sdk --elb-name my-elb --instance-tag Name --warn-only
#
*/

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/elb"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const inService = "InService"

var (
	awsConfig   aws_session.Config
	elbName     string
	instances   string
	instanceTag string
	warnOnly    bool
	verbose     bool
)

type elbClient interface {
	DescribeLoadBalancersPages(*elb.DescribeLoadBalancersInput, func(*elb.DescribeLoadBalancersOutput, bool) bool) error
	DescribeInstanceHealth(*elb.DescribeInstanceHealthInput) (*elb.DescribeInstanceHealthOutput, error)
}

type ec2Client interface {
	DescribeTags(*ec2.DescribeTagsInput) (*ec2.DescribeTagsOutput, error)
}

type healthOptions struct {
	ElbName     string
	Instances   []string
	InstanceTag string
	WarnOnly    bool
	Verbose     bool
}

func loadBalancerNames(client elbClient, name string) ([]string, error) {
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
		return nil, errors.Wrap(err, "describe load balancers")
	}
	return names, nil
}

func tagValue(client ec2Client, instanceID, key string) (string, error) {
	out, err := client.DescribeTags(&ec2.DescribeTagsInput{Filters: []*ec2.Filter{
		{Name: aws.String("resource-id"), Values: aws.StringSlice([]string{instanceID})},
		{Name: aws.String("key"), Values: aws.StringSlice([]string{key})},
	}})
	if err != nil {
		return "", errors.Wrapf(err, "describe tags of %s", instanceID)
	}
	for _, tag := range out.Tags {
		if aws.StringValue(tag.Key) == key {
			return aws.StringValue(tag.Value), nil
		}
	}
	return "", nil
}

func unhealthyInstances(elbClient elbClient, ec2Client ec2Client, loadBalancer string, opts healthOptions) ([]string, error) {
	input := &elb.DescribeInstanceHealthInput{LoadBalancerName: aws.String(loadBalancer)}
	for _, id := range opts.Instances {
		input.Instances = append(input.Instances, &elb.Instance{InstanceId: aws.String(id)})
	}
	out, err := elbClient.DescribeInstanceHealth(input)
	if err != nil {
		return nil, errors.Wrapf(err, "describe instance health of %s", loadBalancer)
	}

	var unhealthy []string
	for _, state := range out.InstanceStates {
		if aws.StringValue(state.State) == inService {
			continue
		}
		id := aws.StringValue(state.InstanceId)
		if opts.InstanceTag != "" {
			value, err := tagValue(ec2Client, id, opts.InstanceTag)
			if err != nil {
				return nil, err
			}
			if value != "" {
				id = value + "::" + id
			}
		}
		unhealthy = append(unhealthy, fmt.Sprintf("%s::%s", id, aws.StringValue(state.State)))
	}
	return unhealthy, nil
}

func checkHealth(elbClient elbClient, ec2Client ec2Client, opts healthOptions) (int, error) {
	names, err := loadBalancerNames(elbClient, opts.ElbName)
	if err != nil {
		return sensu.CheckStateUnknown, err
	}
	if len(names) == 0 {
		return utils.Ok("no load balancers found"), nil
	}

	failures := map[string][]string{}
	var failed []string
	for _, name := range names {
		unhealthy, err := unhealthyInstances(elbClient, ec2Client, name, opts)
		if err != nil {
			return sensu.CheckStateUnknown, err
		}
		logger.Get().Debug("instance health", zap.String("elb", name), zap.Strings("unhealthy", unhealthy))
		if len(unhealthy) > 0 {
			failures[name] = unhealthy
			failed = append(failed, name)
		}
	}

	if len(failed) == 0 {
		if opts.Verbose {
			return utils.Ok("all instances on ELBs %s are healthy", strings.Join(names, ", ")), nil
		}
		return utils.Ok("all instances on all ELBs are healthy"), nil
	}

	sort.Strings(failed)
	parts := make([]string, 0, len(failed))
	for _, name := range failed {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, strings.Join(failures[name], ", ")))
	}
	message := "unhealthy instances detected: " + strings.Join(parts, "; ")
	if opts.WarnOnly {
		return utils.Warning("%s", message), nil
	}
	return utils.Critical("%s", message), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if instances != "" && elbName == "" {
		return fmt.Errorf("--instances requires --elb-name")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkHealth(elb.New(sess), ec2.New(sess), healthOptions{
		ElbName:     elbName,
		Instances:   utils.SplitList(instances),
		InstanceTag: instanceTag,
		WarnOnly:    warnOnly,
		Verbose:     verbose,
	}))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-elb-health-sdk",
		Short: "Checks the health of instances behind classic load balancers",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&elbName, "elb-name", "n", "", "Load balancer to check, all load balancers when empty")
	cmd.Flags().StringVarP(&instances, "instances", "i", "", "Comma separated instance ids to check on --elb-name")
	cmd.Flags().StringVarP(&instanceTag, "instance-tag", "t", "", "Tag whose value is shown next to unhealthy instance ids")
	cmd.Flags().BoolVar(&warnOnly, "warn-only", false, "Warn instead of critical when unhealthy instances are found")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List the checked load balancers when all is healthy")

	return cmd
}
