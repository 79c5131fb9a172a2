package main

/*
#
# check-subnet-ip-consumption
#
# DESCRIPTION:
#   Checks the percentage of used IP addresses in VPC subnets.
#   AWS reserves five addresses per subnet, they do not count as usable.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-subnet-ip-consumption -w 75 -c 90
#   ./check-subnet-ip-consumption --filter vpc-id=vpc-1234
#
*/

import (
	"fmt"
	"math"
	"net"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/filter"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

const reservedAddresses = 5

var (
	awsConfig   aws_session.Config
	filterFlags filter.Flags
	warning     float64
	critical    float64
)

type ec2Client interface {
	DescribeSubnetsPages(*ec2.DescribeSubnetsInput, func(*ec2.DescribeSubnetsOutput, bool) bool) error
}

func usableAddresses(cidr string) (float64, error) {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return 0, errors.Wrapf(err, "parse subnet cidr %s", cidr)
	}
	ones, bits := network.Mask.Size()
	return math.Pow(2, float64(bits-ones)) - reservedAddresses, nil
}

func checkSubnets(client ec2Client, filters []*ec2.Filter, warning, critical float64) (int, error) {
	var subnets []*ec2.Subnet
	err := client.DescribeSubnetsPages(&ec2.DescribeSubnetsInput{Filters: filters}, func(page *ec2.DescribeSubnetsOutput, lastPage bool) bool {
		subnets = append(subnets, page.Subnets...)
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe subnets")
	}

	status := sensu.CheckStateOK
	var full []string
	for _, subnet := range subnets {
		usable, err := usableAddresses(aws.StringValue(subnet.CidrBlock))
		if err != nil {
			return sensu.CheckStateUnknown, err
		}
		if usable <= 0 {
			continue
		}
		used := (usable - float64(aws.Int64Value(subnet.AvailableIpAddressCount))) / usable * 100
		subnetStatus := utils.Above(used, warning, critical)
		if subnetStatus == sensu.CheckStateOK {
			continue
		}
		status = utils.Worst(status, subnetStatus)
		full = append(full, fmt.Sprintf("%s (%s) %.1f%% used", aws.StringValue(subnet.SubnetId), aws.StringValue(subnet.CidrBlock), used))
	}

	if status == sensu.CheckStateOK {
		return utils.Ok("%d subnets below %.0f%% IP consumption", len(subnets), warning), nil
	}
	return utils.Status(status, "%s", strings.Join(full, ", ")), nil
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
	utils.Exit(checkSubnets(ec2.New(sess), filters, warning, critical))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-subnet-ip-consumption",
		Short: "Checks the IP address consumption of VPC subnets",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	filterFlags.Register(cmd, "")
	cmd.Flags().Float64VarP(&warning, "warning", "w", 75, "Warn when a subnet uses this percentage of its addresses")
	cmd.Flags().Float64VarP(&critical, "critical", "c", 90, "Critical when a subnet uses this percentage of its addresses")

	return cmd
}
