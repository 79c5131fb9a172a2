package main

/*
#
# check-eni-status
#
# DESCRIPTION:
#   Checks that elastic network interfaces are in the expected status.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-eni-status --eni-ids=eni-1234,eni-5678
#   ./check-eni-status --status=available --filter vpc-id=vpc-1234
#
*/

import (
	"fmt"
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

var (
	awsConfig      aws_session.Config
	filterFlags    filter.Flags
	eniIDs         string
	expectedStatus string
)

type ec2Client interface {
	DescribeNetworkInterfacesPages(*ec2.DescribeNetworkInterfacesInput, func(*ec2.DescribeNetworkInterfacesOutput, bool) bool) error
}

func checkENIs(client ec2Client, ids []string, filters []*ec2.Filter, expected string) (int, error) {
	input := &ec2.DescribeNetworkInterfacesInput{Filters: filters}
	if len(ids) > 0 {
		input.NetworkInterfaceIds = aws.StringSlice(ids)
	}

	var total int
	var wrong []string
	err := client.DescribeNetworkInterfacesPages(input, func(page *ec2.DescribeNetworkInterfacesOutput, lastPage bool) bool {
		for _, eni := range page.NetworkInterfaces {
			total++
			if status := aws.StringValue(eni.Status); status != expected {
				wrong = append(wrong, fmt.Sprintf("%s is %s", aws.StringValue(eni.NetworkInterfaceId), status))
			}
		}
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe network interfaces")
	}

	if len(wrong) > 0 {
		return utils.Critical("%s", strings.Join(wrong, ", ")), nil
	}
	return utils.Ok("%d network interfaces are %s", total, expected), nil
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
	utils.Exit(checkENIs(ec2.New(sess), utils.SplitList(eniIDs), filters, expectedStatus))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-eni-status",
		Short: "Checks the status of elastic network interfaces",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	filterFlags.Register(cmd, "")
	cmd.Flags().StringVarP(&eniIDs, "eni-ids", "e", "", "Comma separated network interface ids")
	cmd.Flags().StringVarP(&expectedStatus, "status", "s", ec2.NetworkInterfaceStatusInUse, "Expected status: available, attaching, in-use, detaching")

	return cmd
}
