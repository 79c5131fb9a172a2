package main

/*
#
# check-eip-allocation
#
# DESCRIPTION:
#   Counts Elastic IPs that are allocated but not associated with an
#   instance or network interface.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-eip-allocation -w 1 -c 3
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig aws_session.Config
	warning   int
	critical  int
)

type ec2Client interface {
	DescribeAddresses(*ec2.DescribeAddressesInput) (*ec2.DescribeAddressesOutput, error)
}

func checkAllocation(client ec2Client, warning, critical int) (int, error) {
	output, err := client.DescribeAddresses(&ec2.DescribeAddressesInput{})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe addresses")
	}

	var unassociated []string
	for _, address := range output.Addresses {
		if aws.StringValue(address.AssociationId) == "" && aws.StringValue(address.InstanceId) == "" {
			unassociated = append(unassociated, aws.StringValue(address.PublicIp))
		}
	}

	count := len(unassociated)
	message := fmt.Sprintf("%d of %d Elastic IPs are not associated", count, len(output.Addresses))
	if count > 0 {
		message += ": " + strings.Join(unassociated, ", ")
	}
	return utils.Status(utils.Above(float64(count), float64(warning), float64(critical)), "%s", message), nil
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
	utils.Exit(checkAllocation(ec2.New(sess), warning, critical))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-eip-allocation",
		Short: "Checks for allocated but unassociated Elastic IPs",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().IntVarP(&warning, "warning", "w", 1, "Warn when this many Elastic IPs are unassociated")
	cmd.Flags().IntVarP(&critical, "critical", "c", 3, "Critical when this many Elastic IPs are unassociated")

	return cmd
}
