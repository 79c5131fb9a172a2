package main

/*
#
# check-vpc-vpn
#
# DESCRIPTION:
#   Checks the tunnels of a site-to-site VPN connection. One tunnel down is a
#   warning, all tunnels down is critical.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-vpc-vpn --vpn-id=vpn-abc1234
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
	vpnID     string
)

type ec2Client interface {
	DescribeVpnConnections(*ec2.DescribeVpnConnectionsInput) (*ec2.DescribeVpnConnectionsOutput, error)
}

func checkVPN(client ec2Client, id string) (int, error) {
	output, err := client.DescribeVpnConnections(&ec2.DescribeVpnConnectionsInput{
		VpnConnectionIds: aws.StringSlice([]string{id}),
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrapf(err, "describe vpn connection %s", id)
	}
	if len(output.VpnConnections) == 0 {
		return utils.Unknown("vpn connection %s not found", id), nil
	}

	connection := output.VpnConnections[0]
	var down []string
	for _, tunnel := range connection.VgwTelemetry {
		if aws.StringValue(tunnel.Status) != ec2.TelemetryStatusUp {
			down = append(down, fmt.Sprintf("%s (%s)", aws.StringValue(tunnel.OutsideIpAddress), aws.StringValue(tunnel.StatusMessage)))
		}
	}

	total := len(connection.VgwTelemetry)
	switch {
	case total == 0 || len(down) == total:
		return utils.Critical("all tunnels of %s are down: %s", id, strings.Join(down, ", ")), nil
	case len(down) > 0:
		return utils.Warning("%d of %d tunnels of %s are down: %s", len(down), total, id, strings.Join(down, ", ")), nil
	}
	return utils.Ok("all %d tunnels of %s are up", total, id), nil
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
	utils.Exit(checkVPN(ec2.New(sess), vpnID))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-vpc-vpn",
		Short: "Checks the tunnels of a VPN connection",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&vpnID, "vpn-id", "v", "", "VPN connection id")

	_ = cmd.MarkFlagRequired("vpn-id")
	return cmd
}
