package main

/*
#
# check-direct-connect-virtual-interfaces
#
# DESCRIPTION:
#   Checks the state of Direct Connect virtual interfaces and their BGP
#   peers. Down interfaces or peers are critical, interfaces still being
#   provisioned are warnings. Deleted and rejected interfaces are ignored.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-direct-connect-virtual-interfaces
#   ./check-direct-connect-virtual-interfaces --virtual-interface-ids dxvif-ffabc123
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/directconnect"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var ignoredStates = map[string]bool{
	directconnect.VirtualInterfaceStateDeleting: true,
	directconnect.VirtualInterfaceStateDeleted:  true,
	directconnect.VirtualInterfaceStateRejected: true,
}

var (
	awsConfig           aws_session.Config
	virtualInterfaceIDs string
)

type directConnectClient interface {
	DescribeVirtualInterfaces(*directconnect.DescribeVirtualInterfacesInput) (*directconnect.DescribeVirtualInterfacesOutput, error)
}

func interfaceStatus(vif *directconnect.VirtualInterface) (int, string) {
	state := aws.StringValue(vif.VirtualInterfaceState)
	switch state {
	case directconnect.VirtualInterfaceStateAvailable:
	case directconnect.VirtualInterfaceStateDown, directconnect.VirtualInterfaceStateUnknown:
		return sensu.CheckStateCritical, state
	default:
		return sensu.CheckStateWarning, state
	}
	for _, peer := range vif.BgpPeers {
		if aws.StringValue(peer.BgpStatus) == directconnect.BGPStatusDown {
			return sensu.CheckStateCritical, "bgp peer " + aws.StringValue(peer.BgpPeerId) + " down"
		}
	}
	return sensu.CheckStateOK, state
}

func checkVirtualInterfaces(client directConnectClient, ids []string) (int, error) {
	var vifs []*directconnect.VirtualInterface
	if len(ids) == 0 {
		out, err := client.DescribeVirtualInterfaces(&directconnect.DescribeVirtualInterfacesInput{})
		if err != nil {
			return sensu.CheckStateUnknown, errors.Wrap(err, "describe virtual interfaces")
		}
		vifs = out.VirtualInterfaces
	}
	for _, id := range ids {
		out, err := client.DescribeVirtualInterfaces(&directconnect.DescribeVirtualInterfacesInput{VirtualInterfaceId: aws.String(id)})
		if err != nil {
			return sensu.CheckStateUnknown, errors.Wrapf(err, "describe virtual interface %s", id)
		}
		if len(out.VirtualInterfaces) == 0 {
			return utils.Critical("virtual interface %s not found", id), nil
		}
		vifs = append(vifs, out.VirtualInterfaces...)
	}

	status := sensu.CheckStateOK
	checked := 0
	var problems []string
	for _, vif := range vifs {
		if ignoredStates[aws.StringValue(vif.VirtualInterfaceState)] {
			continue
		}
		checked++
		vifStatus, detail := interfaceStatus(vif)
		if vifStatus != sensu.CheckStateOK {
			status = utils.Worst(status, vifStatus)
			problems = append(problems, fmt.Sprintf("%s (%s): %s",
				aws.StringValue(vif.VirtualInterfaceName), aws.StringValue(vif.VirtualInterfaceId), detail))
		}
	}

	if status != sensu.CheckStateOK {
		return utils.Status(status, "%s", strings.Join(problems, ", ")), nil
	}
	return utils.Ok("%d virtual interface(s) available", checked), nil
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
	utils.Exit(checkVirtualInterfaces(directconnect.New(sess), utils.SplitList(virtualInterfaceIDs)))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-direct-connect-virtual-interfaces",
		Short: "Checks Direct Connect virtual interfaces and BGP peers",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&virtualInterfaceIDs, "virtual-interface-ids", "i", "", "Comma separated virtual interface ids, all interfaces when empty")

	return cmd
}
