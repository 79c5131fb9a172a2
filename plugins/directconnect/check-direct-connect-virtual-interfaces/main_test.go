package main

import (
	"bytes"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/directconnect"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockDirectConnect struct {
	mock.Mock
}

func (m *mockDirectConnect) DescribeVirtualInterfaces(input *directconnect.DescribeVirtualInterfacesInput) (*directconnect.DescribeVirtualInterfacesOutput, error) {
	args := m.Called(aws.StringValue(input.VirtualInterfaceId))
	out, _ := args.Get(0).(*directconnect.DescribeVirtualInterfacesOutput)
	return out, args.Error(1)
}

func vif(id, name, state string, bgp ...string) *directconnect.VirtualInterface {
	v := &directconnect.VirtualInterface{
		VirtualInterfaceId:    aws.String(id),
		VirtualInterfaceName:  aws.String(name),
		VirtualInterfaceState: aws.String(state),
	}
	for i, status := range bgp {
		v.BgpPeers = append(v.BgpPeers, &directconnect.BGPPeer{
			BgpPeerId: aws.String(id + "-peer" + string(rune('1'+i))),
			BgpStatus: aws.String(status),
		})
	}
	return v
}

func TestCheckVirtualInterfaces(t *testing.T) {
	client := new(mockDirectConnect)
	client.On("DescribeVirtualInterfaces", "").Return(&directconnect.DescribeVirtualInterfacesOutput{VirtualInterfaces: []*directconnect.VirtualInterface{
		vif("dxvif-1", "prod", "available", "up", "down"),
		vif("dxvif-2", "staging", "pending"),
		vif("dxvif-3", "old", "deleted"),
	}}, nil)
	client.On("DescribeVirtualInterfaces", "dxvif-4").Return(&directconnect.DescribeVirtualInterfacesOutput{VirtualInterfaces: []*directconnect.VirtualInterface{
		vif("dxvif-4", "backup", "available", "up"),
	}}, nil)
	client.On("DescribeVirtualInterfaces", "dxvif-9").Return(&directconnect.DescribeVirtualInterfacesOutput{}, nil)

	tests := []struct {
		name    string
		ids     []string
		status  int
		message string
	}{
		{"all", nil, sensu.CheckStateCritical, "CRITICAL: prod (dxvif-1): bgp peer dxvif-1-peer2 down, staging (dxvif-2): pending\n"},
		{"selected", []string{"dxvif-4"}, sensu.CheckStateOK, "OK: 1 virtual interface(s) available\n"},
		{"missing", []string{"dxvif-9"}, sensu.CheckStateCritical, "CRITICAL: virtual interface dxvif-9 not found\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			utils.Output = &buf
			status, err := checkVirtualInterfaces(client, test.ids)
			assert.NoError(t, err)
			assert.Equal(t, test.status, status)
			assert.Equal(t, test.message, buf.String())
		})
	}
}
