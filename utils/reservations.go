package utils

import (
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/pkg/errors"
)

func GetReservations(ec2Client ec2iface.EC2API, filters []*ec2.Filter) ([]*ec2.Reservation, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: filters,
	}

	var reservations []*ec2.Reservation
	err := ec2Client.DescribeInstancesPages(input, func(page *ec2.DescribeInstancesOutput, lastPage bool) bool {
		reservations = append(reservations, page.Reservations...)
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "describe instances")
	}

	return reservations, nil
}

// GetInstances flattens the reservations matching filters.
func GetInstances(ec2Client ec2iface.EC2API, filters []*ec2.Filter) ([]*ec2.Instance, error) {
	reservations, err := GetReservations(ec2Client, filters)
	if err != nil {
		return nil, err
	}
	var instances []*ec2.Instance
	for _, reservation := range reservations {
		instances = append(instances, reservation.Instances...)
	}
	return instances, nil
}
