package models

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
)

// AwsInstance is the subset of an ec2 instance the filter checks look at.
type AwsInstance struct {
	Id         string
	State      string
	Type       string
	LaunchTime time.Time
	Tags       []*ec2.Tag
}

func NewAwsInstance(instance *ec2.Instance) AwsInstance {
	awsInstance := AwsInstance{
		Id:         aws.StringValue(instance.InstanceId),
		Type:       aws.StringValue(instance.InstanceType),
		LaunchTime: aws.TimeValue(instance.LaunchTime),
		Tags:       instance.Tags,
	}
	if instance.State != nil {
		awsInstance.State = aws.StringValue(instance.State.Name)
	}
	return awsInstance
}

// Tag returns the value of the named tag.
func (i AwsInstance) Tag(key string) (string, bool) {
	for _, tag := range i.Tags {
		if aws.StringValue(tag.Key) == key {
			return aws.StringValue(tag.Value), true
		}
	}
	return "", false
}
