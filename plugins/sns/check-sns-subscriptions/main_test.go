package main

import (
	"bytes"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const topic = "arn:aws:sns:us-east-1:123456789012:alerts"

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) ListSubscriptionsPages(input *sns.ListSubscriptionsInput, fn func(*sns.ListSubscriptionsOutput, bool) bool) error {
	args := m.Called(input)
	if page, ok := args.Get(0).(*sns.ListSubscriptionsOutput); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

func (m *mockSNS) ListSubscriptionsByTopicPages(input *sns.ListSubscriptionsByTopicInput, fn func(*sns.ListSubscriptionsByTopicOutput, bool) bool) error {
	args := m.Called(aws.StringValue(input.TopicArn))
	if page, ok := args.Get(0).(*sns.ListSubscriptionsByTopicOutput); ok && page != nil {
		fn(page, true)
	}
	return args.Error(1)
}

func TestCheckSubscriptions(t *testing.T) {
	confirmed := &sns.Subscription{
		TopicArn:        aws.String(topic),
		SubscriptionArn: aws.String(topic + ":1f2e"),
		Protocol:        aws.String("email"),
		Endpoint:        aws.String("ops@example.com"),
	}
	pending := &sns.Subscription{
		TopicArn:        aws.String(topic),
		SubscriptionArn: aws.String(pendingConfirmation),
		Protocol:        aws.String("https"),
		Endpoint:        aws.String("https://hooks.example.com"),
	}

	client := new(mockSNS)
	client.On("ListSubscriptionsPages", mock.Anything).Return(&sns.ListSubscriptionsOutput{Subscriptions: []*sns.Subscription{confirmed, pending}}, nil)
	client.On("ListSubscriptionsByTopicPages", topic).Return(&sns.ListSubscriptionsByTopicOutput{Subscriptions: []*sns.Subscription{confirmed}}, nil)

	var buf bytes.Buffer
	utils.Output = &buf
	status, err := checkSubscriptions(client, "")
	assert.NoError(t, err)
	assert.Equal(t, sensu.CheckStateCritical, status)
	assert.Equal(t, "CRITICAL: subscriptions pending confirmation: "+topic+" (https https://hooks.example.com)\n", buf.String())

	buf.Reset()
	status, err = checkSubscriptions(client, topic)
	assert.NoError(t, err)
	assert.Equal(t, sensu.CheckStateOK, status)
	assert.Equal(t, "OK: 1 subscription(s) confirmed\n", buf.String())
}
