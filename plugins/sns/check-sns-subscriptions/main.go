package main

/*
#
# check-sns-subscriptions
#
# DESCRIPTION:
#   Checks for SNS subscriptions still pending confirmation.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-sns-subscriptions
#   ./check-sns-subscriptions --topic-arn arn:aws:sns:us-east-1:123456789012:alerts
#
*/

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

const pendingConfirmation = "PendingConfirmation"

var (
	awsConfig aws_session.Config
	topicArn  string
)

type snsClient interface {
	ListSubscriptionsPages(*sns.ListSubscriptionsInput, func(*sns.ListSubscriptionsOutput, bool) bool) error
	ListSubscriptionsByTopicPages(*sns.ListSubscriptionsByTopicInput, func(*sns.ListSubscriptionsByTopicOutput, bool) bool) error
}

func subscriptions(client snsClient, topic string) ([]*sns.Subscription, error) {
	var subs []*sns.Subscription
	if topic != "" {
		err := client.ListSubscriptionsByTopicPages(&sns.ListSubscriptionsByTopicInput{TopicArn: aws.String(topic)}, func(page *sns.ListSubscriptionsByTopicOutput, lastPage bool) bool {
			subs = append(subs, page.Subscriptions...)
			return true
		})
		return subs, errors.Wrapf(err, "list subscriptions of %s", topic)
	}
	err := client.ListSubscriptionsPages(&sns.ListSubscriptionsInput{}, func(page *sns.ListSubscriptionsOutput, lastPage bool) bool {
		subs = append(subs, page.Subscriptions...)
		return true
	})
	return subs, errors.Wrap(err, "list subscriptions")
}

func checkSubscriptions(client snsClient, topic string) (int, error) {
	subs, err := subscriptions(client, topic)
	if err != nil {
		return sensu.CheckStateUnknown, err
	}

	var pending []string
	for _, sub := range subs {
		if aws.StringValue(sub.SubscriptionArn) == pendingConfirmation {
			pending = append(pending, fmt.Sprintf("%s (%s %s)",
				aws.StringValue(sub.TopicArn), aws.StringValue(sub.Protocol), aws.StringValue(sub.Endpoint)))
		}
	}
	if len(pending) > 0 {
		return utils.Critical("subscriptions pending confirmation: %s", strings.Join(pending, ", ")), nil
	}
	return utils.Ok("%d subscription(s) confirmed", len(subs)), nil
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
	utils.Exit(checkSubscriptions(sns.New(sess), topicArn))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-sns-subscriptions",
		Short: "Checks for SNS subscriptions pending confirmation",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&topicArn, "topic-arn", "t", "", "Only check subscriptions of this topic")

	return cmd
}
