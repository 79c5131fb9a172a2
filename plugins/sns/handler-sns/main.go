package main

/*
#
# handler-sns
#
# DESCRIPTION:
#   Publishes a summary of Sensu events to an SNS topic. With --json the
#   whole event is published instead of the text summary.
#
# OUTPUT:
#   none
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   sensu-backend handler: handler-sns --topic-arn arn:aws:sns:us-east-1:123456789012:alerts
#
*/

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/pkg/errors"
	corev2 "github.com/sensu/core/v2"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"go.uber.org/zap"
)

// SNS rejects subjects longer than this.
const maxSubject = 100

type HandlerConfig struct {
	sensu.PluginConfig
	AWS      aws_session.Config
	TopicArn string
	JSON     bool
	LogLevel string
}

var (
	plugin = HandlerConfig{
		PluginConfig: sensu.PluginConfig{
			Name:     "handler-sns",
			Short:    "Publishes Sensu events to an SNS topic",
			Keyspace: "sensu.io/plugins/handler-sns/config",
		},
	}

	options = append(aws_session.ConfigOptions(&plugin.AWS),
		&sensu.PluginConfigOption[string]{
			Path:      "topic-arn",
			Env:       "SNS_TOPIC_ARN",
			Argument:  "topic-arn",
			Shorthand: "t",
			Usage:     "ARN of the topic to publish to",
			Value:     &plugin.TopicArn,
		},
		&sensu.PluginConfigOption[bool]{
			Path:     "json",
			Argument: "json",
			Usage:    "Publish the event as json instead of a text summary",
			Value:    &plugin.JSON,
		},
		&sensu.PluginConfigOption[string]{
			Argument: "log-level",
			Default:  "warn",
			Usage:    "Log level written to stderr (debug, info, warn, error)",
			Value:    &plugin.LogLevel,
		},
	)
)

type publisher interface {
	Publish(*sns.PublishInput) (*sns.PublishOutput, error)
}

func subject(event *corev2.Event) string {
	s := []rune(utils.EventSubject(event))
	if len(s) > maxSubject {
		return string(s[:maxSubject-3]) + "..."
	}
	return string(s)
}

func publishEvent(client publisher, topicArn string, asJSON bool, event *corev2.Event) error {
	message := utils.EventBody(event)
	if asJSON {
		raw, err := json.Marshal(event)
		if err != nil {
			return errors.Wrap(err, "encode event")
		}
		message = string(raw)
	}

	out, err := client.Publish(&sns.PublishInput{
		TopicArn: aws.String(topicArn),
		Subject:  aws.String(subject(event)),
		Message:  aws.String(message),
	})
	if err != nil {
		return errors.Wrapf(err, "publish to %s", topicArn)
	}
	logger.Get().Info("published event",
		zap.String("topic", topicArn),
		zap.String("message_id", aws.StringValue(out.MessageId)))
	return nil
}

func main() {
	handler := sensu.NewGoHandler(&plugin.PluginConfig, options, checkArgs, executeHandler)
	handler.Execute()
}

func checkArgs(event *corev2.Event) error {
	if err := logger.Init(plugin.LogLevel); err != nil {
		return err
	}
	if plugin.TopicArn == "" {
		return fmt.Errorf("--topic-arn or SNS_TOPIC_ARN environment variable is required")
	}
	if !event.HasCheck() {
		return fmt.Errorf("event does not contain a check")
	}
	return nil
}

func executeHandler(event *corev2.Event) error {
	sess, err := aws_session.CreateAwsSession(plugin.AWS)
	if err != nil {
		return err
	}
	return publishEvent(sns.New(sess), plugin.TopicArn, plugin.JSON, event)
}
