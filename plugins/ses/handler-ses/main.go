package main

/*
#
# handler-ses
#
# DESCRIPTION:
#   Emails a summary of Sensu events through SES. Recipients come from --to
#   and from an optional yaml settings file mapping check subscriptions to
#   extra recipients:
#
#     default:
#       - ops@example.com
#     subscriptions:
#       web:
#         - web-team@example.com
#
# OUTPUT:
#   none
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   sensu-backend handler: handler-ses --from sensu@example.com --to ops@example.com
#   sensu-backend handler: handler-ses --from sensu@example.com --settings-file /etc/sensu/ses.yml
#
*/

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/pkg/errors"
	corev2 "github.com/sensu/core/v2"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type HandlerConfig struct {
	sensu.PluginConfig
	AWS           aws_session.Config
	From          string
	To            []string
	SettingsFile  string
	SubjectPrefix string
	LogLevel      string
}

// Settings maps check subscriptions to the recipients interested in them.
type Settings struct {
	Default       []string            `yaml:"default"`
	Subscriptions map[string][]string `yaml:"subscriptions"`
}

var (
	plugin = HandlerConfig{
		PluginConfig: sensu.PluginConfig{
			Name:     "handler-ses",
			Short:    "Emails Sensu events through SES",
			Keyspace: "sensu.io/plugins/handler-ses/config",
		},
	}

	options = append(aws_session.ConfigOptions(&plugin.AWS),
		&sensu.PluginConfigOption[string]{
			Path:      "from",
			Env:       "SES_FROM",
			Argument:  "from",
			Shorthand: "f",
			Usage:     "Verified SES sender address",
			Value:     &plugin.From,
		},
		&sensu.SlicePluginConfigOption[string]{
			Path:      "to",
			Argument:  "to",
			Shorthand: "t",
			Usage:     "Recipient addresses",
			Value:     &plugin.To,
		},
		&sensu.PluginConfigOption[string]{
			Argument: "settings-file",
			Usage:    "Yaml file mapping check subscriptions to recipients",
			Value:    &plugin.SettingsFile,
		},
		&sensu.PluginConfigOption[string]{
			Path:     "subject-prefix",
			Argument: "subject-prefix",
			Default:  "[sensu]",
			Usage:    "Text prepended to the mail subject",
			Value:    &plugin.SubjectPrefix,
		},
		&sensu.PluginConfigOption[string]{
			Argument: "log-level",
			Default:  "warn",
			Usage:    "Log level written to stderr (debug, info, warn, error)",
			Value:    &plugin.LogLevel,
		},
	)
)

type mailer interface {
	SendEmail(*ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

func loadSettings(path string) (Settings, error) {
	var settings Settings
	if path == "" {
		return settings, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return settings, errors.Wrap(err, "read settings file")
	}
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return settings, errors.Wrapf(err, "parse settings file %s", path)
	}
	return settings, nil
}

// recipients returns to, the default recipients and those of every check
// subscription, without duplicates.
func recipients(to []string, settings Settings, event *corev2.Event) []string {
	seen := map[string]bool{}
	var out []string
	add := func(addresses []string) {
		for _, address := range addresses {
			if address != "" && !seen[address] {
				seen[address] = true
				out = append(out, address)
			}
		}
	}
	add(to)
	add(settings.Default)
	for _, subscription := range event.Check.Subscriptions {
		add(settings.Subscriptions[subscription])
	}
	return out
}

func sendEvent(client mailer, from, prefix string, to []string, event *corev2.Event) error {
	subject := utils.EventSubject(event)
	if prefix != "" {
		subject = prefix + " " + subject
	}
	out, err := client.SendEmail(&ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &ses.Destination{ToAddresses: aws.StringSlice(to)},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(subject)},
			Body: &ses.Body{
				Text: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(utils.EventBody(event))},
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "send email")
	}
	logger.Get().Info("sent event email",
		zap.Strings("to", to),
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
	if plugin.From == "" {
		return fmt.Errorf("--from or SES_FROM environment variable is required")
	}
	if len(plugin.To) == 0 && plugin.SettingsFile == "" {
		return fmt.Errorf("--to or --settings-file is required")
	}
	if !event.HasCheck() {
		return fmt.Errorf("event does not contain a check")
	}
	return nil
}

func executeHandler(event *corev2.Event) error {
	settings, err := loadSettings(plugin.SettingsFile)
	if err != nil {
		return err
	}
	to := recipients(plugin.To, settings, event)
	if len(to) == 0 {
		logger.Get().Warn("no recipients for event", zap.String("check", event.Check.Name))
		return nil
	}
	sess, err := aws_session.CreateAwsSession(plugin.AWS)
	if err != nil {
		return err
	}
	return sendEvent(ses.New(sess), plugin.From, plugin.SubjectPrefix, to, event)
}
