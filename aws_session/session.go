package aws_session

import (
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/ec2metadata"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/awsclient"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const DefaultRegion = "us-east-1"

// Config holds the credentials and region shared by every plugin.
type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	RoleArn   string
}

// AddFlags registers the common aws flags on cmd.
func AddFlags(cmd *cobra.Command, cfg *Config) {
	cmd.Flags().StringVarP(&cfg.Region, "aws-region", "r", "", "AWS region (env AWS_REGION, then instance metadata, then "+DefaultRegion+")")
	cmd.Flags().StringVar(&cfg.AccessKey, "aws-access-key", "", "AWS access key (env AWS_ACCESS_KEY)")
	cmd.Flags().StringVar(&cfg.SecretKey, "aws-secret-access-key", "", "AWS secret access key (env AWS_SECRET_KEY)")
	cmd.Flags().StringVar(&cfg.RoleArn, "role-arn", "", "IAM role to assume before calling AWS")
}

// ConfigOptions returns the common aws options for plugins built on the
// sensu plugin framework. Each one can be overridden by an event annotation.
func ConfigOptions(cfg *Config) []sensu.ConfigOption {
	return []sensu.ConfigOption{
		&sensu.PluginConfigOption[string]{
			Path:      "aws-region",
			Argument:  "aws-region",
			Shorthand: "r",
			Usage:     "AWS region (env AWS_REGION, then instance metadata, then " + DefaultRegion + ")",
			Value:     &cfg.Region,
		},
		&sensu.PluginConfigOption[string]{
			Argument: "aws-access-key",
			Usage:    "AWS access key (env AWS_ACCESS_KEY)",
			Value:    &cfg.AccessKey,
		},
		&sensu.PluginConfigOption[string]{
			Argument: "aws-secret-access-key",
			Usage:    "AWS secret access key (env AWS_SECRET_KEY)",
			Secret:   true,
			Value:    &cfg.SecretKey,
		},
		&sensu.PluginConfigOption[string]{
			Path:     "role-arn",
			Argument: "role-arn",
			Usage:    "IAM role to assume before calling AWS",
			Value:    &cfg.RoleArn,
		},
	}
}

func (c Config) withEnv(getenv func(string) string) Config {
	if c.Region == "" {
		c.Region = getenv("AWS_REGION")
	}
	if c.AccessKey == "" {
		c.AccessKey = getenv("AWS_ACCESS_KEY")
	}
	if c.SecretKey == "" {
		c.SecretKey = getenv("AWS_SECRET_KEY")
	}
	return c
}

// CreateAwsSession builds a session from cfg. Without a configured region the
// instance metadata region is used, falling back to DefaultRegion.
func CreateAwsSession(cfg Config) (*session.Session, error) {
	cfg = cfg.withEnv(os.Getenv)

	awsConfig := aws.NewConfig()
	if cfg.Region != "" {
		awsConfig = awsConfig.WithRegion(cfg.Region)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsConfig = awsConfig.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.Wrap(err, "create aws session")
	}

	if aws.StringValue(sess.Config.Region) == "" {
		region := awsclient.InstanceRegion(ec2metadata.New(sess), DefaultRegion)
		sess = sess.Copy(aws.NewConfig().WithRegion(region))
	}

	if cfg.RoleArn != "" {
		provider := awsclient.NewAssumeRoleCredentialsProvider(sts.New(sess), cfg.RoleArn)
		sess = sess.Copy(aws.NewConfig().WithCredentials(credentials.NewCredentials(provider)))
	}

	logger.Get().Debug("aws session created",
		zap.String("region", aws.StringValue(sess.Config.Region)),
		zap.Bool("assume_role", cfg.RoleArn != ""))
	return sess, nil
}

// MyInstanceID returns the id of the instance the plugin runs on.
func MyInstanceID(sess *session.Session) (string, error) {
	return awsclient.MyInstanceID(ec2metadata.New(sess))
}
