package main

/*
#
# check-iam-access-key-age
#
# DESCRIPTION:
#   Checks the age of active IAM access keys.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-iam-access-key-age --warning 90 --critical 180
#   ./check-iam-access-key-age --users deploy,backup
#
*/

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

var (
	awsConfig aws_session.Config
	users     string
	warning   float64
	critical  float64
)

type iamClient interface {
	ListUsersPages(*iam.ListUsersInput, func(*iam.ListUsersOutput, bool) bool) error
	ListAccessKeysPages(*iam.ListAccessKeysInput, func(*iam.ListAccessKeysOutput, bool) bool) error
}

func userNames(client iamClient, only []string) ([]string, error) {
	if len(only) > 0 {
		return only, nil
	}
	var names []string
	err := client.ListUsersPages(&iam.ListUsersInput{}, func(page *iam.ListUsersOutput, lastPage bool) bool {
		for _, user := range page.Users {
			names = append(names, aws.StringValue(user.UserName))
		}
		return true
	})
	return names, errors.Wrap(err, "list users")
}

func checkKeyAge(client iamClient, only []string, now time.Time, warning, critical float64) (int, error) {
	names, err := userNames(client, only)
	if err != nil {
		return sensu.CheckStateUnknown, err
	}

	status := sensu.CheckStateOK
	active := 0
	var old []string
	for _, name := range names {
		err := client.ListAccessKeysPages(&iam.ListAccessKeysInput{UserName: aws.String(name)}, func(page *iam.ListAccessKeysOutput, lastPage bool) bool {
			for _, key := range page.AccessKeyMetadata {
				if aws.StringValue(key.Status) != iam.StatusTypeActive {
					continue
				}
				active++
				days := math.Floor(now.Sub(aws.TimeValue(key.CreateDate)).Hours() / 24)
				if keyStatus := utils.Above(days, warning, critical); keyStatus != sensu.CheckStateOK {
					status = utils.Worst(status, keyStatus)
					old = append(old, fmt.Sprintf("%s (%s: %.0fd)", name, aws.StringValue(key.AccessKeyId), days))
				}
			}
			return true
		})
		if err != nil {
			return sensu.CheckStateUnknown, errors.Wrapf(err, "list access keys of %s", name)
		}
	}

	if status != sensu.CheckStateOK {
		return utils.Status(status, "old access keys: %s", strings.Join(old, ", ")), nil
	}
	return utils.Ok("%d active access key(s) younger than %g days", active, warning), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if warning > critical {
		return fmt.Errorf("--warning must not exceed --critical")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkKeyAge(iam.New(sess), utils.SplitList(users), time.Now(), warning, critical))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-iam-access-key-age",
		Short: "Checks the age of active IAM access keys",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&users, "users", "u", "", "Comma separated user names, all users when empty")
	cmd.Flags().Float64VarP(&warning, "warning", "w", 90, "Warn when an active key is this many days old")
	cmd.Flags().Float64VarP(&critical, "critical", "c", 180, "Critical when an active key is this many days old")

	return cmd
}
