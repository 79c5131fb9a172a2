package main

/*
#
# check-ebs-snapshots
#
# DESCRIPTION:
#   Checks that attached EBS volumes with a Name tag have a recent snapshot.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-ebs-snapshots --period=7
#   ./check-ebs-snapshots --check-ignored=false
#
# NOTES:
#   With --check-ignored (the default) volumes tagged IGNORE_BACKUP are skipped.
#
*/

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
)

const ignoreTag = "IGNORE_BACKUP"

var (
	awsConfig    aws_session.Config
	checkIgnored bool
	periodDays   int
)

type ec2Client interface {
	DescribeVolumesPages(*ec2.DescribeVolumesInput, func(*ec2.DescribeVolumesOutput, bool) bool) error
	DescribeSnapshotsPages(*ec2.DescribeSnapshotsInput, func(*ec2.DescribeSnapshotsOutput, bool) bool) error
}

func latestSnapshot(client ec2Client, volumeID string) (*ec2.Snapshot, error) {
	var latest *ec2.Snapshot
	err := client.DescribeSnapshotsPages(&ec2.DescribeSnapshotsInput{
		Filters: []*ec2.Filter{{Name: aws.String("volume-id"), Values: aws.StringSlice([]string{volumeID})}},
	}, func(page *ec2.DescribeSnapshotsOutput, lastPage bool) bool {
		for _, snapshot := range page.Snapshots {
			if latest == nil || aws.TimeValue(snapshot.StartTime).After(aws.TimeValue(latest.StartTime)) {
				latest = snapshot
			}
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "describe snapshots of %s", volumeID)
	}
	return latest, nil
}

func volumeName(volume *ec2.Volume) string {
	for _, tag := range volume.Tags {
		if aws.StringValue(tag.Key) == "Name" {
			return aws.StringValue(tag.Value)
		}
	}
	return ""
}

func ignored(volume *ec2.Volume) bool {
	for _, tag := range volume.Tags {
		if aws.StringValue(tag.Key) == ignoreTag {
			return true
		}
	}
	return false
}

func checkSnapshots(client ec2Client, now time.Time, periodDays int, checkIgnored bool) (int, error) {
	var volumes []*ec2.Volume
	err := client.DescribeVolumesPages(&ec2.DescribeVolumesInput{Filters: []*ec2.Filter{
		{Name: aws.String("attachment.status"), Values: aws.StringSlice([]string{ec2.AttachmentStatusAttached})},
		{Name: aws.String("tag-key"), Values: aws.StringSlice([]string{"Name"})},
	}}, func(page *ec2.DescribeVolumesOutput, lastPage bool) bool {
		volumes = append(volumes, page.Volumes...)
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe volumes")
	}

	cutoff := now.Add(-time.Duration(periodDays) * 24 * time.Hour)
	var missing []string
	for _, volume := range volumes {
		if checkIgnored && ignored(volume) {
			continue
		}
		volumeID := aws.StringValue(volume.VolumeId)
		snapshot, err := latestSnapshot(client, volumeID)
		if err != nil {
			return sensu.CheckStateUnknown, err
		}
		switch {
		case snapshot == nil:
			missing = append(missing, fmt.Sprintf("%s (%s) has no snapshot", volumeName(volume), volumeID))
		case aws.TimeValue(snapshot.StartTime).Before(cutoff):
			missing = append(missing, fmt.Sprintf("%s (%s) latest snapshot is %s", volumeName(volume), volumeID, aws.TimeValue(snapshot.StartTime).Format(time.RFC3339)))
		}
	}

	if len(missing) > 0 {
		return utils.Warning("%s", strings.Join(missing, ", ")), nil
	}
	return utils.Ok("%d volumes have a snapshot from the last %d days", len(volumes), periodDays), nil
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
	utils.Exit(checkSnapshots(ec2.New(sess), time.Now(), periodDays, checkIgnored))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-ebs-snapshots",
		Short: "Checks that attached EBS volumes have recent snapshots",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().BoolVarP(&checkIgnored, "check-ignored", "i", true, "Skip volumes tagged "+ignoreTag)
	cmd.Flags().IntVarP(&periodDays, "period", "p", 7, "Alert when the latest snapshot is older than this many days")

	return cmd
}
