package main

/*
#
# check-rds
#
# DESCRIPTION:
#   Checks an RDS instance, or the writer of an Aurora cluster, through the RDS
#   and CloudWatch APIs: availability zone, CPU, memory, disk, connections and
#   IOPS. The highest severity found is reported.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   Critical if DB instance "sensu-admin-db" is not on ap-northeast-1a
#   ./check-rds --db-instance-id sensu-admin-db --availability-zone-severity critical --availability-zone ap-northeast-1a
#
#   Warning if CPUUtilization is over 80%, critical if over 90%
#   ./check-rds --db-instance-id sensu-admin-db --cpu-warning-over 80 --cpu-critical-over 90
#
#   Critical if CPUUtilization is over 90%, maximum of last one hour
#   ./check-rds --db-instance-id sensu-admin-db --cpu-critical-over 90 --statistic Maximum --period 3600
#
#   Warning if memory usage is over 80%. Memory usage is derived from FreeableMemory,
#   so Minimum is the statistic giving the highest usage
#   ./check-rds --db-instance-id sensu-admin-db --memory-warning-over 80 --statistic Minimum --period 7200
#
#   The writer of an Aurora cluster
#   ./check-rds --db-cluster-id sensu-cluster --connections-warning-over 100
#
#   CloudWatch falls behind from time to time, --accept-nil treats missing
#   datapoints as OK
#   ./check-rds --db-instance-id sensu-admin-db --cpu-critical-over 90 --accept-nil
#
*/

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/aws/aws-sdk-go/service/rds"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/cloudwatch_common"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	awsConfig    aws_session.Config
	dbInstanceID string
	dbClusterID  string
	opts         = rdsOptions{}
)

type rdsClient interface {
	DescribeDBInstances(*rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error)
	DescribeDBClusters(*rds.DescribeDBClustersInput) (*rds.DescribeDBClustersOutput, error)
}

// limits alarms when a value reaches Warning or Critical. Negative disables.
type limits struct {
	Warning  float64
	Critical float64
}

func (l limits) enabled() bool {
	return l.Warning >= 0 || l.Critical >= 0
}

func (l limits) grade(value float64) int {
	switch {
	case l.Critical >= 0 && value >= l.Critical:
		return sensu.CheckStateCritical
	case l.Warning >= 0 && value >= l.Warning:
		return sensu.CheckStateWarning
	}
	return sensu.CheckStateOK
}

func (l limits) threshold(status int) float64 {
	if status == sensu.CheckStateCritical {
		return l.Critical
	}
	return l.Warning
}

type rdsOptions struct {
	Period           int64
	FetchAge         int64
	Statistic        string
	AcceptNil        bool
	AvailabilityZone string
	ZoneSeverity     string
	CPU              limits
	Memory           limits
	Disk             limits
	Connections      limits
	IOPS             limits
	Now              time.Time
}

// result accumulates the worst status and the messages explaining it.
type result struct {
	status   int
	problems []string
	values   []string
}

func (r *result) add(status int, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if status == sensu.CheckStateOK {
		r.values = append(r.values, message)
		return
	}
	r.status = utils.Worst(r.status, status)
	r.problems = append(r.problems, message)
}

func describeInstance(client rdsClient, id string) (*rds.DBInstance, error) {
	out, err := client.DescribeDBInstances(&rds.DescribeDBInstancesInput{DBInstanceIdentifier: aws.String(id)})
	if err != nil {
		return nil, errors.Wrapf(err, "describe db instance %s", id)
	}
	if len(out.DBInstances) == 0 {
		return nil, errors.Errorf("db instance %s not found", id)
	}
	return out.DBInstances[0], nil
}

func clusterWriter(client rdsClient, clusterID string) (string, error) {
	out, err := client.DescribeDBClusters(&rds.DescribeDBClustersInput{DBClusterIdentifier: aws.String(clusterID)})
	if err != nil {
		return "", errors.Wrapf(err, "describe db cluster %s", clusterID)
	}
	if len(out.DBClusters) == 0 {
		return "", errors.Errorf("db cluster %s not found", clusterID)
	}
	for _, member := range out.DBClusters[0].DBClusterMembers {
		if aws.BoolValue(member.IsClusterWriter) {
			return aws.StringValue(member.DBInstanceIdentifier), nil
		}
	}
	return "", errors.Errorf("db cluster %s has no writer", clusterID)
}

func metricValue(client cloudwatchiface.CloudWatchAPI, instanceID, metric string, opts rdsOptions) (float64, bool, error) {
	request := cloudwatch_common.MetricsRequest(cloudwatch_common.Config{
		Namespace:  "AWS/RDS",
		Dimensions: []*cloudwatch.Dimension{{Name: aws.String("DBInstanceIdentifier"), Value: aws.String(instanceID)}},
		Period:     opts.Period,
		Statistic:  opts.Statistic,
	}, metric)
	end := opts.Now.Add(-time.Duration(opts.FetchAge) * time.Second)
	request.EndTime = aws.Time(end)
	request.StartTime = aws.Time(end.Add(-time.Duration(opts.Period) * time.Second))

	dp, ok, err := cloudwatch_common.LatestValue(client, request)
	if err != nil {
		return 0, false, err
	}
	logger.Get().Debug("rds metric", zap.String("instance", instanceID), zap.String("metric", metric), zap.Bool("found", ok), zap.Float64("value", dp.Value))
	return dp.Value, ok, nil
}

// gauge fetches the named metrics, and grades compute(values) against l.
func gauge(r *result, client cloudwatchiface.CloudWatchAPI, instanceID, label, unit string, l limits, opts rdsOptions, compute func([]float64) (float64, error), metrics ...string) error {
	if !l.enabled() {
		return nil
	}
	values := make([]float64, 0, len(metrics))
	for _, metric := range metrics {
		value, ok, err := metricValue(client, instanceID, metric, opts)
		if err != nil {
			return err
		}
		if !ok {
			if opts.AcceptNil {
				r.add(sensu.CheckStateOK, "%s has no data (accepted)", label)
			} else {
				r.add(sensu.CheckStateUnknown, "%s returned no data, try increasing the period", label)
			}
			return nil
		}
		values = append(values, value)
	}
	value, err := compute(values)
	if err != nil {
		r.add(sensu.CheckStateUnknown, "%s: %v", label, err)
		return nil
	}
	status := l.grade(value)
	if status == sensu.CheckStateOK {
		r.add(status, "%s %.1f%s", label, value, unit)
	} else {
		r.add(status, "%s %.1f%s over %g%s", label, value, unit, l.threshold(status), unit)
	}
	return nil
}

func first(values []float64) (float64, error) {
	return values[0], nil
}

func sum(values []float64) (float64, error) {
	var total float64
	for _, v := range values {
		total += v
	}
	return total, nil
}

func checkRds(rdsClient rdsClient, cwClient cloudwatchiface.CloudWatchAPI, instanceID, clusterID string, opts rdsOptions) (int, error) {
	if clusterID != "" {
		writer, err := clusterWriter(rdsClient, clusterID)
		if err != nil {
			return sensu.CheckStateUnknown, err
		}
		instanceID = writer
	}
	instance, err := describeInstance(rdsClient, instanceID)
	if err != nil {
		return sensu.CheckStateUnknown, err
	}

	r := &result{status: sensu.CheckStateOK}
	zone := aws.StringValue(instance.AvailabilityZone)
	if opts.AvailabilityZone != "" && zone != opts.AvailabilityZone {
		severity := sensu.CheckStateCritical
		if opts.ZoneSeverity == "warning" {
			severity = sensu.CheckStateWarning
		}
		r.add(severity, "availability zone is %s, expected %s", zone, opts.AvailabilityZone)
	}

	class := aws.StringValue(instance.DBInstanceClass)
	memory := func(values []float64) (float64, error) {
		total, ok := memoryBytes(class)
		if !ok {
			return 0, errors.Errorf("unknown memory size of instance class %s", class)
		}
		return usedPercent(total, values[0]), nil
	}
	disk := func(values []float64) (float64, error) {
		return usedPercent(float64(aws.Int64Value(instance.AllocatedStorage))*gib, values[0]), nil
	}

	checks := []struct {
		label   string
		unit    string
		limits  limits
		compute func([]float64) (float64, error)
		metrics []string
	}{
		{"cpu", "%", opts.CPU, first, []string{"CPUUtilization"}},
		{"memory", "%", opts.Memory, memory, []string{"FreeableMemory"}},
		{"disk", "%", opts.Disk, disk, []string{"FreeStorageSpace"}},
		{"connections", "", opts.Connections, first, []string{"DatabaseConnections"}},
		{"iops", "", opts.IOPS, sum, []string{"ReadIOPS", "WriteIOPS"}},
	}
	for _, c := range checks {
		if err := gauge(r, cwClient, instanceID, c.label, c.unit, c.limits, opts, c.compute, c.metrics...); err != nil {
			return sensu.CheckStateUnknown, err
		}
	}

	if r.status != sensu.CheckStateOK {
		return utils.Status(r.status, "%s: %s", instanceID, strings.Join(r.problems, ", ")), nil
	}
	if len(r.values) == 0 {
		return utils.Ok("%s is in %s", instanceID, zone), nil
	}
	return utils.Ok("%s: %s", instanceID, strings.Join(r.values, ", ")), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if (dbInstanceID == "") == (dbClusterID == "") {
		return fmt.Errorf("exactly one of --db-instance-id or --db-cluster-id is required")
	}
	if opts.ZoneSeverity != "warning" && opts.ZoneSeverity != "critical" {
		return fmt.Errorf("--availability-zone-severity must be warning or critical")
	}
	statistic, err := cloudwatch_common.NormalizeStatistic(opts.Statistic)
	if err != nil {
		return err
	}
	opts.Statistic = statistic
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	opts.Now = time.Now()
	utils.Exit(checkRds(rds.New(sess), cloudwatch.New(sess), dbInstanceID, dbClusterID, opts))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-rds",
		Short: "Checks RDS instance placement and CloudWatch metrics",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().StringVarP(&dbInstanceID, "db-instance-id", "i", "", "DB instance identifier")
	cmd.Flags().StringVarP(&dbClusterID, "db-cluster-id", "l", "", "DB cluster identifier, its writer instance is checked")
	cmd.Flags().Int64VarP(&opts.FetchAge, "fetch-age", "f", 0, "How long ago to fetch metrics from in seconds")
	cmd.Flags().Int64VarP(&opts.Period, "period", "p", 180, "CloudWatch metric statistics period in seconds")
	cmd.Flags().StringVarP(&opts.Statistic, "statistic", "s", cloudwatch.StatisticAverage, "CloudWatch statistic")
	cmd.Flags().BoolVarP(&opts.AcceptNil, "accept-nil", "n", false, "Treat metrics without datapoints as OK")
	cmd.Flags().StringVarP(&opts.AvailabilityZone, "availability-zone", "z", "", "Alert when the instance is not in this availability zone")
	cmd.Flags().StringVar(&opts.ZoneSeverity, "availability-zone-severity", "critical", "Severity of an availability zone mismatch: warning, critical")
	cmd.Flags().Float64Var(&opts.CPU.Critical, "cpu-critical-over", -1, "Critical when cpu usage is over a percentage")
	cmd.Flags().Float64Var(&opts.CPU.Warning, "cpu-warning-over", -1, "Warn when cpu usage is over a percentage")
	cmd.Flags().Float64Var(&opts.Memory.Critical, "memory-critical-over", -1, "Critical when memory usage is over a percentage")
	cmd.Flags().Float64Var(&opts.Memory.Warning, "memory-warning-over", -1, "Warn when memory usage is over a percentage")
	cmd.Flags().Float64Var(&opts.Disk.Critical, "disk-critical-over", -1, "Critical when disk usage is over a percentage")
	cmd.Flags().Float64Var(&opts.Disk.Warning, "disk-warning-over", -1, "Warn when disk usage is over a percentage")
	cmd.Flags().Float64Var(&opts.Connections.Critical, "connections-critical-over", -1, "Critical when the connection count is over a number")
	cmd.Flags().Float64Var(&opts.Connections.Warning, "connections-warning-over", -1, "Warn when the connection count is over a number")
	cmd.Flags().Float64Var(&opts.IOPS.Critical, "iops-critical-over", -1, "Critical when read plus write IOPS is over a number")
	cmd.Flags().Float64Var(&opts.IOPS.Warning, "iops-warning-over", -1, "Warn when read plus write IOPS is over a number")

	return cmd
}
