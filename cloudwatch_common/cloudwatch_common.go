package cloudwatch_common

/*
threshold checks against a single cloudwatch metric, or against the
percentage one metric makes of another
*/

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	CompareEqual   = "equal"
	CompareNot     = "not"
	CompareGreater = "greater"
	CompareLess    = "less"
)

// Now is the clock used for the metric window.
var Now = time.Now

type Config struct {
	Namespace  string
	MetricName string
	Dimensions []*cloudwatch.Dimension
	// Period in seconds. The lookup window spans ten periods.
	Period    int64
	Statistic string
	Unit      string
	Compare   string
	Critical  float64
	Warning   *float64
	NoDataOk  bool
}

type CompositeConfig struct {
	Config
	NumeratorMetricName   string
	DenominatorMetricName string
	NumeratorDefault      *float64
	NoDenominatorDataOk   bool
	ZeroDenominatorDataOk bool
}

// Compare reports whether value trips threshold. Unknown operators compare
// for equality.
func Compare(value, threshold float64, op string) bool {
	switch op {
	case CompareGreater:
		return value > threshold
	case CompareLess:
		return value < threshold
	case CompareNot:
		return value != threshold
	}
	return value == threshold
}

func ValidateCompare(op string) error {
	switch op {
	case CompareEqual, CompareNot, CompareGreater, CompareLess:
		return nil
	}
	return errors.Errorf("invalid comparison %q, expected one of equal, not, greater, less", op)
}

// MetricDescription renders namespace-metric(Dim=Val,...).
func MetricDescription(namespace, metricName string, dimensions []*cloudwatch.Dimension) string {
	pairs := make([]string, 0, len(dimensions))
	for _, d := range dimensions {
		pairs = append(pairs, aws.StringValue(d.Name)+"="+aws.StringValue(d.Value))
	}
	return fmt.Sprintf("%s-%s(%s)", namespace, metricName, strings.Join(pairs, ","))
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MetricsRequest builds the statistics request for metricName over the last
// ten periods.
func MetricsRequest(cfg Config, metricName string) *cloudwatch.GetMetricStatisticsInput {
	end := Now()
	input := &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(cfg.Namespace),
		MetricName: aws.String(metricName),
		Dimensions: cfg.Dimensions,
		StartTime:  aws.Time(end.Add(-time.Duration(cfg.Period*10) * time.Second)),
		EndTime:    aws.Time(end),
		Period:     aws.Int64(cfg.Period),
	}
	if isExtended(cfg.Statistic) {
		input.ExtendedStatistics = aws.StringSlice([]string{cfg.Statistic})
	} else {
		input.Statistics = aws.StringSlice([]string{cfg.Statistic})
	}
	if cfg.Unit != "" {
		input.Unit = aws.String(cfg.Unit)
	}
	return input
}

func isExtended(statistic string) bool {
	return strings.HasPrefix(statistic, "p")
}

// NormalizeStatistic maps a case-insensitive statistic name to the form
// cloudwatch expects. Percentiles (p90, p99.9) are passed through.
func NormalizeStatistic(statistic string) (string, error) {
	for _, name := range cloudwatch.Statistic_Values() {
		if strings.EqualFold(statistic, name) {
			return name, nil
		}
	}
	if isExtended(statistic) {
		if _, err := strconv.ParseFloat(statistic[1:], 64); err == nil {
			return statistic, nil
		}
	}
	return "", errors.Errorf("invalid statistic %q", statistic)
}

// Datapoint is the statistic read from the newest datapoint.
type Datapoint struct {
	Value     float64
	Timestamp time.Time
}

// LatestValue returns the requested statistic of the newest datapoint, or
// false when cloudwatch has no data for the window.
func LatestValue(client cloudwatchiface.CloudWatchAPI, input *cloudwatch.GetMetricStatisticsInput) (Datapoint, bool, error) {
	logger.Get().Debug("get metric statistics",
		zap.String("namespace", aws.StringValue(input.Namespace)),
		zap.String("metric", aws.StringValue(input.MetricName)))

	output, err := client.GetMetricStatistics(input)
	if err != nil {
		return Datapoint{}, false, errors.Wrapf(err, "get %s statistics", aws.StringValue(input.MetricName))
	}
	if output == nil || len(output.Datapoints) < 1 {
		return Datapoint{}, false, nil
	}

	latest := output.Datapoints[0]
	for _, dp := range output.Datapoints[1:] {
		if aws.TimeValue(dp.Timestamp).After(aws.TimeValue(latest.Timestamp)) {
			latest = dp
		}
	}

	var statistic string
	switch {
	case len(input.Statistics) > 0:
		statistic = aws.StringValue(input.Statistics[0])
	case len(input.ExtendedStatistics) > 0:
		statistic = aws.StringValue(input.ExtendedStatistics[0])
	}
	value, ok := ReadStatistic(latest, statistic)
	if !ok {
		return Datapoint{}, false, nil
	}
	return Datapoint{Value: value, Timestamp: aws.TimeValue(latest.Timestamp)}, true, nil
}

// ReadStatistic picks statistic out of dp.
func ReadStatistic(dp *cloudwatch.Datapoint, statistic string) (float64, bool) {
	var v *float64
	switch statistic {
	case cloudwatch.StatisticAverage:
		v = dp.Average
	case cloudwatch.StatisticSum:
		v = dp.Sum
	case cloudwatch.StatisticMaximum:
		v = dp.Maximum
	case cloudwatch.StatisticMinimum:
		v = dp.Minimum
	case cloudwatch.StatisticSampleCount:
		v = dp.SampleCount
	default:
		v = dp.ExtendedStatistics[statistic]
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Check grades the latest value of the configured metric.
func Check(client cloudwatchiface.CloudWatchAPI, cfg Config) (int, error) {
	desc := MetricDescription(cfg.Namespace, cfg.MetricName, cfg.Dimensions)
	dp, ok, err := LatestValue(client, MetricsRequest(cfg, cfg.MetricName))
	if err != nil {
		return sensu.CheckStateUnknown, err
	}
	if !ok {
		if cfg.NoDataOk {
			return utils.Ok("%s returned no data but that's ok", desc), nil
		}
		return utils.Unknown("%s could not be retrieved", desc), nil
	}
	return grade(desc, dp.Value, cfg), nil
}

// CompositeCheck grades numerator / denominator * 100.
func CompositeCheck(client cloudwatchiface.CloudWatchAPI, cfg CompositeConfig) (int, error) {
	desc := MetricDescription(cfg.Namespace, cfg.NumeratorMetricName+"/"+cfg.DenominatorMetricName, cfg.Dimensions)

	numerator, numOk, err := LatestValue(client, MetricsRequest(cfg.Config, cfg.NumeratorMetricName))
	if err != nil {
		return sensu.CheckStateUnknown, err
	}
	if !numOk && cfg.NumeratorDefault != nil {
		numerator.Value, numOk = *cfg.NumeratorDefault, true
	}
	denominator, denOk, err := LatestValue(client, MetricsRequest(cfg.Config, cfg.DenominatorMetricName))
	if err != nil {
		return sensu.CheckStateUnknown, err
	}

	if !numOk || !denOk {
		if cfg.NoDataOk || (!denOk && cfg.NoDenominatorDataOk) {
			return utils.Ok("%s returned no data but that's ok", desc), nil
		}
		return utils.Unknown("%s could not be retrieved", desc), nil
	}
	if denominator.Value == 0 {
		if cfg.ZeroDenominatorDataOk {
			return utils.Ok("%s denominator is zero but that's ok", desc), nil
		}
		return utils.Unknown("%s denominator is zero", desc), nil
	}

	return grade(desc, numerator.Value/denominator.Value*100, cfg.Config), nil
}

func grade(desc string, value float64, cfg Config) int {
	logger.Get().Debug("grading metric", zap.String("metric", desc), zap.Float64("value", value))
	if Compare(value, cfg.Critical, cfg.Compare) {
		return utils.Critical("%s is %s: comparison=%s threshold=%s", desc, formatValue(value), cfg.Compare, formatValue(cfg.Critical))
	}
	if cfg.Warning != nil && Compare(value, *cfg.Warning, cfg.Compare) {
		return utils.Warning("%s is %s: comparison=%s threshold=%s", desc, formatValue(value), cfg.Compare, formatValue(*cfg.Warning))
	}
	alarmAt := cfg.Critical
	if cfg.Warning != nil {
		alarmAt = *cfg.Warning
	}
	return utils.Ok("%s is %s: comparison=%s, will alarm at %s", desc, formatValue(value), cfg.Compare, formatValue(alarmAt))
}

// Flags binds the metric options shared by the cloudwatch metric checks.
type Flags struct {
	Dimensions string
	Warning    float64
	Critical   float64
	Period     int64
	Statistic  string
	Unit       string
	Compare    string
	NoDataOk   bool
}

func (f *Flags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Dimensions, "dimensions", "d", "", "Comma separated dimension pairs, e.g. LoadBalancerName=web,AvailabilityZone=us-east-1a")
	cmd.Flags().Float64VarP(&f.Critical, "critical", "c", 0, "Critical threshold")
	cmd.Flags().Float64VarP(&f.Warning, "warning", "w", 0, "Warning threshold")
	cmd.Flags().Int64VarP(&f.Period, "period", "p", 60, "CloudWatch metric statistics period in seconds")
	cmd.Flags().StringVarP(&f.Statistic, "statistics", "s", cloudwatch.StatisticAverage, "Statistic: Average, Sum, Maximum, Minimum, SampleCount or pNN.NN")
	cmd.Flags().StringVarP(&f.Unit, "unit", "u", "", "CloudWatch metric unit")
	cmd.Flags().StringVarP(&f.Compare, "operator", "o", CompareGreater, "Comparison operator: equal, not, greater, less")
	cmd.Flags().BoolVarP(&f.NoDataOk, "no-data-ok", "n", false, "Return OK when the metric has no data")
}

// Config validates the flags and builds the check configuration.
func (f *Flags) Config(cmd *cobra.Command, namespace, metricName string) (Config, error) {
	if err := ValidateCompare(f.Compare); err != nil {
		return Config{}, err
	}
	if f.Period <= 0 {
		return Config{}, errors.New("--period must be positive")
	}
	statistic, err := NormalizeStatistic(f.Statistic)
	if err != nil {
		return Config{}, err
	}
	dimensions, err := utils.ParseDimensions(f.Dimensions)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Namespace:  namespace,
		MetricName: metricName,
		Dimensions: dimensions,
		Period:     f.Period,
		Statistic:  statistic,
		Unit:       f.Unit,
		Compare:    f.Compare,
		Critical:   f.Critical,
		NoDataOk:   f.NoDataOk,
	}
	if cmd.Flags().Changed("warning") {
		warning := f.Warning
		cfg.Warning = &warning
	}
	return cfg, nil
}
