package metrics

/*
graphite plaintext output for the metrics-* plugins
*/

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	graphite "github.com/marpaia/graphite-golang"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pathReplacer = strings.NewReplacer(" ", "_", "/", "_")

// Emitter collects metrics under a common scheme.
type Emitter struct {
	Scheme  string
	Now     func() time.Time
	metrics []graphite.Metric
}

func NewEmitter(scheme string) *Emitter {
	return &Emitter{Scheme: scheme, Now: time.Now}
}

// Path joins the scheme and parts into a dotted metric name.
func (e *Emitter) Path(parts ...string) string {
	clean := make([]string, 0, len(parts)+1)
	if e.Scheme != "" {
		clean = append(clean, e.Scheme)
	}
	for _, part := range parts {
		if part != "" {
			clean = append(clean, pathReplacer.Replace(part))
		}
	}
	return strings.Join(clean, ".")
}

// Add records value under the scheme. A zero timestamp means now.
func (e *Emitter) Add(value float64, timestamp time.Time, parts ...string) {
	if timestamp.IsZero() {
		timestamp = e.Now()
	}
	e.metrics = append(e.metrics, graphite.NewMetric(
		e.Path(parts...),
		strconv.FormatFloat(value, 'f', -1, 64),
		timestamp.Unix(),
	))
}

func (e *Emitter) Metrics() []graphite.Metric {
	return e.metrics
}

// Write prints one "name value timestamp" line per metric.
func (e *Emitter) Write(w io.Writer) error {
	for _, m := range e.metrics {
		if _, err := fmt.Fprintf(w, "%s %s %d\n", m.Name, m.Value, m.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

// Push sends the metrics to a carbon listener.
func (e *Emitter) Push(host string, port int) error {
	if len(e.metrics) == 0 {
		return nil
	}
	g, err := graphite.NewGraphite(host, port)
	if err != nil {
		return errors.Wrapf(err, "connect to graphite %s:%d", host, port)
	}
	defer g.Disconnect()

	logger.Get().Debug("pushing metrics", zap.String("host", host), zap.Int("count", len(e.metrics)))
	if err := g.SendMetrics(e.metrics); err != nil {
		return errors.Wrap(err, "send metrics to graphite")
	}
	return nil
}

// Flags binds the output options shared by the metrics plugins.
type Flags struct {
	Scheme       string
	GraphiteHost string
	GraphitePort int
}

func (f *Flags) Register(cmd *cobra.Command, defaultScheme string) {
	cmd.Flags().StringVarP(&f.Scheme, "scheme", "s", defaultScheme, "Metric naming scheme, text to prepend to metric")
	cmd.Flags().StringVar(&f.GraphiteHost, "graphite-host", "", "Also send the metrics to this carbon host")
	cmd.Flags().IntVar(&f.GraphitePort, "graphite-port", 2003, "Carbon plaintext port")
}

func (f *Flags) NewEmitter() *Emitter {
	return NewEmitter(f.Scheme)
}

// Emit writes the metrics to the plugin output and pushes them when a
// graphite host is configured.
func (f *Flags) Emit(e *Emitter) error {
	if err := e.Write(utils.Output); err != nil {
		return err
	}
	if f.GraphiteHost == "" {
		return nil
	}
	return e.Push(f.GraphiteHost, f.GraphitePort)
}

// Collect runs collect, emits what it gathered and exits. Failures exit UNKNOWN.
func (f *Flags) Collect(collect func(*Emitter) error) {
	emitter := f.NewEmitter()
	if err := collect(emitter); err != nil {
		utils.Exit(sensu.CheckStateUnknown, err)
		return
	}
	if err := f.Emit(emitter); err != nil {
		utils.Exit(sensu.CheckStateUnknown, err)
		return
	}
	utils.Exit(sensu.CheckStateOK, nil)
}
