package main

/*
#
# check-elb-certs
#
# DESCRIPTION:
#   Looks up the classic load balancers of the region and checks the HTTPS
#   listeners for expiring certificates.
#
# OUTPUT:
#   plain-text
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   ./check-elb-certs -r us-east-1 --warning 30 --critical 5
#
*/

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/elb"
	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	awsConfig aws_session.Config
	warning   int
	critical  int
	verbose   bool
	timeout   time.Duration
)

type elbClient interface {
	DescribeLoadBalancersPages(*elb.DescribeLoadBalancersInput, func(*elb.DescribeLoadBalancersOutput, bool) bool) error
}

// certFetcher returns the leaf certificate served on host:port.
type certFetcher func(host string, port int64) (*x509.Certificate, error)

func tlsFetcher(timeout time.Duration) certFetcher {
	return func(host string, port int64) (*x509.Certificate, error) {
		dialer := &net.Dialer{Timeout: timeout}
		conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, strconv.FormatInt(port, 10)), &tls.Config{ServerName: host})
		if err != nil {
			return nil, errors.Wrapf(err, "tls dial %s:%d", host, port)
		}
		defer conn.Close()
		certs := conn.ConnectionState().PeerCertificates
		if len(certs) == 0 {
			return nil, errors.Errorf("%s:%d presented no certificate", host, port)
		}
		return certs[0], nil
	}
}

type certOptions struct {
	Warning  int
	Critical int
	Verbose  bool
	Now      time.Time
}

func checkCerts(client elbClient, fetch certFetcher, opts certOptions) (int, error) {
	var balancers []*elb.LoadBalancerDescription
	err := client.DescribeLoadBalancersPages(&elb.DescribeLoadBalancersInput{}, func(page *elb.DescribeLoadBalancersOutput, lastPage bool) bool {
		balancers = append(balancers, page.LoadBalancerDescriptions...)
		return true
	})
	if err != nil {
		return sensu.CheckStateUnknown, errors.Wrap(err, "describe load balancers")
	}

	status := sensu.CheckStateOK
	var expiring, checked []string
	for _, lb := range balancers {
		name := aws.StringValue(lb.LoadBalancerName)
		for _, listener := range lb.ListenerDescriptions {
			if listener.Listener == nil || !strings.EqualFold(aws.StringValue(listener.Listener.Protocol), "HTTPS") {
				continue
			}
			port := aws.Int64Value(listener.Listener.LoadBalancerPort)
			cert, err := fetch(aws.StringValue(lb.DNSName), port)
			if err != nil {
				return sensu.CheckStateUnknown, err
			}
			days := int(cert.NotAfter.Sub(opts.Now).Hours() / 24)
			logger.Get().Debug("certificate", zap.String("elb", name), zap.Int64("port", port), zap.Int("days_left", days))

			detail := fmt.Sprintf("%s:%d expires in %d days (%s)", name, port, days, cert.NotAfter.Format(time.RFC3339))
			checked = append(checked, detail)
			switch {
			case days < opts.Critical:
				status = utils.Worst(status, sensu.CheckStateCritical)
				expiring = append(expiring, detail)
			case days < opts.Warning:
				status = utils.Worst(status, sensu.CheckStateWarning)
				expiring = append(expiring, detail)
			}
		}
	}

	if status != sensu.CheckStateOK {
		return utils.Status(status, "%s", strings.Join(expiring, ", ")), nil
	}
	if opts.Verbose && len(checked) > 0 {
		return utils.Ok("%s", strings.Join(checked, ", ")), nil
	}
	return utils.Ok("no certificate expires in the next %d days", opts.Warning), nil
}

func main() {
	utils.Execute(configureRootCommand())
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		_ = cmd.Help()
		return fmt.Errorf("invalid argument(s) received")
	}
	if critical > warning {
		return fmt.Errorf("--critical must not be greater than --warning")
	}
	sess, err := aws_session.CreateAwsSession(awsConfig)
	if err != nil {
		return err
	}
	utils.Exit(checkCerts(elb.New(sess), tlsFetcher(timeout), certOptions{
		Warning:  warning,
		Critical: critical,
		Verbose:  verbose,
		Now:      time.Now(),
	}))
	return nil
}

func configureRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-elb-certs",
		Short: "Checks the HTTPS certificates of classic load balancers for expiry",
		RunE:  run,
	}

	aws_session.AddFlags(cmd, &awsConfig)
	cmd.Flags().IntVarP(&warning, "warning", "w", 30, "Warn when a certificate expires in fewer days")
	cmd.Flags().IntVarP(&critical, "critical", "c", 5, "Critical when a certificate expires in fewer days")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List certificate expiry dates even when OK")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "Timeout of each TLS connection")

	return cmd
}
