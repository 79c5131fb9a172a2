package main

/*
#
# handler-ec2_node
#
# DESCRIPTION:
#   Removes Sensu entities whose EC2 instance is gone. The instance id is read
#   from the entity's aws/instance-id label or annotation, falling back to the
#   entity name. When the instance no longer exists, or is in one of --states,
#   the entity is deleted through the Sensu API and a result is written to
#   the local agent socket.
#
# OUTPUT:
#   none
#
# PLATFORMS:
#   Linux, MAC OS
#
# USAGE:
#   sensu-backend handler: handler-ec2_node --states terminated,stopped
#
*/

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/pkg/errors"
	corev2 "github.com/sensu/core/v2"
	"github.com/sensu/sensu-aws-plugins/aws_session"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/models"
	"github.com/sensu/sensu-aws-plugins/sensu_client"
	"github.com/sensu/sensu-plugin-sdk/sensu"
	"go.uber.org/zap"
)

const instanceIDKey = "aws/instance-id"

type HandlerConfig struct {
	sensu.PluginConfig
	AWS         aws_session.Config
	States      []string
	APIURL      string
	APIKey      string
	AgentSocket string
	Timeout     int
	LogLevel    string
}

var (
	plugin = HandlerConfig{
		PluginConfig: sensu.PluginConfig{
			Name:     "handler-ec2_node",
			Short:    "Deletes Sensu entities of terminated EC2 instances",
			Keyspace: "sensu.io/plugins/handler-ec2_node/config",
		},
	}

	options = append(aws_session.ConfigOptions(&plugin.AWS),
		&sensu.SlicePluginConfigOption[string]{
			Path:     "states",
			Argument: "states",
			Default:  []string{ec2.InstanceStateNameShuttingDown, ec2.InstanceStateNameTerminated, ec2.InstanceStateNameStopping, ec2.InstanceStateNameStopped},
			Usage:    "Instance states that remove the entity",
			Value:    &plugin.States,
		},
		&sensu.PluginConfigOption[string]{
			Path:     "api-url",
			Env:      "SENSU_API_URL",
			Argument: "api-url",
			Default:  "http://127.0.0.1:8080",
			Usage:    "Sensu backend API url",
			Value:    &plugin.APIURL,
		},
		&sensu.PluginConfigOption[string]{
			Env:      "SENSU_API_KEY",
			Argument: "api-key",
			Secret:   true,
			Usage:    "Sensu API key",
			Value:    &plugin.APIKey,
		},
		&sensu.PluginConfigOption[string]{
			Path:     "agent-socket",
			Argument: "agent-socket",
			Default:  sensu_client.DefaultAddress,
			Usage:    "Agent socket receiving the deletion result, empty disables",
			Value:    &plugin.AgentSocket,
		},
		&sensu.PluginConfigOption[int]{
			Argument: "timeout",
			Default:  10,
			Usage:    "Sensu API request timeout in seconds",
			Value:    &plugin.Timeout,
		},
		&sensu.PluginConfigOption[string]{
			Argument: "log-level",
			Default:  "warn",
			Usage:    "Log level written to stderr (debug, info, warn, error)",
			Value:    &plugin.LogLevel,
		},
	)
)

type ec2Client interface {
	DescribeInstances(*ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error)
}

type nodeHandler struct {
	ec2    ec2Client
	http   *http.Client
	apiURL string
	apiKey string
	states []string
	socket *sensu_client.Socket
}

func instanceID(entity *corev2.Entity) string {
	if id := entity.Labels[instanceIDKey]; id != "" {
		return id
	}
	if id := entity.Annotations[instanceIDKey]; id != "" {
		return id
	}
	return entity.Name
}

// instanceGone reports whether the instance no longer exists or is in one of
// the removal states, along with the state seen.
func (h *nodeHandler) instanceGone(id string) (bool, string, error) {
	out, err := h.ec2.DescribeInstances(&ec2.DescribeInstancesInput{InstanceIds: aws.StringSlice([]string{id})})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == "InvalidInstanceID.NotFound" {
			return true, "not found", nil
		}
		return false, "", errors.Wrapf(err, "describe instance %s", id)
	}
	for _, reservation := range out.Reservations {
		for _, instance := range reservation.Instances {
			var state string
			if instance.State != nil {
				state = aws.StringValue(instance.State.Name)
			}
			for _, s := range h.states {
				if s == state {
					return true, state, nil
				}
			}
			return false, state, nil
		}
	}
	return true, "not found", nil
}

func (h *nodeHandler) deleteEntity(namespace, name string) error {
	endpoint := fmt.Sprintf("%s/api/core/v2/namespaces/%s/entities/%s", h.apiURL, url.PathEscape(namespace), url.PathEscape(name))
	req, err := http.NewRequest(http.MethodDelete, endpoint, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Key "+h.apiKey)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "delete entity %s", name)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		logger.Get().Info("entity already deleted", zap.String("entity", name))
		return nil
	case resp.StatusCode >= 300:
		return errors.Errorf("delete entity %s: %s", name, resp.Status)
	}
	return nil
}

func (h *nodeHandler) handle(event *corev2.Event) error {
	id := instanceID(event.Entity)
	gone, state, err := h.instanceGone(id)
	if err != nil {
		return err
	}
	if !gone {
		logger.Get().Debug("instance still active", zap.String("instance", id), zap.String("state", state))
		return nil
	}

	if err := h.deleteEntity(event.Entity.Namespace, event.Entity.Name); err != nil {
		return err
	}
	output := fmt.Sprintf("deleted entity %s, instance %s is %s", event.Entity.Name, id, state)
	logger.Get().Info(output)

	if h.socket == nil {
		return nil
	}
	if err := h.socket.Send(models.SocketResult{
		Name:   "ec2-node",
		Output: output,
		Status: sensu.CheckStateOK,
		Source: event.Entity.Name,
	}); err != nil {
		logger.Get().Warn("could not report deletion", zap.Error(err))
	}
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
	if event.Entity == nil {
		return fmt.Errorf("event does not contain an entity")
	}
	if len(plugin.States) == 0 {
		return fmt.Errorf("--states must name at least one instance state")
	}
	if _, err := url.ParseRequestURI(plugin.APIURL); err != nil {
		return errors.Wrap(err, "invalid --api-url")
	}
	return nil
}

func executeHandler(event *corev2.Event) error {
	sess, err := aws_session.CreateAwsSession(plugin.AWS)
	if err != nil {
		return err
	}
	h := &nodeHandler{
		ec2:    ec2.New(sess),
		http:   &http.Client{Timeout: time.Duration(plugin.Timeout) * time.Second},
		apiURL: plugin.APIURL,
		apiKey: plugin.APIKey,
		states: plugin.States,
	}
	if plugin.AgentSocket != "" {
		h.socket = sensu_client.NewSocket(plugin.AgentSocket)
	}
	return h.handle(event)
}
