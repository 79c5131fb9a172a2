package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ec2"
	corev2 "github.com/sensu/core/v2"
	"github.com/sensu/sensu-aws-plugins/models"
	"github.com/sensu/sensu-aws-plugins/sensu_client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEC2 struct {
	mock.Mock
}

func (m *mockEC2) DescribeInstances(input *ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
	args := m.Called(aws.StringValue(input.InstanceIds[0]))
	out, _ := args.Get(0).(*ec2.DescribeInstancesOutput)
	return out, args.Error(1)
}

func withState(state string) *ec2.DescribeInstancesOutput {
	return &ec2.DescribeInstancesOutput{Reservations: []*ec2.Reservation{{Instances: []*ec2.Instance{{
		InstanceId: aws.String("i-1"),
		State:      &ec2.InstanceState{Name: aws.String(state)},
	}}}}}
}

func TestInstanceID(t *testing.T) {
	entity := corev2.FixtureEntity("web-1")
	assert.Equal(t, "web-1", instanceID(entity))

	entity.Annotations = map[string]string{instanceIDKey: "i-annotated"}
	assert.Equal(t, "i-annotated", instanceID(entity))

	entity.Labels = map[string]string{instanceIDKey: "i-labelled"}
	assert.Equal(t, "i-labelled", instanceID(entity))
}

func TestInstanceGone(t *testing.T) {
	client := new(mockEC2)
	client.On("DescribeInstances", "i-running").Return(withState("running"), nil)
	client.On("DescribeInstances", "i-stopped").Return(withState("stopped"), nil)
	client.On("DescribeInstances", "i-missing").Return(nil, awserr.New("InvalidInstanceID.NotFound", "does not exist", nil))
	client.On("DescribeInstances", "i-empty").Return(&ec2.DescribeInstancesOutput{}, nil)
	client.On("DescribeInstances", "i-denied").Return(nil, awserr.New("UnauthorizedOperation", "denied", nil))

	h := &nodeHandler{ec2: client, states: []string{"terminated", "stopped"}}

	tests := []struct {
		id    string
		gone  bool
		state string
		err   bool
	}{
		{"i-running", false, "running", false},
		{"i-stopped", true, "stopped", false},
		{"i-missing", true, "not found", false},
		{"i-empty", true, "not found", false},
		{"i-denied", false, "", true},
	}
	for _, test := range tests {
		t.Run(test.id, func(t *testing.T) {
			gone, state, err := h.instanceGone(test.id)
			assert.Equal(t, test.err, err != nil)
			assert.Equal(t, test.gone, gone)
			assert.Equal(t, test.state, state)
		})
	}
}

func TestHandle(t *testing.T) {
	var deleted []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "Key secret", r.Header.Get("Authorization"))
		deleted = append(deleted, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	client := new(mockEC2)
	client.On("DescribeInstances", "i-1").Return(withState("terminated"), nil)
	client.On("DescribeInstances", "web-2").Return(withState("running"), nil)

	h := &nodeHandler{
		ec2:    client,
		http:   api.Client(),
		apiURL: api.URL,
		apiKey: "secret",
		states: []string{"terminated"},
		socket: sensu_client.NewSocket(conn.LocalAddr().String()),
	}

	event := corev2.FixtureEvent("web-1", "keepalive")
	event.Entity.Labels = map[string]string{instanceIDKey: "i-1"}
	require.NoError(t, h.handle(event))
	assert.Equal(t, []string{"/api/core/v2/namespaces/default/entities/web-1"}, deleted)

	buf := make([]byte, 1024)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	var result models.SocketResult
	require.NoError(t, json.Unmarshal(buf[:n], &result))
	assert.Equal(t, "deleted entity web-1, instance i-1 is terminated", result.Output)
	assert.Equal(t, "web-1", result.Source)

	require.NoError(t, h.handle(corev2.FixtureEvent("web-2", "keepalive")))
	assert.Len(t, deleted, 1)
}

func TestDeleteEntityStatus(t *testing.T) {
	status := http.StatusNotFound
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer api.Close()

	h := &nodeHandler{http: api.Client(), apiURL: api.URL}
	assert.NoError(t, h.deleteEntity("default", "web-1"))

	status = http.StatusForbidden
	assert.EqualError(t, h.deleteEntity("default", "web-1"), "delete entity web-1: 403 Forbidden")
}
