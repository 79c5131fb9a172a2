package metrics

import (
	"bufio"
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/sensu/sensu-aws-plugins/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Unix(1577836800, 0)

func TestEmitterWrite(t *testing.T) {
	e := NewEmitter("sensu.aws.sqs")
	e.Now = func() time.Time { return now }

	e.Add(42, time.Time{}, "jobs queue", "ApproximateNumberOfMessages")
	e.Add(0.25, now.Add(-time.Minute), "jobs", "Latency")

	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf))
	assert.Equal(t,
		"sensu.aws.sqs.jobs_queue.ApproximateNumberOfMessages 42 1577836800\n"+
			"sensu.aws.sqs.jobs.Latency 0.25 1577836740\n",
		buf.String())
}

func TestEmitterPath(t *testing.T) {
	assert.Equal(t, "a.b", NewEmitter("").Path("a", "", "b"))
	assert.Equal(t, "aws.AWS_EC2.count", NewEmitter("aws").Path("AWS/EC2", "count"))
}

func TestFlagsEmit(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		received <- line
	}()

	var buf bytes.Buffer
	old := utils.Output
	utils.Output = &buf
	defer func() { utils.Output = old }()

	f := Flags{Scheme: "aws", GraphiteHost: "127.0.0.1", GraphitePort: listener.Addr().(*net.TCPAddr).Port}
	e := f.NewEmitter()
	e.Add(3, now, "ec2", "count")
	require.NoError(t, f.Emit(e))

	assert.Equal(t, "aws.ec2.count 3 1577836800\n", buf.String())
	select {
	case line := <-received:
		assert.Contains(t, line, "aws.ec2.count 3 1577836800")
	case <-time.After(5 * time.Second):
		t.Fatal("carbon listener received nothing")
	}
}
