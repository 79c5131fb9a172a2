package sensu_client

import (
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sensu/sensu-aws-plugins/logger"
	"github.com/sensu/sensu-aws-plugins/models"
	"go.uber.org/zap"
)

const DefaultAddress = "127.0.0.1:3030"

// Socket writes check results to the local client socket.
type Socket struct {
	Address string
	Timeout time.Duration
}

func NewSocket(address string) *Socket {
	if address == "" {
		address = DefaultAddress
	}
	return &Socket{Address: address, Timeout: 5 * time.Second}
}

func (s *Socket) Send(result models.SocketResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "encode socket result")
	}

	conn, err := net.DialTimeout("udp", s.Address, s.Timeout)
	if err != nil {
		return errors.Wrapf(err, "dial client socket %s", s.Address)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(s.Timeout)); err != nil {
		return errors.WithStack(err)
	}
	if _, err := conn.Write(payload); err != nil {
		return errors.Wrapf(err, "write to client socket %s", s.Address)
	}
	logger.Get().Debug("sent socket result", zap.String("check", result.Name), zap.Int("status", result.Status))
	return nil
}
