package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/pkg/types"
)

const DefaultEndpoint = "ipc:///tmp/pose_sidecar.sock"

// ZMQClient sends frames to a pose model sidecar over a REQ socket. A
// timed-out or failed exchange leaves a REQ socket unusable, so the socket
// is discarded and reconnected on the next call.
type ZMQClient struct {
	endpoint string
	timeout  time.Duration

	mu   sync.Mutex
	sock *zmq4.Socket
}

// NewZMQClient returns a client for endpoint. Nothing is dialed until the
// first Infer call.
func NewZMQClient(endpoint string, timeout time.Duration) *ZMQClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ZMQClient{endpoint: endpoint, timeout: timeout}
}

func (c *ZMQClient) connect() error {
	sock, err := zmq4.NewSocket(zmq4.REQ)
	if err != nil {
		return err
	}
	for _, set := range []func(time.Duration) error{sock.SetRcvtimeo, sock.SetSndtimeo} {
		if err := set(c.timeout); err != nil {
			_ = sock.Close()
			return err
		}
	}
	if err := sock.SetLinger(0); err != nil {
		_ = sock.Close()
		return err
	}
	if err := sock.Connect(c.endpoint); err != nil {
		_ = sock.Close()
		return err
	}
	c.sock = sock
	logger.Debug("Inference", "Connected to pose sidecar at %s", c.endpoint)
	return nil
}

func (c *ZMQClient) reset() {
	if c.sock != nil {
		_ = c.sock.Close()
		c.sock = nil
	}
}

// Infer implements Estimator
func (c *ZMQClient) Infer(ctx context.Context, frame *types.Frame) (*pose.Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := encodeRequest(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sock == nil {
		if err := c.connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
		}
	}
	if _, err := c.sock.SendBytes(req, 0); err != nil {
		c.reset()
		return nil, fmt.Errorf("send failed: %w", err)
	}
	reply, err := c.sock.RecvBytes(0)
	if err != nil {
		c.reset()
		return nil, fmt.Errorf("receive failed: %w", err)
	}
	return decodeReply(reply, frame)
}

// Close releases the socket
func (c *ZMQClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	return nil
}
