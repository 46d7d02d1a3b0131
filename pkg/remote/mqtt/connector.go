package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/rover/pkg/remote"
	"github.com/robotalks/rover/pkg/telemetry"
)

// DefaultDiscoverTimeout defines the default time to collect retained
// meta messages.
const DefaultDiscoverTimeout = 500 * time.Millisecond

const publishTimeout = time.Second

// Connector is the operator side of MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	brokerURL string
}

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	if _, _, err := ClientOptionsFromURL(brokerURL); err != nil {
		return nil, err
	}
	return &Connector{DiscoverTimeout: DefaultDiscoverTimeout, brokerURL: brokerURL}, nil
}

func (c *Connector) connect() (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(c.brokerURL)
	if err != nil {
		return nil, err
	}
	q := NewQueue(opts, topicPrefix)
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(err, "MQTT connect")
	}
	return q, nil
}

// Discover lists rovers with a retained meta.
func (c *Connector) Discover(ctx context.Context) ([]remote.Info, error) {
	q, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer q.Close()
	return discover(ctx, q, c.DiscoverTimeout)
}

func discover(ctx context.Context, q *Queue, timeout time.Duration) (res []remote.Info, err error) {
	resCh := make(chan remote.Info, 16)
	sub := q.Sub("+/+/"+remote.TopicMeta, func(topic string, payload []byte) {
		items := strings.Split(topic, "/")
		if len(items) != 3 || len(payload) == 0 {
			return
		}
		info := remote.Info{Ref: remote.Ref{Type: items[0], ID: items[1]}}
		if err := json.Unmarshal(payload, &info.Meta); err != nil {
			glog.Warningf("invalid meta of %s: %v", info.Ref.Name(), err)
		}
		select {
		case resCh <- info:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timer.C:
			return res, nil
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}

// Connect connects to a rover.
func (c *Connector) Connect(ref remote.Ref) (*RoverConn, error) {
	if !ref.IsValid() {
		return nil, errors.Errorf("invalid rover reference %q", ref.Name())
	}
	q, err := c.connect()
	if err != nil {
		return nil, err
	}
	return &RoverConn{Queue: q, Ref: ref}, nil
}

// RoverConn is a connection to a rover.
type RoverConn struct {
	Queue *Queue
	Ref   remote.Ref
}

// Send sends command bytes, e.g. "f\n".
func (c *RoverConn) Send(data []byte) error {
	token := c.Queue.PubWith(c.Ref.Topic(remote.TopicCmd), data, 1, false)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("send timeout")
	}
	return token.Error()
}

// Watch calls fn with each status until the returned Subscription is
// closed.
func (c *RoverConn) Watch(fn func(*telemetry.Status)) *Subscription {
	return c.Queue.Sub(c.Ref.Topic(remote.TopicStatus), func(topic string, payload []byte) {
		s, err := telemetry.Decode(payload)
		if err != nil {
			glog.Warningf("invalid status on %s: %v", topic, err)
			return
		}
		fn(s)
	})
}

// Close implements io.Closer.
func (c *RoverConn) Close() error {
	return c.Queue.Close()
}
