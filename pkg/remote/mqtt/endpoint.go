package mqtt

import (
	"context"
	"encoding/json"
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/rover/pkg/remote"
	"github.com/robotalks/rover/pkg/telemetry"
)

// Endpoint is the rover side of MQTT: it announces the rover, feeds
// command payloads to a writer and publishes status.
type Endpoint struct {
	Queue *Queue
	Info  remote.Info
	// Commands receives the payload of each command message.
	Commands io.Writer

	meta []byte
}

// NewEndpoint creates an Endpoint. The will clears the retained meta
// so the rover disappears from discovery when it goes offline.
func NewEndpoint(brokerURL string, info remote.Info, commands io.Writer) (*Endpoint, error) {
	if !info.Ref.IsValid() {
		return nil, errors.Errorf("invalid rover reference %q", info.Ref.Name())
	}
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, errors.Wrap(err, "encode meta")
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+info.Ref.Topic(remote.TopicMeta), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("rover:" + info.Ref.Name())
	}
	return newEndpoint(NewQueue(opts, topicPrefix), info, meta, commands), nil
}

func newEndpoint(q *Queue, info remote.Info, meta []byte, commands io.Writer) *Endpoint {
	e := &Endpoint{Queue: q, Info: info, Commands: commands, meta: meta}
	q.OnConnect = e.announce
	return e
}

// Name implements framework.Named.
func (e *Endpoint) Name() string {
	return "mqtt"
}

// Run implements framework.Runnable. The client reconnects on its own,
// and an initial connect failure is returned.
func (e *Endpoint) Run(ctx context.Context) error {
	sub := e.Queue.Sub(e.Info.Ref.Topic(remote.TopicCmd), e.handleCmd)
	token := e.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "MQTT connect")
	}
	<-ctx.Done()
	sub.Close()
	e.Queue.PubWith(e.Info.Ref.Topic(remote.TopicMeta), nil, 1, true).Wait()
	e.Queue.Close()
	return ctx.Err()
}

func (e *Endpoint) announce(q *Queue) {
	q.PubWith(e.Info.Ref.Topic(remote.TopicMeta), e.meta, 1, true)
}

func (e *Endpoint) handleCmd(_ string, payload []byte) {
	e.Commands.Write(payload)
}

// SendStatus implements telemetry.Sink.
func (e *Endpoint) SendStatus(s *telemetry.Status) error {
	data, err := telemetry.Encode(s)
	if err != nil {
		return err
	}
	token := e.Queue.Pub(e.Info.Ref.Topic(remote.TopicStatus), data)
	if !token.WaitTimeout(publishTimeout) {
		glog.V(2).Info("status publish pending")
		return nil
	}
	return token.Error()
}
