package sh

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rover/pkg/command"
	"github.com/robotalks/rover/pkg/remote"
	"github.com/robotalks/rover/pkg/telemetry"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type fakeConn struct {
	sent    []string
	watches int
	fn      func(*telemetry.Status)
	closed  bool
}

func (c *fakeConn) Send(data []byte) error {
	c.sent = append(c.sent, string(data))
	return nil
}

func (c *fakeConn) Watch(fn func(*telemetry.Status)) io.Closer {
	c.watches++
	c.fn = fn
	return closerFunc(func() error {
		c.watches--
		return nil
	})
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeConnector struct {
	infoList []remote.Info
	conns    map[string]*fakeConn
}

func (c *fakeConnector) Discover(ctx context.Context) ([]remote.Info, error) {
	return c.infoList, nil
}

func (c *fakeConnector) Connect(ref remote.Ref) (RoverConn, error) {
	conn, ok := c.conns[ref.Name()]
	if !ok {
		return nil, errors.New("not found")
	}
	return conn, nil
}

type shellTestEnv struct {
	t         *testing.T
	shell     *Shell
	connector *fakeConnector
}

func newShellTestEnv(t *testing.T) *shellTestEnv {
	connector := &fakeConnector{
		infoList: []remote.Info{
			{Ref: remote.Ref{Type: "rover", ID: "r1"}, Meta: remote.Meta{Description: "first"}},
			{Ref: remote.Ref{Type: "crawler", ID: "c1"}},
		},
		conns: map[string]*fakeConn{
			"rover/r1":   &fakeConn{},
			"crawler/c1": &fakeConn{},
		},
	}
	return &shellTestEnv{
		t:         t,
		connector: connector,
		shell:     &Shell{Config: NewConfig(), Connector: connector},
	}
}

func (e *shellTestEnv) conn(name string) *fakeConn {
	return e.connector.conns[name]
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "rover/r1: first", FormatInfo(remote.Info{
		Ref:  remote.Ref{Type: "rover", ID: "r1"},
		Meta: remote.Meta{Description: "first"},
	}))
	assert.Equal(t, "rover/r1", FormatInfo(remote.Info{Ref: remote.Ref{Type: "rover", ID: "r1"}}))
	assert.Equal(t, "#3 autopilot forward 42cm", FormatStatus(&telemetry.Status{
		Mode:       int32(command.AutoPilot),
		Direction:  int32(command.Forward),
		DistanceCm: 42,
		Seq:        3,
	}))
	assert.Equal(t, "#0 manual stop 400cm (fault)", FormatStatus(&telemetry.Status{
		Direction:   int32(command.Stop),
		DistanceCm:  400,
		SensorFault: true,
	}))
}

func TestDiscoverAndSelect(t *testing.T) {
	env := newShellTestEnv(t)
	infoList, err := env.shell.DiscoverRovers(nil)
	require.NoError(t, err)
	assert.Len(t, infoList, 2)

	info, err := env.shell.SelectRover(func(info remote.Info) bool {
		return info.Ref.Type == "crawler"
	})
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "crawler/c1", info.Ref.Name())

	info, err = env.shell.SelectRover(func(info remote.Info) bool { return false })
	assert.NoError(t, err)
	assert.Nil(t, info)

	_, err = env.shell.SelectRover(nil)
	assert.Error(t, err)
}

func TestConnectSendDisconnect(t *testing.T) {
	env := newShellTestEnv(t)
	assert.Error(t, env.shell.Send("f"))
	assert.Error(t, env.shell.Connect(remote.Ref{Type: "rover", ID: "none"}))
	assert.Nil(t, env.shell.Conn)

	require.NoError(t, env.shell.Connect(remote.Ref{Type: "rover", ID: "r1"}))
	require.NoError(t, env.shell.Send(command.TokenForward))
	require.NoError(t, env.shell.Send(command.TokenAutoPilot))
	r1 := env.conn("rover/r1")
	assert.Equal(t, []string{"f\n", "a\n"}, r1.sent)

	require.NoError(t, env.shell.Connect(remote.Ref{Type: "crawler", ID: "c1"}))
	assert.True(t, r1.closed)
	assert.Equal(t, "crawler/c1", env.shell.Conn.Ref.Name())

	env.shell.Disconnect()
	assert.True(t, env.conn("crawler/c1").closed)
	assert.Nil(t, env.shell.Conn)
}

func TestWatch(t *testing.T) {
	env := newShellTestEnv(t)
	require.NoError(t, env.shell.Connect(remote.Ref{Type: "rover", ID: "r1"}))
	r1 := env.conn("rover/r1")

	var received []uint64
	env.shell.Conn.Watch(func(s *telemetry.Status) { received = append(received, s.Seq) })
	env.shell.Conn.Watch(func(s *telemetry.Status) { received = append(received, s.Seq*10) })
	assert.Equal(t, 1, r1.watches)
	r1.fn(&telemetry.Status{Seq: 2})
	assert.Equal(t, []uint64{20}, received)

	assert.True(t, env.shell.Conn.Unwatch())
	assert.False(t, env.shell.Conn.Unwatch())
	assert.Equal(t, 0, r1.watches)

	env.shell.Conn.Watch(func(*telemetry.Status) {})
	env.shell.Disconnect()
	assert.Equal(t, 0, r1.watches)
}
