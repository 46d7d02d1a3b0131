package rover

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rover/pkg/bus"
	"github.com/robotalks/rover/pkg/chassis"
	"github.com/robotalks/rover/pkg/command"
	"github.com/robotalks/rover/pkg/hal"
	"github.com/robotalks/rover/pkg/hal/fake"
	"github.com/robotalks/rover/pkg/ranger"
)

const eventually = time.Second

// waitFor polls cond until it holds or eventually expires.
func waitFor(t *testing.T, cond func() bool, msgAndArgs ...interface{}) {
	t.Helper()
	deadline := time.Now().Add(eventually)
	for !cond() {
		if time.Now().After(deadline) {
			require.Fail(t, "condition not met in time", msgAndArgs...)
		}
		time.Sleep(time.Millisecond)
	}
}

type publishRecorder struct {
	lock sync.Mutex
	dirs []command.Direction
}

func (r *publishRecorder) Publish(dir command.Direction) {
	r.lock.Lock()
	r.dirs = append(r.dirs, dir)
	r.lock.Unlock()
}

func (r *publishRecorder) published() []command.Direction {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]command.Direction(nil), r.dirs...)
}

type modeRecorder struct {
	lock  sync.Mutex
	modes []command.Mode
	dirs  []command.Direction
}

func (r *modeRecorder) ModeChanged(m command.Mode) {
	r.lock.Lock()
	r.modes = append(r.modes, m)
	r.lock.Unlock()
}

func (r *modeRecorder) DirectionChanged(d command.Direction) {
	r.lock.Lock()
	r.dirs = append(r.dirs, d)
	r.lock.Unlock()
}

func TestCommander(t *testing.T) {
	var pub publishRecorder
	obs := &modeRecorder{}
	state := &State{Observer: obs}
	c := NewCommander("test", state, &pub)

	c.Write([]byte("a\r\n"))
	assert.Equal(t, command.AutoPilot, state.Mode())
	assert.Empty(t, pub.published())

	c.Write([]byte("x\n"))
	assert.Equal(t, command.AutoPilot, state.Mode(), "unknown leaves mode")

	c.Write([]byte("f"))
	assert.Empty(t, pub.published(), "no terminator yet")
	c.Write([]byte("\nl\ns\n"))
	assert.Equal(t, []command.Direction{command.Forward, command.Left, command.Stop}, pub.published())
	assert.Equal(t, command.Manual, state.Mode())
	assert.Equal(t, []command.Mode{command.AutoPilot, command.Manual}, obs.modes)
}

func TestStateObserver(t *testing.T) {
	obs := &modeRecorder{}
	state := &State{Observer: obs}
	state.SetActive(command.Forward)
	state.SetActive(command.Forward)
	state.SetActive(command.Stop)
	assert.Equal(t, command.Stop, state.Active())
	assert.Equal(t, []command.Direction{command.Forward, command.Stop}, obs.dirs)
	assert.False(t, state.SetMode(command.Manual))
	assert.Empty(t, obs.modes)
}

// pipeConn is the rover end of an in-memory link.
type pipeConn struct {
	io.Reader
	out bytes.Buffer
	mu  sync.Mutex
}

func (c *pipeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *pipeConn) written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

func TestLinkGreetsAndEndsOnEOF(t *testing.T) {
	var pub publishRecorder
	conn := &pipeConn{Reader: bytes.NewBufferString("b\nzz\nr\n")}
	link := &Link{Conn: conn, Commander: NewCommander("serial", &State{}, &pub)}
	require.NoError(t, link.Run(context.Background()))
	assert.Equal(t, Greeting, conn.written())
	assert.Equal(t, []command.Direction{command.Back, command.Right}, pub.published())
}

// scriptedReader returns each chunk in turn, then EOF.
type scriptedReader struct {
	chunks []string
	errs   []error
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	err := r.errs[0]
	r.chunks, r.errs = r.chunks[1:], r.errs[1:]
	return n, err
}

func TestLinkContinuesAfterReadError(t *testing.T) {
	backoff := ReadErrorBackoff
	ReadErrorBackoff = time.Millisecond
	defer func() { ReadErrorBackoff = backoff }()

	var pub publishRecorder
	conn := &pipeConn{Reader: &scriptedReader{
		chunks: []string{"f", "", "\nl\n"},
		errs:   []error{nil, errors.New("framing error"), nil},
	}}
	link := &Link{Conn: conn, Commander: NewCommander("serial", &State{}, &pub)}
	require.NoError(t, link.Run(context.Background()))
	assert.Equal(t, []command.Direction{command.Forward, command.Left}, pub.published())
}

type roverTestEnv struct {
	t      *testing.T
	pwm    *fake.PWM
	left   *fake.Output
	right  *fake.Output
	rover  *Rover
	cancel func()
	errCh  chan error
}

func newRoverTestEnv(t *testing.T) *roverTestEnv {
	env := &roverTestEnv{
		t:     t,
		pwm:   fake.NewPWM(72000000, hal.DefaultPWMFrequency),
		left:  fake.NewOutput(hal.Low),
		right: fake.NewOutput(hal.Low),
		errCh: make(chan error, 1),
	}
	opts := DefaultOptions()
	opts.Bus.MaxPublishers = 0
	// The echo never arrives, so only injected samples reach the autopilot.
	opts.Ranger = ranger.Config{EchoTimeout: time.Hour, Interval: time.Hour}
	opts.Retry = 10 * time.Millisecond
	opts.Cooldown = 10 * time.Millisecond
	rv, err := New(Hardware{
		PWM:     env.pwm,
		Axles:   []chassis.Axle{{Left: env.left, Right: env.right, Channel: 1}},
		Trigger: fake.NewOutput(hal.Low),
		Echo:    fake.NewEdgeInput(4),
	}, opts)
	require.NoError(t, err)
	env.rover = rv
	return env
}

func (env *roverTestEnv) start() {
	ctx, cancel := context.WithCancel(context.Background())
	env.cancel = cancel
	go func() { env.errCh <- env.rover.Run(ctx) }()
}

func (env *roverTestEnv) stop() {
	env.cancel()
	select {
	case err := <-env.errCh:
		assert.NoError(env.t, err)
	case <-time.After(eventually):
		env.t.Fatal("rover didn't stop")
	}
}

func (env *roverTestEnv) waitActive(dir command.Direction) {
	waitFor(env.t, func() bool {
		return env.rover.State.Active() == dir
	}, "expect active %s", dir)
}

func TestNewStopsChassis(t *testing.T) {
	env := newRoverTestEnv(t)
	state := env.rover.Chassis.State()
	assert.False(t, state.Moving())
	assert.False(t, env.pwm.Channel(1).Enabled)
}

func TestNewWithoutAxles(t *testing.T) {
	_, err := New(Hardware{PWM: fake.NewPWM(72000000, 2000)}, DefaultOptions())
	assert.Error(t, err)
}

func TestRoverManualAndAutopilot(t *testing.T) {
	env := newRoverTestEnv(t)
	remote, err := env.rover.NewCommander("remote")
	require.NoError(t, err)
	env.start()

	remote.Write([]byte("f\n"))
	env.waitActive(command.Forward)
	assert.True(t, env.rover.Chassis.State().Moving())
	assert.Equal(t, hal.High, env.left.Level())
	assert.Equal(t, hal.Low, env.right.Level())

	remote.Write([]byte("a\n"))
	assert.Equal(t, command.AutoPilot, env.rover.State.Mode())
	env.rover.Ranger.Samples.Publish(ranger.Sample{Distance: 20})
	env.waitActive(command.Stop)
	assert.False(t, env.rover.Chassis.State().Moving())

	env.rover.Ranger.Samples.Publish(ranger.Sample{Distance: 20})
	env.waitActive(command.Left)

	remote.Write([]byte("s\n"))
	env.waitActive(command.Stop)
	assert.Equal(t, command.Manual, env.rover.State.Mode())

	env.stop()
	assert.False(t, env.rover.Chassis.State().Moving())
	status := env.rover.Reporter.Status()
	assert.Equal(t, command.Manual, status.ControlMode())
}

func TestRoverPublisherLimit(t *testing.T) {
	env := newRoverTestEnv(t)
	env.rover.Bus = bus.New(bus.Options{Capacity: 1, MaxPublishers: 1})
	_, err := env.rover.NewCommander("one")
	require.NoError(t, err)
	_, err = env.rover.NewCommander("two")
	assert.Equal(t, bus.ErrTooManyPublishers, errors.Cause(err))
}
