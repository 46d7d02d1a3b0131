package chassis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rover/pkg/command"
	"github.com/robotalks/rover/pkg/hal"
	"github.com/robotalks/rover/pkg/hal/fake"
)

type chassisTestEnv struct {
	t     *testing.T
	pwm   *fake.PWM
	pins  []*fake.Output
	axles []Axle
	c     *Chassis
}

func newChassisTestEnv(t *testing.T, numAxles int) *chassisTestEnv {
	env := &chassisTestEnv{t: t, pwm: fake.NewPWM(72000000, hal.DefaultPWMFrequency)}
	for i := 0; i < numAxles; i++ {
		left, right := fake.NewOutput(hal.Low), fake.NewOutput(hal.Low)
		env.pins = append(env.pins, left, right)
		env.axles = append(env.axles, Axle{Left: left, Right: right, Channel: hal.Channel(i + 1)})
	}
	env.c = New(env.pwm, env.axles...)
	return env
}

func (env *chassisTestEnv) assertChannels(duty uint32, enabled bool) {
	for _, axle := range env.axles {
		ch := env.pwm.Channel(axle.Channel)
		assert.Equal(env.t, duty, ch.Duty, "channel %d duty", axle.Channel)
		assert.Equal(env.t, enabled, ch.Enabled, "channel %d enabled", axle.Channel)
		assert.Equal(env.t, hal.ActiveHigh, ch.Polarity)
	}
}

func (env *chassisTestEnv) assertPins(left, right hal.Level) {
	for i := 0; i < len(env.pins); i += 2 {
		assert.Equal(env.t, left, env.pins[i].Level(), "left pin of axle %d", i/2)
		assert.Equal(env.t, right, env.pins[i+1].Level(), "right pin of axle %d", i/2)
	}
}

func TestNewBringUp(t *testing.T) {
	env := newChassisTestEnv(t, 1)
	require.Equal(t, uint32(36000), env.c.MaxDuty())
	assert.Equal(t, uint32(35), env.pwm.DeadTime())
	env.assertChannels(0, true)
	env.assertPins(hal.High, hal.Low)

	env.c.Stop()
	env.assertChannels(0, false)
	assert.False(t, env.c.State().Moving())
}

func TestDirections(t *testing.T) {
	tests := []struct {
		dir         command.Direction
		left, right hal.Level
	}{
		{command.Forward, hal.High, hal.Low},
		{command.Back, hal.Low, hal.High},
		{command.Left, hal.Low, hal.Low},
		{command.Right, hal.High, hal.High},
	}
	for _, test := range tests {
		t.Run(test.dir.String(), func(t *testing.T) {
			env := newChassisTestEnv(t, 2)
			env.c.Stop()
			require.True(t, env.c.Apply(test.dir))
			env.assertPins(test.left, test.right)
			env.assertChannels(env.c.MaxDuty()/2, true)
			state := env.c.State()
			assert.Equal(t, test.dir, state.Direction)
			assert.True(t, state.Moving())
		})
	}
}

func TestForwardThenStop(t *testing.T) {
	env := newChassisTestEnv(t, 1)
	env.c.Stop()
	env.c.Forward()
	env.c.Stop()
	env.assertChannels(0, false)
	// Stop leaves the pins as they were.
	env.assertPins(hal.High, hal.Low)
}

func TestStopIdempotent(t *testing.T) {
	once := newChassisTestEnv(t, 1)
	once.c.Back()
	once.c.Stop()

	twice := newChassisTestEnv(t, 1)
	twice.c.Back()
	twice.c.Stop()
	twice.c.Stop()

	assert.Equal(t, once.c.State(), twice.c.State())
	assert.Equal(t, once.pwm.Channel(1), twice.pwm.Channel(1))
	twice.assertPins(hal.Low, hal.High)
}

func TestApplyUnknown(t *testing.T) {
	env := newChassisTestEnv(t, 1)
	env.c.Stop()
	writes := env.pwm.Writes()
	assert.False(t, env.c.Apply(command.Unknown))
	assert.Equal(t, writes, env.pwm.Writes())
	assert.Len(t, env.pins[0].History(), 1)
}

func TestStartWithDutyClamped(t *testing.T) {
	env := newChassisTestEnv(t, 1)
	env.c.StartWithDuty(env.c.MaxDuty() + 100)
	env.assertChannels(env.c.MaxDuty(), true)
	env.c.StartWithDuty(1000)
	env.assertChannels(1000, true)
}
