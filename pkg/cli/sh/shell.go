package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/abiosoft/ishell"
	"github.com/caarlos0/env"
	"github.com/pkg/errors"

	"github.com/robotalks/rover/pkg/remote"
	"github.com/robotalks/rover/pkg/remote/mqtt"
	"github.com/robotalks/rover/pkg/telemetry"
)

// Config provides the options to reach rovers.
type Config struct {
	Ref remote.Ref

	// BrokerURL specifies the MQTT broker rovers are announced on.
	// e.g. mqtt://host:port/topic-prefix
	BrokerURL string
}

type environ struct {
	Type      string `env:"ROVER_TYPE"`
	ID        string `env:"ROVER_ID"`
	BrokerURL string `env:"ROVER_MQTT_URL" envDefault:"mqtt://localhost:1883/rovers/"`
}

var defaultConfig Config

func init() {
	var e environ
	if err := env.Parse(&e); err != nil {
		log.Fatalln(err)
	}
	defaultConfig.Ref = remote.Ref{Type: e.Type, ID: e.ID}
	defaultConfig.BrokerURL = e.BrokerURL

	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "rover-type", defaultConfig.Ref.Type, "Rover type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "rover-id", defaultConfig.Ref.ID, "Rover ID to connect.")
	flag.StringVar(&defaultConfig.BrokerURL, "mqtt", defaultConfig.BrokerURL, "MQTT broker URL.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// RoverConn is a connection to a rover.
type RoverConn interface {
	// Send sends raw command bytes.
	Send(data []byte) error
	// Watch streams status until the returned Closer is closed.
	Watch(fn func(*telemetry.Status)) io.Closer
	io.Closer
}

// Connector discovers and connects rovers.
type Connector interface {
	Discover(ctx context.Context) ([]remote.Info, error)
	Connect(ref remote.Ref) (RoverConn, error)
}

type mqttConnector struct {
	*mqtt.Connector
}

func (c mqttConnector) Connect(ref remote.Ref) (RoverConn, error) {
	conn, err := c.Connector.Connect(ref)
	if err != nil {
		return nil, err
	}
	return mqttConn{conn}, nil
}

type mqttConn struct {
	*mqtt.RoverConn
}

func (c mqttConn) Watch(fn func(*telemetry.Status)) io.Closer {
	return c.RoverConn.Watch(fn)
}

// NewConnector creates the MQTT Connector using current config.
func (c *Config) NewConnector() (Connector, error) {
	connector, err := mqtt.NewConnector(c.BrokerURL)
	if err != nil {
		return nil, err
	}
	return mqttConnector{connector}, nil
}

// Conn is the current connection.
type Conn struct {
	Ref  remote.Ref
	Conn RoverConn

	lock  sync.Mutex
	watch io.Closer
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell     *ishell.Shell
	Config    *Config
	Connector Connector
	Conn      *Conn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
	}
)

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints Info into friendly string for display.
func FormatInfo(info remote.Info) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	return w.String()
}

// FormatStatus prints Status into friendly string for display.
func FormatStatus(s *telemetry.Status) string {
	distance := fmt.Sprintf("%dcm", s.DistanceCm)
	if s.SensorFault {
		distance += " (fault)"
	}
	return fmt.Sprintf("#%d %s %s %s", s.Seq, s.ControlMode(), s.ActiveDirection(), distance)
}

func (s *Shell) connector() (Connector, error) {
	if s.Connector != nil {
		return s.Connector, nil
	}
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	s.Connector = connector
	return connector, nil
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverRovers discovers rovers.
func (s *Shell) DiscoverRovers(filter func(remote.Info) bool) ([]remote.Info, error) {
	connector, err := s.connector()
	if err != nil {
		return nil, err
	}
	infoList, err := connector.Discover(context.TODO())
	if err != nil {
		return nil, err
	}
	if filter != nil {
		items := make([]remote.Info, 0, len(infoList))
		for _, info := range infoList {
			if filter(info) {
				items = append(items, info)
			}
		}
		infoList = items
	}
	return infoList, nil
}

// SelectRover discovers rovers and asks for a choice.
func (s *Shell) SelectRover(filter func(remote.Info) bool) (*remote.Info, error) {
	infoList, err := s.DiscoverRovers(filter)
	if err != nil {
		return nil, err
	}
	if len(infoList) == 0 {
		return nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive || s.Shell == nil {
			return nil, fmt.Errorf("more than 1 rovers discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
		if index < 0 {
			return nil, nil
		}
	}
	return &infoList[index], nil
}

// Connect connects rover with ref.
func (s *Shell) Connect(ref remote.Ref) error {
	connector, err := s.connector()
	if err != nil {
		return err
	}
	conn, err := connector.Connect(ref)
	if err != nil {
		return errors.Wrapf(err, "connect %s", ref.Name())
	}
	s.Disconnect()
	s.Conn = &Conn{Ref: ref, Conn: conn}
	s.setPrompt(fmt.Sprintf("%s > ", ref.Name()))
	return nil
}

// Disconnect disconnects current rover.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Unwatch()
		s.Conn.Conn.Close()
		s.Conn = nil
		s.setPrompt(unconnectedPrompt)
	}
}

// Send sends a command line to the connected rover.
func (s *Shell) Send(line string) error {
	if s.Conn == nil {
		return fmt.Errorf("not connected")
	}
	return s.Conn.Conn.Send([]byte(line + "\n"))
}

// Watch starts streaming status to fn, replacing the previous watch.
func (c *Conn) Watch(fn func(*telemetry.Status)) {
	w := c.Conn.Watch(fn)
	c.lock.Lock()
	prev := c.watch
	c.watch = w
	c.lock.Unlock()
	if prev != nil {
		prev.Close()
	}
}

// Unwatch stops streaming status. It returns false if not watching.
func (c *Conn) Unwatch() bool {
	c.lock.Lock()
	w := c.watch
	c.watch = nil
	c.lock.Unlock()
	if w == nil {
		return false
	}
	w.Close()
	return true
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Ref.IsValid() {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Ref.Name())
		}
		if err := s.Connect(s.Config.Ref); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Ref.Name(), err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DiscoverCmd discovers rovers.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "ls"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.DiscoverRovers(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []remote.Info{}
				}
				out, err := json.Marshal(infoList)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No rovers found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a rover.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "TYPE ID",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ref remote.Ref
			if len(c.Args) >= 2 {
				ref.Type, ref.ID = c.Args[0], c.Args[1]
			} else {
				var filter func(remote.Info) bool
				if len(c.Args) == 1 {
					filter = func(info remote.Info) bool {
						return info.Ref.Type == c.Args[0]
					}
				}
				info, err := s.SelectRover(filter)
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no rover discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
				return
			}
		},
	}

	// DisconnectCmd disconnects current rover.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
