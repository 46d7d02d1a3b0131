package rover

import (
	"context"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/framework"
)

// Greeting is written once when a link starts.
const Greeting = "Hello from Robot\r\n"

// ReadErrorBackoff is the pause after a failed read.
var ReadErrorBackoff = 100 * time.Millisecond

// Link pumps bytes from a connection into a Commander.
type Link struct {
	Conn      io.ReadWriter
	Commander *Commander
}

// Name implements framework.Named.
func (l *Link) Name() string {
	return l.Commander.Name()
}

// Run implements framework.Runnable. It returns nil when the connection
// reaches EOF. Other read errors are logged and reading continues.
// If Conn is an io.Closer, it's closed when ctx is done.
func (l *Link) Run(ctx context.Context) error {
	if closer, ok := l.Conn.(io.Closer); ok {
		return framework.RunWithContextCloser(ctx, closer, func() error {
			return l.run(ctx)
		})
	}
	return l.run(ctx)
}

func (l *Link) run(ctx context.Context) error {
	if _, err := io.WriteString(l.Conn, Greeting); err != nil {
		glog.Errorf("%s: greeting: %v", l.Name(), err)
	}
	buf := make([]byte, 64)
	clk := clock.New()
	for ctx.Err() == nil {
		n, err := l.Conn.Read(buf)
		if n > 0 {
			l.Commander.Write(buf[:n])
		}
		switch {
		case err == io.EOF:
			glog.Infof("%s: closed", l.Name())
			return nil
		case err != nil:
			if ctx.Err() != nil {
				break
			}
			glog.Errorf("%s: read: %v", l.Name(), err)
			if err := framework.Sleep(ctx, clk, ReadErrorBackoff); err != nil {
				return err
			}
		}
	}
	return ctx.Err()
}
