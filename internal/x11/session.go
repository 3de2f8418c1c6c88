package x11

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"

	"github.com/nerrad567/vibrant/internal/display"
)

// Minimum RandR version: GetScreenResourcesCurrent needs 1.3.
const (
	randrMajor = 1
	randrMinor = 3
)

// Logger is the logging interface used by the x11 package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

var _ display.Session = (*Session)(nil)

// Session is an X11 connection with RandR initialised.
type Session struct {
	conn   *xgb.Conn
	root   xproto.Window
	props  *Properties
	nv     *NVControl
	logger Logger
}

// Dial opens a Session without logging. It satisfies display.Dialer.
func Dial(target string) (display.Session, error) {
	return NewDialer(nil)(target)
}

// NewDialer returns a display.Dialer that logs through logger.
func NewDialer(logger Logger) display.Dialer {
	if logger == nil {
		logger = noopLogger{}
	}
	return func(target string) (display.Session, error) {
		s, err := connect(target, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// connect opens the X connection, checks RandR and detects NV-CONTROL.
func connect(target string, logger Logger) (*Session, error) {
	conn, err := xgb.NewConnDisplay(target)
	if err != nil {
		return nil, fmt.Errorf("%w: opening display %q: %w", display.ErrConnectionFailed, target, err)
	}

	if err := randr.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: RandR extension: %w", display.ErrConnectionFailed, err)
	}

	version, err := randr.QueryVersion(conn, randrMajor, randrMinor).Reply()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: querying RandR version: %w", display.ErrConnectionFailed, err)
	}
	if version.MajorVersion < randrMajor || (version.MajorVersion == randrMajor && version.MinorVersion < randrMinor) {
		conn.Close()
		return nil, fmt.Errorf("%w: RandR %d.%d is older than %d.%d", display.ErrConnectionFailed,
			version.MajorVersion, version.MinorVersion, randrMajor, randrMinor)
	}

	setup := xproto.Setup(conn)
	s := &Session{
		conn:   conn,
		root:   setup.DefaultScreen(conn).Root,
		props:  newProperties(conn),
		logger: logger,
	}

	nv, err := detectNVControl(conn, len(setup.Roots))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: probing NV-CONTROL: %w", display.ErrConnectionFailed, err)
	}
	if nv != nil {
		logger.Debug("NV-CONTROL extension present", "opcode", nv.opcode)
		s.nv = nv
	}

	logger.Info("connected to display", "target", target,
		"randr", fmt.Sprintf("%d.%d", version.MajorVersion, version.MinorVersion))
	return s, nil
}

// Outputs lists the outputs of the default screen in server order.
func (s *Session) Outputs() ([]display.Output, error) {
	res, err := randr.GetScreenResourcesCurrent(s.conn, s.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("%w: screen resources: %w", display.ErrTransport, err)
	}

	outputs := make([]display.Output, 0, len(res.Outputs))
	for _, id := range res.Outputs {
		info, err := randr.GetOutputInfo(s.conn, id, res.ConfigTimestamp).Reply()
		if err != nil {
			return nil, fmt.Errorf("%w: output %d info: %w", display.ErrTransport, id, err)
		}
		outputs = append(outputs, display.Output{
			ID:        display.OutputID(id),
			Name:      string(info.Name),
			Connected: info.Connection == randr.ConnectionConnected,
		})
	}
	return outputs, nil
}

// Properties returns the RandR output property transport.
func (s *Session) Properties() display.PropertyTransport {
	return s.props
}

// Vendor returns the NV-CONTROL adapter, or nil when the extension is absent.
func (s *Session) Vendor() display.VendorAttributes {
	if s.nv == nil {
		return nil
	}
	return s.nv
}

// Close closes the X connection.
func (s *Session) Close() error {
	s.conn.Close()
	s.logger.Debug("display connection closed")
	return nil
}
