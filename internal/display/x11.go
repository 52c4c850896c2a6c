package display

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/RenderWatch/internal/config"
	"github.com/bryanchriswhite/RenderWatch/internal/logger"
)

const (
	initialWidth  = 320
	initialHeight = 240
)

// X11Surface is the persistent watch window. It is created once, stays mapped
// for the life of the process and always shows the last frame written to it.
type X11Surface struct {
	conn       *xgb.Conn
	screen     *xproto.ScreenInfo
	window     xproto.Window
	gc         xproto.Gcontext
	title      string
	topmost    bool
	width      int
	height     int
	running    bool
	mu         sync.RWMutex
	lastFrame  *image.RGBA
	keymap     keymap
	deleteAtom xproto.Atom
	closed     chan struct{}
}

// NewX11Surface connects to the X server named by $DISPLAY
func NewX11Surface(cfg config.WindowConfig) (*X11Surface, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Surface{
		conn:    conn,
		screen:  screen,
		title:   cfg.Title,
		topmost: cfg.Topmost,
		width:   initialWidth,
		height:  initialHeight,
		closed:  make(chan struct{}),
	}, nil
}

// Name returns the surface name
func (s *X11Surface) Name() string {
	return "X11 window"
}

// Start creates and shows the watch window
func (s *X11Surface) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("display already running")
	}
	log := logger.WithComponent("display")

	windowID, err := xproto.NewWindowId(s.conn)
	if err != nil {
		return fmt.Errorf("failed to create window ID: %w", err)
	}
	s.window = windowID

	mask := uint32(xproto.CwBackPixel | xproto.CwEventMask)
	values := []uint32{
		0x000000, // Black background
		xproto.EventMaskExposure | xproto.EventMaskStructureNotify | xproto.EventMaskKeyPress,
	}

	err = xproto.CreateWindowChecked(
		s.conn,
		s.screen.RootDepth,
		s.window,
		s.screen.Root,
		0, 0,
		uint16(s.width), uint16(s.height),
		0,
		xproto.WindowClassInputOutput,
		s.screen.RootVisual,
		mask,
		values,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	if err := s.setWindowTitle(s.title); err != nil {
		log.Warn().Err(err).Msg("Failed to set window title")
	}
	if err := s.setWindowClass("renderwatch", "RenderWatch"); err != nil {
		log.Warn().Err(err).Msg("Failed to set window class")
	}
	if err := s.setDeleteProtocol(); err != nil {
		log.Warn().Err(err).Msg("Failed to register WM_DELETE_WINDOW")
	}
	// _NET_WM_STATE must be set before mapping to be honored as an initial state
	if s.topmost {
		if err := s.setAbove(); err != nil {
			log.Warn().Err(err).Msg("Failed to keep window on top")
		}
	}

	if err := xproto.MapWindowChecked(s.conn, s.window).Check(); err != nil {
		return fmt.Errorf("failed to map window: %w", err)
	}

	gc, err := xproto.NewGcontextId(s.conn)
	if err != nil {
		return fmt.Errorf("failed to create graphics context: %w", err)
	}
	s.gc = gc
	if err := xproto.CreateGCChecked(s.conn, s.gc, xproto.Drawable(s.window), 0, nil).Check(); err != nil {
		return fmt.Errorf("failed to create GC: %w", err)
	}

	km, err := loadKeymap(s.conn)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load keyboard mapping, keys will be ignored")
	}
	s.keymap = km

	s.conn.Sync()
	s.running = true

	log.Info().
		Str("title", s.title).
		Bool("topmost", s.topmost).
		Uint32("window_id", uint32(s.window)).
		Msg("Watch window created")
	return nil
}

// Stop destroys the window and closes the connection
func (s *X11Surface) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.gc != 0 {
		xproto.FreeGC(s.conn, s.gc)
	}
	if s.window != 0 {
		xproto.DestroyWindow(s.conn, s.window)
		s.conn.Sync()
	}
	s.conn.Close()

	s.running = false
	s.markClosed()
	logger.WithComponent("display").Info().Msg("Watch window closed")
	return nil
}

// IsRunning returns whether the window exists
func (s *X11Surface) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Done is closed when the user closes the window
func (s *X11Surface) Done() <-chan struct{} {
	return s.closed
}

func (s *X11Surface) markClosed() {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
}

// WriteFrame replaces the window content with frame, resizing the window to fit
func (s *X11Surface) WriteFrame(frame *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("display not running")
	}

	size := frame.Bounds().Size()
	if size.X != s.width || size.Y != s.height {
		err := xproto.ConfigureWindowChecked(
			s.conn,
			s.window,
			xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(size.X), uint32(size.Y)},
		).Check()
		if err != nil {
			return fmt.Errorf("failed to resize window: %w", err)
		}
		s.width, s.height = size.X, size.Y
	}

	if err := s.putImage(frame); err != nil {
		return err
	}
	s.lastFrame = frame
	return nil
}

// PollKeys drains pending window events and returns the characters typed
// since the last call. Expose events repaint the last frame.
func (s *X11Surface) PollKeys() []rune {
	if !s.IsRunning() {
		return nil
	}

	var keys []rune
	for {
		ev, err := s.conn.PollForEvent()
		if err != nil {
			logger.WithComponent("display").Debug().Err(err).Msg("X11 event error")
			continue
		}
		if ev == nil {
			return keys
		}

		switch e := ev.(type) {
		case xproto.KeyPressEvent:
			if r, ok := s.keymap.rune(e.Detail, e.State); ok {
				keys = append(keys, r)
			}
		case xproto.ExposeEvent:
			if e.Count == 0 {
				s.redraw()
			}
		case xproto.ClientMessageEvent:
			if s.deleteAtom != 0 && xproto.Atom(e.Data.Data32[0]) == s.deleteAtom {
				logger.WithComponent("display").Info().Msg("Watch window closed by user")
				s.markClosed()
			}
		case xproto.DestroyNotifyEvent:
			s.markClosed()
		}
	}
}

func (s *X11Surface) redraw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.lastFrame != nil {
		if err := s.putImage(s.lastFrame); err != nil {
			logger.WithComponent("display").Debug().Err(err).Msg("Failed to repaint window")
		}
	}
}

// putImage sends a frame to the window. Large frames are split into horizontal
// bands so each PutImage request fits the server's maximum request length.
func (s *X11Surface) putImage(img *image.RGBA) error {
	depth := s.screen.RootDepth
	setup := xproto.Setup(s.conn)

	var bitsPerPixel, scanlinePad uint8
	for _, format := range setup.PixmapFormats {
		if format.Depth == depth {
			bitsPerPixel = format.BitsPerPixel
			scanlinePad = format.ScanlinePad
			break
		}
	}
	if bitsPerPixel == 0 {
		return fmt.Errorf("no format found for depth %d", depth)
	}

	data, stride, err := encodeZPixmap(img, int(bitsPerPixel)/8, int(scanlinePad)/8, depth)
	if err != nil {
		return err
	}

	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	rows := bandRows(int(setup.MaximumRequestLength)*4, stride, height)

	for y := 0; y < height; y += rows {
		n := min(rows, height-y)
		err := xproto.PutImageChecked(
			s.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(s.window),
			s.gc,
			uint16(width),
			uint16(n),
			0, int16(y),
			0,
			depth,
			data[y*stride:(y+n)*stride],
		).Check()
		if err != nil {
			return fmt.Errorf("failed to put image: %w", err)
		}
	}

	s.conn.Sync()
	return nil
}

// setWindowTitle sets the window title
func (s *X11Surface) setWindowTitle(title string) error {
	titleAtom, err := s.getAtom("_NET_WM_NAME")
	if err != nil {
		return err
	}
	utf8Atom, err := s.getAtom("UTF8_STRING")
	if err != nil {
		return err
	}

	if err := xproto.ChangePropertyChecked(
		s.conn, xproto.PropModeReplace, s.window,
		xproto.AtomWmName, xproto.AtomString, 8,
		uint32(len(title)), []byte(title),
	).Check(); err != nil {
		return err
	}

	return xproto.ChangePropertyChecked(
		s.conn, xproto.PropModeReplace, s.window,
		titleAtom, utf8Atom, 8,
		uint32(len(title)), []byte(title),
	).Check()
}

// setWindowClass sets the window class
func (s *X11Surface) setWindowClass(instance, class string) error {
	// WM_CLASS format: instance\0class\0
	classStr := instance + "\x00" + class + "\x00"

	return xproto.ChangePropertyChecked(
		s.conn, xproto.PropModeReplace, s.window,
		xproto.AtomWmClass, xproto.AtomString, 8,
		uint32(len(classStr)), []byte(classStr),
	).Check()
}

// setDeleteProtocol asks the window manager to send WM_DELETE_WINDOW instead of killing us
func (s *X11Surface) setDeleteProtocol() error {
	protocols, err := s.getAtom("WM_PROTOCOLS")
	if err != nil {
		return err
	}
	del, err := s.getAtom("WM_DELETE_WINDOW")
	if err != nil {
		return err
	}
	s.deleteAtom = del
	return s.setAtomList(protocols, del)
}

// setAbove requests _NET_WM_STATE_ABOVE so the window stays topmost
func (s *X11Surface) setAbove() error {
	state, err := s.getAtom("_NET_WM_STATE")
	if err != nil {
		return err
	}
	above, err := s.getAtom("_NET_WM_STATE_ABOVE")
	if err != nil {
		return err
	}
	return s.setAtomList(state, above)
}

func (s *X11Surface) setAtomList(property xproto.Atom, atoms ...xproto.Atom) error {
	buf := make([]byte, 4*len(atoms))
	for i, a := range atoms {
		xgb.Put32(buf[i*4:], uint32(a))
	}
	return xproto.ChangePropertyChecked(
		s.conn, xproto.PropModeReplace, s.window,
		property, xproto.AtomAtom, 32,
		uint32(len(atoms)), buf,
	).Check()
}

// getAtom gets an atom ID by name
func (s *X11Surface) getAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(s.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}
