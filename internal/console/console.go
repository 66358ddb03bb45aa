// Package console renders the framebuffer to an ANSI terminal using half
// block characters, two pixel rows per text row.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/kapitanov/chip8tick/internal/vm"
	"github.com/pkg/term"
	"golang.org/x/sys/unix"
)

const (
	ESC = 0x1B

	Columns = vm.ScreenWidth
	Rows    = vm.ScreenHeight / 2
)

var (
	cursorHome = []byte{ESC, '[', 'H'}
	clearAll   = []byte{ESC, '[', '2', 'J'}
	hideCursor = []byte{ESC, '[', '?', '2', '5', 'l'}
	showCursor = []byte{ESC, '[', '?', '2', '5', 'h'}
)

// Display is a vm.HAL writing frames to out.
type Display struct {
	out io.Writer
	buf []byte
}

var _ vm.HAL = (*Display)(nil)

func NewDisplay(out io.Writer) *Display {
	return &Display{
		out: out,
		buf: make([]byte, 0, Rows*(Columns*3+1)+len(cursorHome)),
	}
}

// Draw implements vm.HAL.
func (d *Display) Draw(gfx []byte) error {
	buf := append(d.buf[:0], cursorHome...)

	for row := 0; row < Rows; row++ {
		for x := 0; x < Columns; x++ {
			top := vm.PixelAt(gfx, x, 2*row)
			bottom := vm.PixelAt(gfx, x, 2*row+1)

			switch {
			case top && bottom:
				buf = append(buf, "█"...)
			case top:
				buf = append(buf, "▀"...)
			case bottom:
				buf = append(buf, "▄"...)
			default:
				buf = append(buf, ' ')
			}
		}
		buf = append(buf, '\r', '\n')
	}

	d.buf = buf
	_, err := d.out.Write(buf)
	return err
}

// PollEvents implements vm.HAL. The terminal is output only.
func (d *Display) PollEvents() error {
	return nil
}

// TTY is a Display bound to the controlling terminal in cbreak mode, so
// stray keystrokes are not echoed over the picture.
type TTY struct {
	*Display
	tty *term.Term
}

func Open() (*TTY, error) {
	if err := CheckSize(int(os.Stdout.Fd())); err != nil {
		return nil, err
	}

	tty, err := term.Open("/dev/tty", term.CBreakMode)
	if err != nil {
		return nil, fmt.Errorf("unable to open terminal: %w", err)
	}

	if _, err := tty.Write(append(clearAll, hideCursor...)); err != nil {
		_ = tty.Close()
		return nil, fmt.Errorf("unable to write to terminal: %w", err)
	}

	return &TTY{
		Display: NewDisplay(tty),
		tty:     tty,
	}, nil
}

func (t *TTY) Close() error {
	_, _ = t.tty.Write(showCursor)
	if err := t.tty.Restore(); err != nil {
		_ = t.tty.Close()
		return fmt.Errorf("unable to restore terminal: %w", err)
	}
	return t.tty.Close()
}

// CheckSize verifies the terminal on fd is large enough for a full frame.
func CheckSize(fd int) error {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return fmt.Errorf("unable to query terminal size: %w", err)
	}

	if int(ws.Col) < Columns || int(ws.Row) < Rows {
		return fmt.Errorf("terminal is %dx%d, need at least %dx%d", ws.Col, ws.Row, Columns, Rows)
	}
	return nil
}
