package display

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// keymap translates X keycodes into characters using the server's keyboard mapping
type keymap struct {
	minKeycode xproto.Keycode
	perKeycode int
	keysyms    []xproto.Keysym
}

func loadKeymap(conn *xgb.Conn) (keymap, error) {
	setup := xproto.Setup(conn)
	count := byte(int(setup.MaxKeycode) - int(setup.MinKeycode) + 1)

	reply, err := xproto.GetKeyboardMapping(conn, setup.MinKeycode, count).Reply()
	if err != nil {
		return keymap{}, err
	}
	return keymap{
		minKeycode: setup.MinKeycode,
		perKeycode: int(reply.KeysymsPerKeycode),
		keysyms:    reply.Keysyms,
	}, nil
}

// rune returns the character for a key press, honoring Shift for the second column
func (k keymap) rune(code xproto.Keycode, state uint16) (rune, bool) {
	if k.perKeycode == 0 || code < k.minKeycode {
		return 0, false
	}
	base := int(code-k.minKeycode) * k.perKeycode
	if base >= len(k.keysyms) {
		return 0, false
	}

	sym := k.keysyms[base]
	if state&xproto.ModMaskShift != 0 && k.perKeycode > 1 && k.keysyms[base+1] != 0 {
		sym = k.keysyms[base+1]
	}
	return keysymRune(sym)
}

// keysymRune maps a keysym to its character. Latin-1 keysyms equal their code
// point; a few function keys map to control characters.
func keysymRune(sym xproto.Keysym) (rune, bool) {
	switch {
	case sym >= 0x20 && sym <= 0x7e, sym >= 0xa0 && sym <= 0xff:
		return rune(sym), true
	case sym == 0xff0d: // Return
		return '\r', true
	case sym == 0xff1b: // Escape
		return 0x1b, true
	case sym == 0xff09: // Tab
		return '\t', true
	case sym&0xff000000 == 0x01000000: // Unicode keysyms
		return rune(sym & 0x00ffffff), true
	}
	return 0, false
}
