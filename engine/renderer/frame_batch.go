package renderer

import "errors"

var errFrameOpen = errors.New("renderer: compute frame already open")

// frameBatch owns the command encoder of an open compute frame. Recorded commands reach
// the queue when the frame ends or when flush is called; flush reopens a fresh encoder
// so the frame stays open. Queue writes and readbacks flush first, which keeps them
// ordered after every command recorded before them. Callers serialize access.
type frameBatch[E any] struct {
	open    func() (E, error)
	submit  func(E) error
	discard func(E)

	enc    E
	active bool
	dirty  bool
	// err is the first flush failure of the open frame, reported by end.
	err error
}

// begin opens a frame.
func (f *frameBatch[E]) begin() error {
	if f.active {
		return errFrameOpen
	}
	enc, err := f.open()
	if err != nil {
		return err
	}
	f.enc, f.active, f.dirty, f.err = enc, true, false, nil
	return nil
}

// record runs fn against the frame encoder, or against a one-shot encoder that is
// submitted at once when no frame is open.
func (f *frameBatch[E]) record(fn func(E)) error {
	if f.active {
		fn(f.enc)
		f.dirty = true
		return nil
	}
	enc, err := f.open()
	if err != nil {
		return err
	}
	fn(enc)
	return f.submit(enc)
}

// flush submits the commands recorded so far and reopens the encoder. Outside a frame,
// or with nothing recorded, it does nothing.
func (f *frameBatch[E]) flush() error {
	if !f.active || !f.dirty {
		return nil
	}
	enc := f.enc
	f.clear()
	err := f.submit(enc)
	if err == nil {
		var next E
		if next, err = f.open(); err == nil {
			f.enc, f.active = next, true
			return nil
		}
	}
	// The frame is closed; later records submit one-shot encoders.
	if f.err == nil {
		f.err = err
	}
	return err
}

// end submits the open frame. It returns the first flush error of the frame, if any.
func (f *frameBatch[E]) end() error {
	flushErr := f.err
	f.err = nil
	if !f.active {
		return flushErr
	}
	enc, dirty := f.enc, f.dirty
	f.clear()
	if !dirty {
		f.discard(enc)
		return flushErr
	}
	if err := f.submit(enc); err != nil {
		return err
	}
	return flushErr
}

// release drops an open frame without submitting it.
func (f *frameBatch[E]) release() {
	if f.active {
		f.discard(f.enc)
	}
	f.clear()
	f.err = nil
}

func (f *frameBatch[E]) clear() {
	var zero E
	f.enc, f.active, f.dirty = zero, false, false
}
