// Package record writes detected notes to a Standard MIDI File.
package record

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/0xlemi/notetracker/internal/pitch"
)

const (
	resolution = smf.MetricTicks(960)
	channel    = 0
	velocity   = 100
)

// Recorder turns detected notes into a monophonic MIDI track. Each note
// sounds until the next one is detected or the recording ends.
type Recorder struct {
	bpm            float64
	referencePitch float64

	mu      sync.Mutex
	track   smf.Track
	last    time.Time
	open    bool
	openKey uint8
	notes   int
}

// New creates a recorder timing events against the given tempo.
func New(bpm, referencePitch float64) *Recorder {
	if bpm <= 0 {
		bpm = 120
	}
	if referencePitch <= 0 {
		referencePitch = pitch.ConcertA
	}
	return &Recorder{bpm: bpm, referencePitch: referencePitch}
}

// Record adds note, detected at time at. Notes without a pitch are ignored.
func (r *Recorder) Record(note pitch.Note, at time.Time) {
	if !note.HasPitch() {
		return
	}
	key := uint8(pitch.MIDIKey(note.Pitch, r.referencePitch))

	r.mu.Lock()
	defer r.mu.Unlock()

	delta := r.delta(at)
	if r.open {
		r.track.Add(delta, midi.NoteOff(channel, r.openKey))
		delta = 0
	}
	r.track.Add(delta, midi.NoteOn(channel, key, velocity))
	r.open = true
	r.openKey = key
	r.notes++
}

// Len returns how many notes have been recorded
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes
}

// delta returns the ticks since the previous event and moves the clock to at
func (r *Recorder) delta(at time.Time) uint32 {
	if r.last.IsZero() {
		r.last = at
		return 0
	}
	d := at.Sub(r.last)
	if d < 0 {
		d = 0
	}
	r.last = at
	return resolution.Ticks(r.bpm, d)
}

// WriteTo ends the recording at time end and writes it as an SMF to w.
// The recorder can keep recording afterwards.
func (r *Recorder) WriteTo(w io.Writer, end time.Time) error {
	r.mu.Lock()
	track := append(smf.Track(nil), r.track...)
	if r.open {
		track.Add(r.delta(end), midi.NoteOff(channel, r.openKey))
		r.open = false
	}
	r.track = track
	r.mu.Unlock()

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(r.bpm))
	tempo.Close(0)

	notes := append(smf.Track(nil), track...)
	notes.Close(0)

	s := smf.New()
	s.TimeFormat = resolution
	if err := s.Add(tempo); err != nil {
		return fmt.Errorf("record: add tempo track: %w", err)
	}
	if err := s.Add(notes); err != nil {
		return fmt.Errorf("record: add note track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("record: write smf: %w", err)
	}
	return nil
}

// WriteFile ends the recording now and writes it to path.
func (r *Recorder) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("record: create %q: %w", path, err)
	}
	if err := r.WriteTo(f, time.Now()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("record: close %q: %w", path, err)
	}
	slog.Info("midi recording written", "path", path, "notes", r.Len())
	return nil
}
