package tracker

import (
	"time"

	"github.com/0xlemi/notetracker/internal/pitch"
)

// debouncer turns per-tick note readings into discrete detections. A note is
// detected once it has been read on consecutive ticks for the dwell
// threshold, and is not detected again until silence clears it.
type debouncer struct {
	threshold   time.Duration
	lastStable  string
	dwell       time.Duration
	lastEmitted string
}

// observe feeds one tick's reading and reports the note to emit, if any.
func (d *debouncer) observe(note pitch.Note, elapsed time.Duration) (string, bool) {
	if note.HasPitch() && note.Name == d.lastStable {
		d.dwell += elapsed
		if d.dwell >= d.threshold && note.Name != d.lastEmitted {
			d.lastEmitted = note.Name
			return note.Name, true
		}
		return "", false
	}

	d.dwell = 0
	d.lastStable = note.Name
	if !note.HasPitch() {
		d.lastEmitted = ""
	}
	return "", false
}

func (d *debouncer) reset() {
	d.lastStable = ""
	d.dwell = 0
	d.lastEmitted = ""
}
