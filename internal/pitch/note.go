package pitch

import (
	"fmt"
	"math"
)

// Note represents the instantaneous pitch reading mapped to a musical note
type Note struct {
	Pitch    float64 `json:"pitch"`    // Frequency in Hz, 0 when nothing was detected
	Name     string  `json:"name"`     // e.g. "A", "C#2", or NoNote
	Accuracy float64 `json:"accuracy"` // Cents deviation from the closest in-tune harmonic
}

// Silent returns the note reported when there is no pitch.
func Silent() Note {
	return Note{Name: NoNote}
}

// Describe maps a frequency to a Note. A non-positive frequency yields the
// silent note. When the accuracy lookup fails the note is still returned,
// with zero accuracy, alongside the error.
func Describe(frequency, referencePitch float64, sharp bool) (Note, error) {
	if !(frequency > 0) || math.IsInf(frequency, 0) {
		return Silent(), nil
	}

	note := Note{
		Pitch: frequency,
		Name:  NoteName(frequency, referencePitch, sharp),
	}

	accuracy, err := Accuracy(note.Name, frequency)
	if err != nil {
		return note, err
	}
	note.Accuracy = accuracy
	return note, nil
}

// HasPitch reports whether the note carries a detected pitch.
func (n Note) HasPitch() bool {
	return n.Pitch > 0 && n.Name != NoNote
}

func (n Note) String() string {
	if !n.HasPitch() {
		return NoNote
	}
	return fmt.Sprintf("%s %+.1f cents (%.2f Hz)", n.Name, n.Accuracy, n.Pitch)
}
