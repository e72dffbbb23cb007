package pitch

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownNote is returned when a note name is not one of the chromatic spellings.
var ErrUnknownNote = errors.New("unknown note name")

const (
	// NoNote is the name reported when there is no pitch or it is out of range.
	NoNote = "--"

	// ConcertA is the default reference pitch (A4).
	ConcertA = 440.0

	// LowestFrequency and HighestFrequency bound the frequencies that map to a note.
	LowestFrequency  = 16.35
	HighestFrequency = 4978.03
)

// Chromatic note tables spanning two octaves, starting at C.
var (
	sharpNotes = []string{
		"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
		"C2", "C#2", "D2", "D#2", "E2", "F2", "F#2", "G2", "G#2", "A2", "A#2", "B2",
	}
	flatNotes = []string{
		"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B",
		"C2", "Db2", "D2", "Eb2", "E2", "F2", "Gb2", "G2", "Ab2", "A2", "Bb2", "B2",
	}
)

// Base octave frequencies (C0..B0)
var baseFrequencies = [12]float64{
	16.35, 17.32, 18.35, 19.45, 20.60, 21.83, 23.12, 24.50, 25.96, 27.50, 29.14, 30.87,
}

// NoteCount is the number of spellings in each chromatic table.
var NoteCount = len(sharpNotes)

// NoteNames returns a copy of the chromatic table for the given spelling.
func NoteNames(sharp bool) []string {
	if sharp {
		return append([]string(nil), sharpNotes...)
	}
	return append([]string(nil), flatNotes...)
}

// NoteName converts a frequency to a note name. referencePitch is the pitch of A.
func NoteName(frequency, referencePitch float64, sharp bool) string {
	if !(frequency >= LowestFrequency && frequency <= HighestFrequency) {
		return NoNote
	}

	// A is 9 semitones above C, which sits at index 0
	steps := int(math.Round(12 * math.Log2(frequency/referencePitch)))
	index := (9 + steps) % NoteCount
	if index < 0 {
		index += NoteCount
	}

	if sharp {
		return sharpNotes[index]
	}
	return flatNotes[index]
}

// NoteIndex returns the position of name in the chromatic tables. The lookup
// is case-insensitive and accepts both spellings.
func NoteIndex(name string) (int, error) {
	for _, table := range [][]string{sharpNotes, flatNotes} {
		for i, n := range table {
			if strings.EqualFold(n, name) {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownNote, name)
}

// Accuracy returns how many cents detected is away from the closest in-tune
// harmonic of the named note. Positive is sharp, negative is flat.
func Accuracy(name string, detected float64) (float64, error) {
	if name == NoNote {
		return 0, nil
	}

	index, err := NoteIndex(name)
	if err != nil {
		return 0, err
	}

	closest := baseFrequencies[index%12]
	for candidate := closest; candidate <= HighestFrequency; candidate *= 2 {
		// Strict comparison: on a tie the lower harmonic stays
		if math.Abs(detected-candidate) < math.Abs(detected-closest) {
			closest = candidate
		}
	}

	return 1200 * math.Log2(detected/closest), nil
}

// GenerateScale returns root followed by the notes that are the given number
// of semitones above it, wrapping around the two-octave table.
func GenerateScale(root string, sharp bool, distances ...int) ([]string, error) {
	index, err := NoteIndex(root)
	if err != nil {
		return nil, err
	}

	table := flatNotes
	if sharp {
		table = sharpNotes
	}

	scale := make([]string, 0, len(distances)+1)
	scale = append(scale, root)
	for _, d := range distances {
		i := (index + d) % NoteCount
		if i < 0 {
			i += NoteCount
		}
		scale = append(scale, table[i])
	}
	return scale, nil
}

// MIDIKey returns the MIDI key number closest to frequency, clamped to 0..127.
func MIDIKey(frequency, referencePitch float64) int {
	if frequency <= 0 {
		return 0
	}
	key := int(math.Round(69 + 12*math.Log2(frequency/referencePitch)))
	return max(0, min(127, key))
}
