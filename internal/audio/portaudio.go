package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioCapturer implements audio capture using PortAudio. The stream
// callback mixes the input down to mono and writes it into a one-second
// ring buffer.
type PortAudioCapturer struct {
	isCapturing   bool
	stream        *portaudio.Stream
	ring          *RingBuffer
	bufferSize    int
	sampleRate    int
	channels      int
	monoBuffer    []float32
	bufferMutex   sync.Mutex
	amplification float32 // Audio signal amplification factor
}

// NewPortAudioCapturer creates a new audio capturer using PortAudio.
// bufferSize is the number of frames delivered per stream callback.
func NewPortAudioCapturer(bufferSize, sampleRate, channels int) (*PortAudioCapturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	return &PortAudioCapturer{
		ring:          NewRingBuffer(sampleRate),
		bufferSize:    bufferSize,
		sampleRate:    sampleRate,
		channels:      channels,
		monoBuffer:    make([]float32, bufferSize),
		amplification: 1.0,
	}, nil
}

// Start begins audio capture
func (c *PortAudioCapturer) Start() error {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	if c.isCapturing {
		return ErrAlreadyCapturing
	}

	// Open default input stream
	stream, err := portaudio.OpenDefaultStream(
		c.channels, // input channels
		0,          // output channels (we don't need output)
		float64(c.sampleRate),
		c.bufferSize, // frames per buffer
		c.processAudio,
	)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start input stream: %w", err)
	}

	c.stream = stream
	c.isCapturing = true
	slog.Debug("audio capture started", "sample_rate", c.sampleRate, "frames", c.bufferSize, "channels", c.channels)
	return nil
}

// Stop ends audio capture. The ring buffer keeps its contents.
func (c *PortAudioCapturer) Stop() error {
	c.bufferMutex.Lock()
	stream := c.stream
	capturing := c.isCapturing
	c.bufferMutex.Unlock()

	if !capturing {
		return ErrNotCapturing
	}

	// The callback takes bufferMutex, so the stream is stopped without holding it
	if err := stream.Stop(); err != nil {
		return fmt.Errorf("stop input stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("close input stream: %w", err)
	}

	c.bufferMutex.Lock()
	c.stream = nil
	c.isCapturing = false
	c.bufferMutex.Unlock()

	slog.Debug("audio capture stopped")
	return nil
}

// Close stops capture if needed and releases PortAudio
func (c *PortAudioCapturer) Close() error {
	if c.IsCapturing() {
		if err := c.Stop(); err != nil {
			return err
		}
	}
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("terminate portaudio: %w", err)
	}
	return nil
}

// processAudio is the callback function for audio processing
func (c *PortAudioCapturer) processAudio(in []float32) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	frames := len(in) / c.channels
	if cap(c.monoBuffer) < frames {
		c.monoBuffer = make([]float32, frames)
	}
	mono := c.monoBuffer[:frames]

	// Average the channels and apply amplification
	for i := range mono {
		sum := float32(0)
		for ch := 0; ch < c.channels; ch++ {
			sum += in[i*c.channels+ch]
		}
		mono[i] = (sum / float32(c.channels)) * c.amplification
	}

	c.ring.Write(mono)
}

// Position returns the ring buffer write cursor
func (c *PortAudioCapturer) Position() int {
	return c.ring.Position()
}

// Capacity returns the ring buffer length, one second of audio
func (c *PortAudioCapturer) Capacity() int {
	return c.ring.Capacity()
}

// ReadAt copies captured samples starting at offset
func (c *PortAudioCapturer) ReadAt(dst []float32, offset int) int {
	return c.ring.ReadAt(dst, offset)
}

// IsCapturing returns true if currently capturing audio
func (c *PortAudioCapturer) IsCapturing() bool {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()
	return c.isCapturing
}

// SetAmplification sets the audio amplification factor
func (c *PortAudioCapturer) SetAmplification(factor float32) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()
	c.amplification = clampAmplification(factor)
}

func clampAmplification(factor float32) float32 {
	// Ensure amplification is positive
	if factor < 0.1 {
		return 0.1
	}
	return factor
}

// Device describes an audio input device
type Device struct {
	Name              string
	HostAPI           string
	InputChannels     int
	DefaultSampleRate float64
	IsDefault         bool
}

// InputDevices lists the devices that can record audio
func InputDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	var defaultName string
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	var list []Device
	for _, d := range devices {
		if d.MaxInputChannels <= 0 {
			continue
		}
		device := Device{
			Name:              d.Name,
			InputChannels:     d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			IsDefault:         d.Name == defaultName,
		}
		if d.HostApi != nil {
			device.HostAPI = d.HostApi.Name
		}
		list = append(list, device)
	}
	return list, nil
}

// RequireInputDevice returns ErrNoInputDevice when no device can record
func RequireInputDevice() error {
	devices, err := InputDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return ErrNoInputDevice
	}
	return nil
}
