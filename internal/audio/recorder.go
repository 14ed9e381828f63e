// Package audio captures microphone audio with malgo and hands it out as
// mono 16kHz float32 chunks, the format whisper.cpp expects.
package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// TargetRate is the sample rate of every slice returned by Read and Stop.
const TargetRate = 16000

// Source yields fixed-size chunks of mono 16kHz audio.
// Read returns nil, nil when fewer than n samples are available yet.
type Source interface {
	Read(n int) ([]float32, error)
}

// DeviceInfo describes a capture device.
type DeviceInfo struct {
	Index     int
	Name      string
	IsDefault bool
}

// Recorder captures audio from a microphone into an internal buffer.
// Capture runs continuously between Start and Stop; callers drain the
// buffer with Read.
type Recorder struct {
	ctx           *malgo.AllocatedContext
	device        *malgo.Device
	sampleRate    uint32
	channels      uint32
	deviceIndex   int
	fallbackRates []uint32

	mu          sync.Mutex
	raw         []float32 // interleaved, at captureRate
	captureRate uint32
	recording   bool
}

// NewRecorder creates a new audio recorder. deviceIndex selects an entry
// from ListDevices; -1 uses the system default. fallbackRates are tried in
// order when the device rejects sampleRate. Call Close() when done.
func NewRecorder(sampleRate, channels uint32, deviceIndex int, fallbackRates []uint32) (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}

	return &Recorder{
		ctx:           ctx,
		sampleRate:    sampleRate,
		channels:      channels,
		deviceIndex:   deviceIndex,
		fallbackRates: fallbackRates,
	}, nil
}

// ListDevices returns the capture devices known to the audio backend.
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("listing capture devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			Index:     i,
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// candidateRates returns sampleRate followed by each distinct fallback rate.
func candidateRates(sampleRate uint32, fallbacks []uint32) []uint32 {
	rates := []uint32{sampleRate}
	for _, r := range fallbacks {
		dup := false
		for _, have := range rates {
			if have == r {
				dup = true
				break
			}
		}
		if !dup && r > 0 {
			rates = append(rates, r)
		}
	}
	return rates
}

// Start begins capturing audio. It tries the configured sample rate and
// then each fallback rate until the device opens.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return fmt.Errorf("already recording")
	}
	r.raw = r.raw[:0] // reset buffer but keep capacity
	r.recording = true
	r.mu.Unlock()

	var deviceID malgo.DeviceID
	useDeviceID := false
	if r.deviceIndex >= 0 {
		infos, err := r.ctx.Devices(malgo.Capture)
		if err != nil {
			r.setRecording(false)
			return fmt.Errorf("listing capture devices: %w", err)
		}
		if r.deviceIndex >= len(infos) {
			r.setRecording(false)
			return fmt.Errorf("capture device %d not found (%d available)", r.deviceIndex, len(infos))
		}
		deviceID = infos[r.deviceIndex].ID
		useDeviceID = true
	}

	var lastErr error
	for _, rate := range candidateRates(r.sampleRate, r.fallbackRates) {
		deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
		deviceCfg.Capture.Format = malgo.FormatF32
		deviceCfg.Capture.Channels = r.channels
		deviceCfg.SampleRate = rate
		if useDeviceID {
			deviceCfg.Capture.DeviceID = deviceID.Pointer()
		}

		device, err := malgo.InitDevice(r.ctx.Context, deviceCfg, malgo.DeviceCallbacks{
			Data: r.onData,
		})
		if err != nil {
			slog.Debug("capture device rejected rate", "rate", rate, "error", err)
			lastErr = fmt.Errorf("initializing capture device at %dHz: %w", rate, err)
			continue
		}

		if err := device.Start(); err != nil {
			device.Uninit()
			slog.Debug("capture device failed to start", "rate", rate, "error", err)
			lastErr = fmt.Errorf("starting capture device at %dHz: %w", rate, err)
			continue
		}

		r.mu.Lock()
		r.device = device
		r.captureRate = rate
		r.mu.Unlock()
		slog.Debug("capture started", "rate", rate, "channels", r.channels, "device", r.deviceIndex)
		return nil
	}

	r.setRecording(false)
	return fmt.Errorf("could not open microphone at any of %v: %w", candidateRates(r.sampleRate, r.fallbackRates), lastErr)
}

func (r *Recorder) setRecording(v bool) {
	r.mu.Lock()
	r.recording = v
	r.mu.Unlock()
}

// Read returns exactly n mono 16kHz samples once that much audio has been
// captured, or nil if not enough is buffered yet.
func (r *Recorder) Read(n int) ([]float32, error) {
	if n <= 0 {
		return nil, nil
	}

	r.mu.Lock()
	if r.captureRate == 0 {
		r.mu.Unlock()
		return nil, nil
	}
	frames := int(math.Ceil(float64(n) * float64(r.captureRate) / TargetRate))
	need := frames * int(r.channels)
	if len(r.raw) < need {
		r.mu.Unlock()
		return nil, nil
	}
	chunk := make([]float32, need)
	copy(chunk, r.raw[:need])
	r.raw = append(r.raw[:0], r.raw[need:]...)
	rate := int(r.captureRate)
	channels := int(r.channels)
	r.mu.Unlock()

	out := Resample(Downmix(chunk, channels), rate, TargetRate)
	return fitLength(out, n), nil
}

// fitLength pads with silence or truncates so len(samples) == n.
func fitLength(samples []float32, n int) []float32 {
	if len(samples) >= n {
		return samples[:n]
	}
	return append(samples, make([]float32, n-len(samples))...)
}

// Stop ends the audio capture and returns whatever audio is still buffered,
// converted to mono 16kHz.
func (r *Recorder) Stop() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil
	}

	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.recording = false

	if r.captureRate == 0 {
		return nil
	}
	rest := Resample(Downmix(r.raw, int(r.channels)), int(r.captureRate), TargetRate)
	r.raw = r.raw[:0]
	return rest
}

// IsRecording returns whether the recorder is currently capturing audio.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// CaptureRate returns the rate the device was opened at, or 0 before Start.
func (r *Recorder) CaptureRate() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.captureRate
}

// Close releases all audio resources.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.recording = false
	r.mu.Unlock()

	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninitializing audio context: %w", err)
		}
		r.ctx.Free()
		r.ctx = nil
	}

	return nil
}

// onData is the malgo callback invoked when audio data is available.
// pSample contains the captured audio frames as raw bytes (float32 format).
func (r *Recorder) onData(_, pSample []byte, frameCount uint32) {
	sampleCount := frameCount * r.channels
	samples := bytesToFloat32(pSample, sampleCount)

	r.mu.Lock()
	r.raw = append(r.raw, samples...)
	r.mu.Unlock()
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}
