package audio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/jonas747/ogg"

	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

// ErrEncodingFailed is returned when the ffmpeg pipeline produces no frames.
var ErrEncodingFailed = errors.New("audio encoding failed")

const (
	opusBitrate = 128 // kbps
	// Opus frames are 20ms; encoding is throttled to the playback rate so the
	// frame buffer never grows unbounded.
	frameInterval = 20 * time.Millisecond
	frameBuffer   = 1024
	// The first two ogg packets are the Opus header and comment metadata.
	headerPackets = 2
)

// Encoder turns a stream locator into Discord-ready Opus frames by running
// ffmpeg against the URL and demuxing its ogg output. The locator is all it
// gets; staleness is the caller's problem.
type Encoder struct {
	logger *logger.Logger
}

// NewEncoder creates an encoder.
func NewEncoder(log *logger.Logger) *Encoder {
	return &Encoder{logger: log}
}

// EncodeStream starts encoding the media at locator. Frames arrive on the
// first channel; a fatal pipeline error, if any, on the second. Both close
// when encoding ends. Closing stop winds the pipeline down even when the
// consumer no longer drains frames.
func (e *Encoder) EncodeStream(locator string, stop <-chan struct{}) (<-chan []byte, <-chan error) {
	frames := make(chan []byte, frameBuffer)
	errs := make(chan error, 1)
	go e.run(locator, stop, frames, errs)
	return frames, errs
}

func (e *Encoder) run(locator string, stop <-chan struct{}, frames chan []byte, errs chan error) {
	defer close(frames)
	defer close(errs)

	args := []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", locator,
		"-vn",
		"-map", "0:a",
		"-acodec", "libopus",
		"-f", "ogg",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", fmt.Sprintf("%d", opusBitrate*1000),
		"-application", "audio",
		"-frame_duration", "20",
		"-loglevel", "error",
		"pipe:1",
	}

	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		errs <- fmt.Errorf("ffmpeg stdout pipe: %w", err)
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		errs <- fmt.Errorf("ffmpeg stderr pipe: %w", err)
		return
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			e.logger.WithField("ffmpeg", scanner.Text()).Warn("ffmpeg output")
		}
	}()

	if err := cmd.Start(); err != nil {
		errs <- fmt.Errorf("failed to start ffmpeg: %w", err)
		return
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
			cmd.Wait()
		}
	}()

	decoder := ogg.NewPacketDecoder(ogg.NewDecoder(stdout))

	frameCount := 0
	skip := headerPackets
	start := time.Now()

	for {
		packet, _, err := decoder.Decode()
		if err != nil {
			if err == io.EOF || frameCount > 0 {
				e.logger.WithField("frames", frameCount).Debug("Encoding finished")
				return
			}
			errs <- fmt.Errorf("%w: %v", ErrEncodingFailed, err)
			return
		}

		if skip > 0 {
			skip--
			continue
		}
		if len(packet) == 0 {
			continue
		}

		frameCount++

		// Throttle to real time.
		expected := start.Add(time.Duration(frameCount) * frameInterval)
		if now := time.Now(); now.Before(expected) {
			time.Sleep(expected.Sub(now))
		}

		if !sendFrame(frames, packet, stop) {
			e.logger.WithField("frames", frameCount).Debug("Encoding stopped")
			return
		}
	}
}

// sendFrame delivers one frame, giving up when the consumer has stopped.
// A force-stopped playback stops draining frames, so an unconditional send
// would block here forever once the buffer fills.
func sendFrame(frames chan<- []byte, frame []byte, stop <-chan struct{}) bool {
	select {
	case frames <- frame:
		return true
	case <-stop:
		return false
	}
}
