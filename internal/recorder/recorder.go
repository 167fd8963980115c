package recorder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
)

// fileMagic starts every recording so stray files are rejected on replay
var fileMagic = []byte("POSEREC1")

// encMode keeps sub-second capture times
var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

// Recorder records pose estimates to a CBOR sequence file
type Recorder struct {
	mu           sync.RWMutex
	file         *os.File
	buf          *bufio.Writer
	enc          *cbor.Encoder
	filename     string
	basePath     string
	recording    bool
	poseCount    uint64
	bytesWritten uint64
	dropped      atomic.Uint64
	startTime    time.Time
	poseChan     chan *pose.Estimate
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewRecorder creates a new recorder writing into basePath
func NewRecorder(basePath string) *Recorder {
	return &Recorder{
		basePath: basePath,
		poseChan: make(chan *pose.Estimate, 60), // Buffer 2 seconds at 30fps
	}
}

// countingWriter tracks bytes handed to the underlying file
type countingWriter struct {
	w io.Writer
	n *uint64
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	*c.n += uint64(n)
	return n, err
}

// Start starts recording to a new file
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}

	if err := os.MkdirAll(r.basePath, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405.000")
	filename := fmt.Sprintf("poses_%s.cbor", timestamp)
	path := filepath.Join(r.basePath, filename)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	r.bytesWritten = 0
	r.buf = bufio.NewWriter(countingWriter{w: file, n: &r.bytesWritten})
	if _, err := r.buf.Write(fileMagic); err != nil {
		file.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}

	r.file = file
	r.enc = encMode.NewEncoder(r.buf)
	r.filename = filename
	r.recording = true
	r.poseCount = 0
	r.dropped.Store(0)
	r.startTime = time.Now()
	r.stopChan = make(chan struct{})

	r.wg.Add(1)
	go r.writePoses()

	logger.Info("Recorder", "Recording started: %s", path)
	return nil
}

// Stop stops recording, flushing everything already queued
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return ErrNotRecording
	}
	r.recording = false
	close(r.stopChan)
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	defer func() { r.file = nil }()
	if err := r.buf.Flush(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to flush file: %w", err)
	}
	if err := r.file.Sync(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	logger.Info("Recorder", "Recording stopped: %s (%d poses, %d dropped)", r.filename, r.poseCount, r.dropped.Load())
	return nil
}

// Send queues an estimate for writing (non-blocking). It returns false when
// not recording or the buffer is full.
func (r *Recorder) Send(est *pose.Estimate) bool {
	if est == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.recording {
		return false
	}

	select {
	case r.poseChan <- est:
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

func (r *Recorder) writePoses() {
	defer r.wg.Done()

	for {
		select {
		case est := <-r.poseChan:
			r.writePose(est)
		case <-r.stopChan:
			for {
				select {
				case est := <-r.poseChan:
					r.writePose(est)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writePose(est *pose.Estimate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc == nil {
		return
	}
	if err := r.enc.Encode(est); err != nil {
		logger.Warn("Recorder", "Failed to write pose %s: %v", est.ID, err)
		return
	}
	r.poseCount++
}

// IsRecording returns true if currently recording
func (r *Recorder) IsRecording() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recording
}

// GetStatus returns the current recording status
func (r *Recorder) GetStatus() RecordingStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var duration time.Duration
	if r.recording {
		duration = time.Since(r.startTime)
	}

	return RecordingStatus{
		Recording:    r.recording,
		Filename:     r.filename,
		PoseCount:    r.poseCount,
		Dropped:      r.dropped.Load(),
		BytesWritten: r.bytesWritten,
		DurationMs:   duration.Milliseconds(),
		StartTime:    r.startTime,
	}
}

// Close stops any recording in progress
func (r *Recorder) Close() error {
	if r.IsRecording() {
		return r.Stop()
	}
	return nil
}

// RecordingStatus holds the current recording status
type RecordingStatus struct {
	Recording    bool      `json:"recording"`
	Filename     string    `json:"filename"`
	PoseCount    uint64    `json:"pose_count"`
	Dropped      uint64    `json:"dropped"`
	BytesWritten uint64    `json:"bytes_written"`
	DurationMs   int64     `json:"duration_ms"`
	StartTime    time.Time `json:"start_time"`
}

// ReadFile loads every estimate from a recording
func ReadFile(path string) ([]pose.Estimate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a recording stream
func Read(r io.Reader) ([]pose.Estimate, error) {
	br := bufio.NewReader(r)
	header := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if !bytes.Equal(header, fileMagic) {
		return nil, fmt.Errorf("not a pose recording (header %q)", header)
	}

	dec := cbor.NewDecoder(br)
	var out []pose.Estimate
	for {
		var est pose.Estimate
		if err := dec.Decode(&est); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("pose %d: %w", len(out), err)
		}
		out = append(out, est)
	}
}
