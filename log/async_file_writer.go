// Package log contains logging helpers on top of the go-ethereum logger: an
// asynchronous rotating file writer and filtered log calls for hot paths.
package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

var droppedMeter = metrics.NewRegisteredMeter("log/async/dropped", nil)

// TimeTicker fires at every rotation boundary. A boundary is a whole hour
// divisible by rotateHours, so with rotateHours 2 the ticker fires at 00:00,
// 02:00, 04:00 and so on. With rotateHours 0 it never fires.
type TimeTicker struct {
	stop chan struct{}
	once sync.Once
	C    <-chan time.Time
}

// NewTimeTicker creates a TimeTicker for the given rotation period.
func NewTimeTicker(rotateHours uint) *TimeTicker {
	ch := make(chan time.Time, 1)
	tt := &TimeTicker{
		stop: make(chan struct{}),
		C:    ch,
	}
	if rotateHours > 0 {
		tt.startTicker(ch, rotateHours)
	}
	return tt
}

func (tt *TimeTicker) Stop() {
	tt.once.Do(func() { close(tt.stop) })
}

func (tt *TimeTicker) startTicker(ch chan time.Time, rotateHours uint) {
	go func() {
		timer := time.NewTimer(time.Until(nextRotation(time.Now(), rotateHours)))
		defer timer.Stop()
		for {
			select {
			case t := <-timer.C:
				select {
				case ch <- t:
				default:
				}
				timer.Reset(time.Until(nextRotation(time.Now(), rotateHours)))
			case <-tt.stop:
				return
			}
		}
	}()
}

// nextRotation returns the first rotation boundary strictly after now.
func nextRotation(now time.Time, rotateHours uint) time.Time {
	hour := now.Truncate(time.Hour)
	for {
		hour = hour.Add(time.Hour)
		if uint(hour.Hour())%rotateHours == 0 {
			return hour
		}
	}
}

// AsyncFileWriter buffers lines in a channel and appends them to a file from
// a single goroutine. The file name carries the rotation period and filePath
// itself is a symlink to the current file. Writes never block; lines that do
// not fit the buffer are dropped and counted.
type AsyncFileWriter struct {
	filePath string
	fd       *os.File

	wg         sync.WaitGroup
	started    atomic.Bool
	buf        chan []byte
	stop       chan struct{}
	timeTicker *TimeTicker
	now        func() time.Time
}

// NewAsyncFileWriter creates a writer holding up to bufferLines pending lines.
func NewAsyncFileWriter(filePath string, bufferLines int, rotateHours uint) (*AsyncFileWriter, error) {
	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("get file path of logger error. filePath=%s, err=%w", filePath, err)
	}
	if bufferLines <= 0 {
		bufferLines = 1024
	}
	return &AsyncFileWriter{
		filePath:   absFilePath,
		buf:        make(chan []byte, bufferLines),
		stop:       make(chan struct{}),
		timeTicker: NewTimeTicker(rotateHours),
		now:        time.Now,
	}, nil
}

func (w *AsyncFileWriter) initLogFile() error {
	if err := os.MkdirAll(filepath.Dir(w.filePath), 0755); err != nil {
		return err
	}
	realFilePath := w.timeFilePath(w.filePath)
	fd, err := os.OpenFile(realFilePath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	w.fd = fd

	if _, err := os.Lstat(w.filePath); err == nil {
		if err := os.Remove(w.filePath); err != nil {
			return err
		}
	}
	return os.Symlink(realFilePath, w.filePath)
}

// Start opens the current file and starts the writing goroutine.
func (w *AsyncFileWriter) Start() error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("logger has already been started")
	}
	if err := w.initLogFile(); err != nil {
		w.started.Store(false)
		return err
	}

	w.wg.Add(1)
	go func() {
		defer func() {
			w.flushBuffer()
			if err := w.flushAndClose(); err != nil {
				fmt.Fprintf(os.Stderr, "flush and close file error. err=%s\n", err)
			}
			w.wg.Done()
		}()

		for {
			select {
			case msg := <-w.buf:
				w.SyncWrite(msg)
			case <-w.stop:
				return
			}
		}
	}()
	return nil
}

func (w *AsyncFileWriter) flushBuffer() {
	for {
		select {
		case msg := <-w.buf:
			w.SyncWrite(msg)
		default:
			return
		}
	}
}

// SyncWrite writes msg directly, rotating first if a boundary has passed.
// It must only be called from the writing goroutine or before Start.
func (w *AsyncFileWriter) SyncWrite(msg []byte) {
	w.rotateFile()
	if w.fd != nil {
		if _, err := w.fd.Write(msg); err != nil {
			fmt.Fprintf(os.Stderr, "write log file error. err=%s\n", err)
		}
	}
}

func (w *AsyncFileWriter) rotateFile() {
	select {
	case <-w.timeTicker.C:
		if err := w.flushAndClose(); err != nil {
			fmt.Fprintf(os.Stderr, "flush and close file error. err=%s\n", err)
		}
		if err := w.initLogFile(); err != nil {
			fmt.Fprintf(os.Stderr, "init log file error. err=%s\n", err)
		}
	default:
	}
}

// Stop drains the buffer, closes the file and stops rotation. Stopping a
// writer that was never started only stops the ticker.
func (w *AsyncFileWriter) Stop() {
	if w.started.Load() {
		close(w.stop)
		w.wg.Wait()
		w.started.Store(false)
	}
	w.timeTicker.Stop()
}

// Write queues a copy of msg.
func (w *AsyncFileWriter) Write(msg []byte) (n int, err error) {
	buf := make([]byte, len(msg))
	copy(buf, msg)

	select {
	case w.buf <- buf:
	default:
		droppedMeter.Mark(1)
	}
	return len(msg), nil
}

func (w *AsyncFileWriter) flushAndClose() error {
	if w.fd == nil {
		return nil
	}
	err := w.fd.Sync()
	if cerr := w.fd.Close(); err == nil {
		err = cerr
	}
	w.fd = nil
	return err
}

func (w *AsyncFileWriter) timeFilePath(filePath string) string {
	return filePath + "." + w.now().Format("2006-01-02_15")
}
