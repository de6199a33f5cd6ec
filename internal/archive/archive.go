package archive

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

// Archive writes raw telemetry payloads to a daily newline-delimited
// file and gzips the previous day's file at rotation.
type Archive struct {
	outputDir string
	log       *logger.Logger
	file      *os.File
	mu        sync.Mutex
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// New creates an Archive writing under outputDir.
func New(outputDir string, log *logger.Logger) *Archive {
	return &Archive{
		outputDir: outputDir,
		log:       log.Named("archive"),
		stopChan:  make(chan struct{}),
	}
}

// Start opens today's file and starts the rotation timer.
func (a *Archive) Start() error {
	if err := a.openCurrent(); err != nil {
		return err
	}

	a.wg.Add(1)
	go a.rotationTimer()

	return nil
}

// Stop closes the current file and stops the rotation timer.
func (a *Archive) Stop() error {
	close(a.stopChan)
	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// Write appends one telemetry payload to the current day's file.
func (a *Archive) Write(payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		if err := a.openCurrent(); err != nil {
			return err
		}
	}

	if len(payload) > 0 && payload[len(payload)-1] == '\n' {
		_, err := a.file.Write(payload)
		return err
	}

	_, err := a.file.Write(append(payload, '\n'))
	return err
}

// rotationTimer handles daily rotation at midnight UTC.
func (a *Archive) rotationTimer() {
	defer a.wg.Done()

	for {
		now := time.Now().UTC()
		nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
		waitTime := nextMidnight.Sub(now)

		select {
		case <-time.After(waitTime):
			if err := a.rotateAndCompress(); err != nil {
				a.log.Error("Rotation failed", logger.Error(err))
			}
		case <-a.stopChan:
			return
		}
	}
}

// rotateAndCompress closes the day that just ended, gzips its file and
// opens the new day's file.
func (a *Archive) rotateAndCompress() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file != nil {
		a.file.Close()
		a.file = nil
	}

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	yesterdayFile := filepath.Join(a.outputDir, fileName(yesterday))

	if _, err := os.Stat(yesterdayFile); err == nil {
		if err := compressFile(yesterdayFile); err != nil {
			return fmt.Errorf("failed to compress file: %w", err)
		}
	}

	return a.openCurrent()
}

// compressFile gzips path into path.gz and removes the original.
func compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	target, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer target.Close()

	gz := gzip.NewWriter(target)
	if _, err := io.Copy(gz, source); err != nil {
		gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}

// openCurrent opens (appending) the file for today's date.
func (a *Archive) openCurrent() error {
	filename := filepath.Join(a.outputDir, fileName(time.Now().UTC()))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	a.file = file
	return nil
}

func fileName(day time.Time) string {
	return fmt.Sprintf("telemetry_%s.ndjson", day.Format("2006-01-02"))
}
