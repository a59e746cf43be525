package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/step_counter/internal/accel"
)

// SerialSource reads accelerometer samples from a microcontroller that
// streams one "ax,ay,az" CSV line (m/s²) per sample over a serial port.
type SerialSource struct {
	port io.ReadWriteCloser

	mu   sync.Mutex
	done chan struct{}
}

// NewSerialSource opens the serial port. A port that cannot be opened
// reports accel.ErrDeviceUnsupported.
func NewSerialSource(portName string, baudRate uint) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        baudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", accel.ErrDeviceUnsupported, portName, err)
	}
	log.Printf("serial sensor opened on %s at %d baud", portName, baudRate)

	return &SerialSource{port: port}, nil
}

// Name identifies the serial platform class.
func (s *SerialSource) Name() string { return "serial" }

// RequestPermission always succeeds: a wired sensor needs no grant.
func (s *SerialSource) RequestPermission() error { return nil }

// Start reads lines from the port on a goroutine. Malformed lines are
// transient errors: logged and dropped, the stream continues.
func (s *SerialSource) Start(push accel.PushFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return fmt.Errorf("serial source already started")
	}
	s.done = make(chan struct{})
	done := s.done

	go func() {
		defer close(done)
		reader := bufio.NewReader(s.port)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				// Closing the port on Stop lands here too.
				log.Printf("serial read error: %v", err)
				return
			}

			r, err := parseReading(line, time.Now())
			if err != nil {
				log.Printf("serial: dropping sample: %v", err)
				continue
			}
			push(r)
		}
	}()
	return nil
}

// parseReading parses one "ax,ay,az" CSV line into a reading stamped
// with ts.
func parseReading(line string, ts time.Time) (accel.Reading, error) {
	line = strings.TrimSpace(line)
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return accel.Reading{}, fmt.Errorf("expected 3 fields, got %d in %q", len(fields), line)
	}

	var axes [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return accel.Reading{}, fmt.Errorf("field %d of %q: %w", i, line, err)
		}
		axes[i] = v
	}

	return accel.Reading{X: axes[0], Y: axes[1], Z: axes[2], Timestamp: ts}, nil
}

// Stop closes the port, which unblocks the reader goroutine, and waits
// for it to exit.
func (s *SerialSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return nil
	}
	err := s.port.Close()
	<-s.done
	s.done = nil
	return err
}
