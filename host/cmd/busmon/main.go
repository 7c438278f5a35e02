package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"respirator/core"
	"respirator/host/config"
	"respirator/host/monitor"
	"respirator/protocol"
)

var (
	configPath = flag.String("config", "", "YAML configuration file")
	device     = flag.String("device", "", "Serial device path (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config)")
	count      = flag.Int("count", -1, "Stop after this many reports (overrides config)")
	errorsOnly = flag.Bool("errors-only", false, "Only print reports with new failures")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
		cfg = loaded
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}
	if *count >= 0 {
		cfg.Monitor.Count = *count
	}
	if *errorsOnly {
		cfg.Monitor.ErrorsOnly = true
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	div, _ := core.ClockDivisor(cfg.Bus.SystemClock, cfg.Bus.Frequency)
	fmt.Printf("busmon %s: %s at %d baud\n", protocol.Version, cfg.Serial.Device, cfg.Serial.Baud)
	fmt.Printf("bus clock: bit rate %d, prescaler %d, SCL %d Hz\n",
		div.BitRate, 1<<(2*div.Prescaler), div.Frequency(cfg.Bus.SystemClock))

	m, err := monitor.Connect(cfg.SerialPort(), time.Duration(cfg.Monitor.ReceiveTimeoutMs)*time.Millisecond)
	if err != nil {
		log.Fatalf("connect failed: %v", err)
	}

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt)
	go func() {
		<-interrupted
		m.Close()
	}()

	err = run(m, cfg.Monitor)
	summary(m)
	m.Close()
	if err != nil {
		log.Fatalf("monitor stopped: %v", err)
	}
}

// run prints samples until the count is reached or the link fails
func run(m *monitor.Monitor, opts config.MonitorConfig) error {
	for n := 0; opts.Count == 0 || n < opts.Count; n++ {
		s, err := m.Next()
		if err != nil {
			if errors.Is(err, protocol.ErrTransportStopped) || errors.Is(err, monitor.ErrNotConnected) {
				return nil
			}
			return err
		}
		if opts.ErrorsOnly && s.Errors() == 0 && !s.Restarted {
			continue
		}
		fmt.Printf("[%#02x] %s\n", s.Sequence, s)
	}
	return nil
}

func summary(m *monitor.Monitor) {
	ls := m.LinkStats()
	fmt.Printf("frames=%d lost=%d resyncs=%d discarded_bytes=%d skipped=%d\n",
		ls.Frames, ls.Lost, ls.Resyncs, ls.Discarded, m.Skipped())
	if p, ok := m.Pressure(); ok {
		fmt.Printf("last airway sample t=%.1fs pressure=%.2fhPa temperature=%.2fC\n",
			float64(p.Uptime)/1000, float64(p.Pressure)/100000, float64(p.Temperature)/1000)
	}
}
