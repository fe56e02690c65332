// Command testrunner drives a ROM headlessly to completion, watching
// its serial output for Blargg/Mooneye-style pass/fail markers. Its
// "steps" count M-cycles, not completed instructions, since the
// system tick loop (internal/system) only exposes a per-M-cycle
// Tick(), not an instruction-granular one.
package main

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmgcore/gbcore/internal/cartio"
	"github.com/dmgcore/gbcore/internal/serial"
	"github.com/dmgcore/gbcore/internal/system"
)

// ringLog is a fixed-size byte ring, used to keep the last N bytes of
// serial output around for diagnostics without unbounded growth.
type ringLog struct {
	buf  []byte
	idx  int
	fill int
}

func newRingLog(size int) *ringLog {
	if size < 256 {
		size = 256
	}
	return &ringLog{buf: make([]byte, size)}
}

func (r *ringLog) Write(p []byte) (int, error) {
	for _, ch := range p {
		r.buf[r.idx] = ch
		r.idx = (r.idx + 1) % len(r.buf)
		if r.fill < len(r.buf) {
			r.fill++
		}
	}
	return len(p), nil
}

func (r *ringLog) String() string {
	start := (r.idx - r.fill + len(r.buf)) % len(r.buf)
	out := make([]byte, 0, r.fill)
	for i := 0; i < r.fill; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return string(out)
}

// captureConnection answers every exchange with a 1 bit (nothing is
// actually plugged into the cable) while assembling the outgoing bits
// into bytes and mirroring each byte into a sink for pattern detection.
type captureConnection struct {
	sink   func(byte)
	bits   int
	accum  byte
}

func (c *captureConnection) ExchangeBit(out bool) bool {
	c.accum <<= 1
	if out {
		c.accum |= 1
	}
	c.bits++
	if c.bits == 8 {
		c.sink(c.accum)
		c.bits, c.accum = 0, 0
	}
	return true
}

var _ serial.Connection = (*captureConnection)(nil)

type traceEntry struct {
	pc                     uint16
	a, f, b, c, d, e, h, l byte
	sp                     uint16
	ime                    bool
	ifreg, ie              byte
}

func main() {
	var (
		romPath       string
		bootPath      string
		maxSteps      int
		trace         bool
		until         string
		auto          bool
		timeout       time.Duration
		traceOnFail   bool
		traceWindow   int
		serialWindow  int
	)

	root := &cobra.Command{
		Use:   "testrunner",
		Short: "Run a test ROM and watch serial output for pass/fail markers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if romPath == "" {
				return fmt.Errorf("--rom is required")
			}
			rom, err := cartio.LoadROM(romPath)
			if err != nil {
				return err
			}
			boot := cartio.LoadOptional(bootPath)

			m := system.New()
			if err := m.LoadCartridge(rom, boot); err != nil {
				return fmt.Errorf("load cartridge: %w", err)
			}

			var serialText strings.Builder
			var ring *ringLog
			if until != "" || auto {
				ring = newRingLog(serialWindow)
				m.Bus().SetSerialConnection(&captureConnection{sink: func(b byte) {
					serialText.WriteByte(b)
					fmt.Printf("%c", b)
					ring.Write([]byte{b})
				}})
			}

			start := time.Now()
			var deadline time.Time
			if timeout > 0 {
				deadline = start.Add(timeout)
			}
			failRe := regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)
			stageRe := regexp.MustCompile(`\b(\d{2}:\d{2})\b`)
			lastStage := ""

			traceRing := make([]traceEntry, traceWindow)
			traceIdx, traceFill := 0, 0

			for i := 0; i < maxSteps; i++ {
				if trace || traceOnFail {
					c := m.CPU()
					te := traceEntry{
						pc: c.PC, a: c.A, f: c.F, b: c.B, c: c.C, d: c.D, e: c.E, h: c.H, l: c.L,
						sp: c.SP, ime: c.IME, ifreg: m.Bus().ReadInterruptFlag(), ie: m.Bus().ReadInterruptEnable(),
					}
					if trace {
						printTrace(te)
					}
					if traceOnFail && traceWindow > 0 {
						traceRing[traceIdx] = te
						traceIdx = (traceIdx + 1) % traceWindow
						if traceFill < traceWindow {
							traceFill++
						}
					}
				}

				m.Tick()

				if auto {
					s := serialText.String()
					if mm := stageRe.FindAllString(s, -1); len(mm) > 0 {
						lastStage = mm[len(mm)-1]
					}
					if strings.Contains(strings.ToLower(s), "passed") {
						fmt.Printf("\nDetected PASS in serial output.\n")
						if lastStage != "" {
							fmt.Printf("Last stage seen: %s\n", lastStage)
						}
						fmt.Printf("\nDone: steps=%d elapsed=%s\n", i+1, time.Since(start).Truncate(time.Millisecond))
						return nil
					}
					if mm := failRe.FindStringSubmatch(s); mm != nil {
						fmt.Printf("\nDetected %s in serial output.\n", mm[0])
						if lastStage != "" {
							fmt.Printf("Last stage seen: %s\n", lastStage)
						}
						if traceOnFail && traceFill > 0 {
							dumpTrace(traceRing, traceIdx, traceFill, traceWindow)
						}
						if ring != nil && ring.fill > 0 {
							fmt.Printf("\n--- recent serial (last %d bytes) ---\n%s\n--- end serial ---\n", ring.fill, ring.String())
						}
						fmt.Printf("\nDone: steps=%d elapsed=%s\n", i+1, time.Since(start).Truncate(time.Millisecond))
						os.Exit(1)
					}
				} else if until != "" {
					if strings.Contains(strings.ToLower(serialText.String()), strings.ToLower(until)) {
						fmt.Printf("\nDetected '%s' in serial output.\n", until)
						fmt.Printf("\nDone: steps=%d elapsed=%s\n", i+1, time.Since(start).Truncate(time.Millisecond))
						return nil
					}
				}

				if !deadline.IsZero() && time.Now().After(deadline) {
					fmt.Printf("\nTimeout after %s.\n", time.Since(start).Truncate(time.Millisecond))
					os.Exit(2)
				}
			}
			fmt.Printf("\nDone: steps=%d elapsed=%s\n", maxSteps, time.Since(start).Truncate(time.Millisecond))
			return nil
		},
	}

	root.Flags().StringVar(&romPath, "rom", "", "path to ROM (.gb)")
	root.Flags().StringVar(&bootPath, "bootrom", "", "optional DMG boot ROM to run from 0x0000 until FF50 disables it")
	root.Flags().IntVar(&maxSteps, "steps", 40_000_000, "max M-cycles to run")
	root.Flags().BoolVar(&trace, "trace", false, "print PC/registers every M-cycle")
	root.Flags().StringVar(&until, "until", "Passed", "stop when serial output contains this substring (case-insensitive); empty to disable")
	root.Flags().BoolVar(&auto, "auto", false, "auto-detect 'Passed' or 'Failed N tests' in serial output and exit with code 0/1")
	root.Flags().DurationVar(&timeout, "timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	root.Flags().BoolVar(&traceOnFail, "traceOnFail", false, "when --auto detects failure, print a recent trace window")
	root.Flags().IntVar(&traceWindow, "traceWindow", 200, "number of recent M-cycles to include in traceOnFail dump")
	root.Flags().IntVar(&serialWindow, "serialWindow", 8192, "number of recent serial bytes to retain for diagnostics on fail")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func printTrace(te traceEntry) {
	fmt.Printf("PC=%04X A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t IF=%02X IE=%02X\n",
		te.pc, te.a, te.f, te.b, te.c, te.d, te.e, te.h, te.l, te.sp, te.ime, te.ifreg, te.ie)
}

func dumpTrace(ring []traceEntry, idx, fill, window int) {
	fmt.Printf("\n--- recent trace (last %d M-cycles) ---\n", fill)
	start := (idx - fill + window) % window
	for j := 0; j < fill; j++ {
		printTrace(ring[(start+j)%window])
	}
	fmt.Printf("--- end trace ---\n")
}
