// Command gbcore runs a DMG ROM either in an interactive window or
// headlessly for a fixed number of frames, emitting a framebuffer PNG
// and/or CRC32 checksum. Flags belong to a single cobra root command
// whose RunE closure reads its own local flag variables, rather than
// one flat flag.Parse call.
package main

import (
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmgcore/gbcore/internal/cart"
	"github.com/dmgcore/gbcore/internal/cartio"
	"github.com/dmgcore/gbcore/internal/system"
	"github.com/dmgcore/gbcore/internal/ui"
)

func main() {
	var (
		romPath  string
		bootPath string
		scale    int
		title    string
		saveRAM  bool

		headless bool
		frames   int
		pngOut   string
		expect   string
	)

	root := &cobra.Command{
		Use:   "gbcore",
		Short: "Run a Game Boy ROM",
		RunE: func(cmd *cobra.Command, args []string) error {
			if romPath == "" {
				return fmt.Errorf("--rom is required")
			}
			rom, err := cartio.LoadROM(romPath)
			if err != nil {
				return err
			}
			boot := cartio.LoadOptional(bootPath)

			if h, err := cart.ParseHeader(rom); err == nil {
				log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
			}

			m := system.New()
			if err := m.LoadCartridge(rom, boot); err != nil {
				return fmt.Errorf("load cartridge: %w", err)
			}

			savPath := savePathFor(romPath, saveRAM)
			if savPath != "" {
				if data, err := os.ReadFile(savPath); err == nil {
					if m.LoadBattery(data) {
						log.Printf("loaded save RAM: %s (%d bytes)", savPath, len(data))
					}
				}
			}

			if headless {
				if err := runHeadless(m, frames, pngOut, expect); err != nil {
					return err
				}
				return persistBattery(m, savPath)
			}

			uiCfg := ui.Config{Title: title, Scale: scale}
			app := ui.NewApp(uiCfg, m)
			if err := app.Run(); err != nil {
				return err
			}
			return persistBattery(m, savPath)
		},
	}

	root.Flags().StringVar(&romPath, "rom", "", "path to ROM (.gb)")
	root.Flags().StringVar(&bootPath, "bootrom", "", "optional DMG boot ROM")
	root.Flags().IntVar(&scale, "scale", 3, "window scale")
	root.Flags().StringVar(&title, "title", "gbcore", "window title")
	root.Flags().BoolVar(&saveRAM, "save", true, "persist battery RAM to ROM.sav on exit and load on start")

	root.Flags().BoolVar(&headless, "headless", false, "run without a window")
	root.Flags().IntVar(&frames, "frames", 300, "frames to run in headless mode")
	root.Flags().StringVar(&pngOut, "outpng", "", "write last framebuffer to PNG at path")
	root.Flags().StringVar(&expect, "expect", "", "assert framebuffer CRC32 (hex)")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func savePathFor(romPath string, enabled bool) string {
	if !enabled || romPath == "" {
		return ""
	}
	return strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".sav"
}

func persistBattery(m *system.Machine, savPath string) error {
	if savPath == "" {
		return nil
	}
	data, ok := m.SaveBattery()
	if !ok || len(data) == 0 {
		return nil
	}
	if err := os.WriteFile(savPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", savPath, err)
	}
	log.Printf("wrote %s", savPath)
	return nil
}

func runHeadless(m *system.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}

	start := time.Now()
	for i := 0; i < frames; i++ {
		m.StepFrame()
	}
	dur := time.Since(start)

	fb := m.Framebuffer() // RGBA 160x144*4
	crc := crc32.ChecksumIEEE(fb)
	fps := float64(frames) / dur.Seconds()

	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := saveFramePNG(fb, system.Width, system.Height, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}

	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    make([]byte, len(pix)),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	copy(img.Pix, pix)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
