package main

import (
	"log"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"satleds/pkg/device/apa102"
	"satleds/pkg/proto"
)

var dev = flag.String("spi", "/dev/spidev0.0", "spi device")
var leds = flag.Int("leds", 3, "LED count")
var order = flag.String("order", "BGR", "channel order")
var brightness = flag.Int("brightness", 31, "global brightness cap (1-31)")
var dwell = flag.Duration("dwell", time.Second, "time per color")

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()

	strip, err := apa102.New(proto.NewSPI(*dev), logger, apa102.Config{
		Count:      *leds,
		Brightness: *brightness,
		Order:      *order,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		strip.Fill(0, 0, 0)
		_ = strip.Show()
		_ = strip.Close()
	}()

	colors := [][3]byte{
		{255, 0, 0},
		{0, 255, 0},
		{0, 0, 255},
		{255, 255, 255},
	}

	for _, c := range colors {
		strip.Fill(c[0], c[1], c[2])
		if err := strip.Show(); err != nil {
			log.Fatal(err)
		}
		time.Sleep(*dwell)
	}

	// walk a single dimmed pixel down the strip
	for i := 0; i < *leds; i++ {
		strip.Fill(0, 0, 0)
		strip.SetPixel(i, 255, 255, 255, 50)
		if err := strip.Show(); err != nil {
			log.Fatal(err)
		}
		time.Sleep(*dwell / 2)
	}
}
