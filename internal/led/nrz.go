package led

import (
	"fmt"
	"image"
	"image/color"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"
)

// refreshKHz is the string's bit clock in kHz (800 kbit/s for WS2812B-class
// parts). The SPI clock runs at 3x plus headroom for the NRZ expansion.
const refreshKHz = 800

// NRZ pushes completed transfers to a real WS2812/SK6812 string over SPI.
type NRZ struct {
	drawer display.Drawer
	count  int
	port   spi.PortCloser
}

// NewNRZ opens an SPI port by spireg name ("" picks the first available) and
// attaches an nrzled driver sized for count LEDs. Without SPI hardware it
// falls back to drawing the string on the console.
func NewNRZ(dev string, count int) (*NRZ, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	port, err := spireg.Open(dev)
	if err != nil {
		log.Warn().Err(err).Msg("no SPI port; drawing LED frames on the console")
		return &NRZ{drawer: screen.New(count), count: count}, nil
	}
	n, err := NewNRZOnPort(port, count)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	n.port = port
	return n, nil
}

// NewNRZOnPort attaches the nrzled driver to an existing SPI port.
func NewNRZOnPort(p spi.Port, count int) (*NRZ, error) {
	opts := nrzled.Opts{
		NumPixels: count,
		Channels:  3,
		Freq:      ((refreshKHz * 3) + 100) * physic.KiloHertz,
	}
	d, err := nrzled.NewSPI(p, &opts)
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	_ = d.Halt()
	return &NRZ{drawer: d, count: count}, nil
}

// Write draws one GRB frame. The engine streams GRB wire order; the drawer
// wants an image, so swap back to RGB per pixel.
func (n *NRZ) Write(grb []byte) error {
	if len(grb) != n.count*3 {
		return fmt.Errorf("frame is %d bytes, want %d", len(grb), n.count*3)
	}
	img := image.NewNRGBA(image.Rect(0, 0, n.count, 1))
	for i := 0; i < n.count; i++ {
		img.SetNRGBA(i, 0, color.NRGBA{
			R: grb[i*3+1],
			G: grb[i*3+0],
			B: grb[i*3+2],
			A: 0xFF,
		})
	}
	if err := n.drawer.Draw(n.drawer.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	return nil
}

func (n *NRZ) Close() error {
	err := n.drawer.Halt()
	if n.port != nil {
		if cerr := n.port.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
