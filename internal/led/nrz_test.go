package led

import (
	"bytes"
	"testing"

	"periph.io/x/conn/v3/spi/spitest"
)

func TestNRZRecordsFrame(t *testing.T) {
	buf := bytes.Buffer{}
	n, err := NewNRZOnPort(spitest.NewRecordRaw(&buf), 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Write([]byte{0, 254, 0, 63, 255, 0}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("nothing reached the SPI port")
	}
}

func TestNRZRejectsShortFrame(t *testing.T) {
	buf := bytes.Buffer{}
	n, err := NewNRZOnPort(spitest.NewRecordRaw(&buf), 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Write([]byte{1, 2, 3}); err == nil {
		t.Fatal("short frame accepted")
	}
}
