package driver

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ledwall/internal/hub75"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"", KindAuto},
		{"auto", KindAuto},
		{"GPIO", KindGPIO},
		{" sim ", KindSim},
		{"Periph", KindPeriph},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if err != nil {
			t.Errorf("ParseKind(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := ParseKind("dma"); err == nil {
		t.Error("unknown kind parsed")
	}
}

func TestOpenSim(t *testing.T) {
	sink, kind, err := Open(KindSim, "", simConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sink.Close()
	if kind != KindSim {
		t.Fatalf("kind = %q, want sim", kind)
	}
	if _, ok := sink.(*Sim); !ok {
		t.Fatalf("open returned %T, want *Sim", sink)
	}
}

func TestOpenUnknownKind(t *testing.T) {
	if _, _, err := Open(Kind("dma"), "", simConfig(), zerolog.Nop()); err == nil {
		t.Fatal("unknown kind opened")
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	cfg := simConfig()
	cfg.Width = 63
	if _, _, err := Open(KindSim, "", cfg, zerolog.Nop()); !errors.Is(err, hub75.ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}
