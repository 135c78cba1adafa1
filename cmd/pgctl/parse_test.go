package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pglist/phys"
)

func TestParseSegment(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    phys.Region
		wantErr bool
	}{
		{"plain", "0x0-0x10000", phys.Region{Start: 0, End: 0x10000}, false},
		{"suffixes", "16M-32M", phys.Region{Start: 16 << 20, End: 32 << 20}, false},
		{"class", "0-1M:first16m", phys.Region{End: 1 << 20, Class: phys.ClassFirst16M}, false},
		{
			"avail and class",
			"0x0-0x10000/0x1000-0xf000:first4g",
			phys.Region{End: 0x10000, AvailStart: 0x1000, AvailEnd: 0xf000, Class: phys.ClassFirst4G},
			false,
		},
		{"missing end", "0x1000", phys.Region{}, true},
		{"bad number", "0x0-zz", phys.Region{}, true},
		{"bad class", "0x0-0x1000:dma", phys.Region{}, true},
		{"bad avail", "0x0-0x1000/0x0", phys.Region{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSegment(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseAddr(t *testing.T) {
	a, err := parseAddr("")
	require.NoError(t, err)
	require.Zero(t, a)

	a, err = parseAddr("0x8000")
	require.NoError(t, err)
	require.Equal(t, phys.Addr(0x8000), a)

	_, err = parseAddr("nope")
	require.Error(t, err)
}
