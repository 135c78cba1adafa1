package main

import (
	"fmt"
	"strings"

	"github.com/joshuapare/pglist/internal/format"
	"github.com/joshuapare/pglist/phys"
)

// parseSegments parses every --segment value.
func parseSegments(specs []string) ([]phys.Region, error) {
	regions := make([]phys.Region, 0, len(specs))
	for _, s := range specs {
		r, err := parseSegment(s)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// parseSegment parses start-end[/availStart-availEnd][:class].
//
// Example:
//
//	parseSegment("0x0-1M/0x1000-1M:first16m")
func parseSegment(s string) (phys.Region, error) {
	var r phys.Region
	rest := s

	if i := strings.LastIndexByte(rest, ':'); i >= 0 {
		c, ok := phys.ParseFreeClass(rest[i+1:])
		if !ok {
			return r, fmt.Errorf("segment %q: unknown class %q", s, rest[i+1:])
		}
		r.Class = c
		rest = rest[:i]
	}

	full, avail, hasAvail := strings.Cut(rest, "/")
	start, end, err := parseRange(full)
	if err != nil {
		return r, fmt.Errorf("segment %q: %w", s, err)
	}
	r.Start, r.End = start, end

	if hasAvail {
		as, ae, err := parseRange(avail)
		if err != nil {
			return r, fmt.Errorf("segment %q available range: %w", s, err)
		}
		r.AvailStart, r.AvailEnd = as, ae
	}
	return r, nil
}

func parseRange(s string) (phys.Addr, phys.Addr, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("range %q: want start-end", s)
	}
	start, err := format.ParseSize(lo)
	if err != nil {
		return 0, 0, err
	}
	end, err := format.ParseSize(hi)
	if err != nil {
		return 0, 0, err
	}
	return phys.Addr(start), phys.Addr(end), nil
}

// parseAddr parses an optional address flag; empty means 0.
func parseAddr(s string) (phys.Addr, error) {
	if s == "" {
		return 0, nil
	}
	v, err := format.ParseSize(s)
	return phys.Addr(v), err
}
