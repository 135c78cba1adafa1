package phys

import "slices"

// PageList is an ordered, caller-owned list of pages in claim order.
// A page never appears twice in a list.
type PageList []*Page

// Extent is a maximal run of address-contiguous pages.
type Extent struct {
	Start Addr
	Pages int
}

// End returns the first address past the extent.
func (e Extent) End(pageSize uint64) Addr {
	return e.Start + Addr(uint64(e.Pages)*pageSize)
}

// Len returns the number of pages in the list.
func (l PageList) Len() int { return len(l) }

// Addrs returns the page addresses in list order.
func (l PageList) Addrs() []Addr {
	out := make([]Addr, len(l))
	for i, p := range l {
		out[i] = p.Addr()
	}
	return out
}

// Extents groups the list into maximal address-contiguous runs, sorted by
// address. List order is not preserved.
func (l PageList) Extents() []Extent {
	if len(l) == 0 {
		return nil
	}
	addrs := l.Addrs()
	slices.Sort(addrs)
	ps := Addr(l[0].seg.pageSize)

	out := []Extent{{Start: addrs[0], Pages: 1}}
	for _, a := range addrs[1:] {
		last := &out[len(out)-1]
		if a == last.Start+Addr(last.Pages)*ps {
			last.Pages++
			continue
		}
		out = append(out, Extent{Start: a, Pages: 1})
	}
	return out
}

// Bytes returns the total size of the list in bytes.
func (l PageList) Bytes() uint64 {
	if len(l) == 0 {
		return 0
	}
	return uint64(len(l)) * l[0].seg.pageSize
}
