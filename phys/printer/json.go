package printer

import (
	"encoding/json"

	"github.com/joshuapare/pglist/phys"
	"github.com/joshuapare/pglist/phys/pglist"
	"github.com/joshuapare/pglist/phys/reclaim"
)

type jsonSegment struct {
	ID         int    `json:"id"`
	Class      string `json:"class"`
	Start      string `json:"start"`
	End        string `json:"end"`
	AvailStart string `json:"avail_start"`
	AvailEnd   string `json:"avail_end"`
	Pages      int    `json:"pages"`
	Free       int    `json:"free"`
	Hint       int    `json:"hint"`
}

type jsonLayout struct {
	PageSize   uint64        `json:"page_size"`
	Colors     int           `json:"colors"`
	TotalPages int           `json:"total_pages"`
	Free       int           `json:"free"`
	Segments   []jsonSegment `json:"segments"`
}

type jsonExtent struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Pages int    `json:"pages"`
}

type jsonList struct {
	Pages   int          `json:"pages"`
	Bytes   uint64       `json:"bytes"`
	Extents []jsonExtent `json:"extents"`
	Addrs   []string     `json:"addrs,omitempty"`
}

type jsonStats struct {
	Allocator pglist.Stats   `json:"allocator"`
	Reclaim   *reclaim.Stats `json:"reclaim,omitempty"`
}

func (p *Printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", " ")
	return enc.Encode(v)
}

func (p *Printer) printLayoutJSON(m *phys.Manager) error {
	l := m.Layout()
	out := jsonLayout{
		PageSize:   l.PageSize(),
		Colors:     l.Colors(),
		TotalPages: l.TotalPages(),
		Free:       m.FreeCount(),
	}
	for _, seg := range l.Segments() {
		free, hint := segmentFree(m, seg)
		out.Segments = append(out.Segments, jsonSegment{
			ID:         seg.ID(),
			Class:      seg.Class().String(),
			Start:      seg.Start().String(),
			End:        seg.End().String(),
			AvailStart: seg.AvailStart().String(),
			AvailEnd:   seg.AvailEnd().String(),
			Pages:      seg.NumPages(),
			Free:       free,
			Hint:       hint,
		})
	}
	return p.writeJSON(out)
}

func (p *Printer) printListJSON(list phys.PageList, pageSize uint64) error {
	out := jsonList{
		Pages:   len(list),
		Bytes:   uint64(len(list)) * pageSize,
		Extents: []jsonExtent{},
	}
	for _, e := range list.Extents() {
		out.Extents = append(out.Extents, jsonExtent{
			Start: e.Start.String(),
			End:   e.End(pageSize).String(),
			Pages: e.Pages,
		})
	}
	if p.opts.ShowPages {
		for _, a := range list.Addrs() {
			out.Addrs = append(out.Addrs, a.String())
		}
	}
	return p.writeJSON(out)
}

func (p *Printer) printStatsJSON(st pglist.Stats, d *reclaim.Stats) error {
	return p.writeJSON(jsonStats{Allocator: st, Reclaim: d})
}
