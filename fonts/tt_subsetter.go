package fonts

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// SubsetTrueType drops the outlines of glyphs not in used. Glyph ids are
// kept, so the result still works with Identity-H and CIDToGIDMap
// Identity. Composite glyph components are kept along with their parents.
// Fonts without glyf outlines are returned unchanged.
func SubsetTrueType(data []byte, used map[int]bool) ([]byte, error) {
	p := &ttParser{data: data}
	if err := p.parseDirectory(); err != nil {
		return nil, err
	}
	for _, tag := range []string{"glyf", "loca", "head", "maxp", "hmtx", "hhea"} {
		if !p.has(tag) {
			return data, nil
		}
	}
	// Complex shaping relies on glyphs the shaper may substitute in later.
	if p.hasComplexScript() {
		return data, nil
	}

	head, err := p.table("head")
	if err != nil {
		return nil, err
	}
	maxp, err := p.table("maxp")
	if err != nil {
		return nil, err
	}
	if len(head) < 54 || len(maxp) < 6 {
		return nil, fmt.Errorf("head or maxp table truncated")
	}
	longLoca := int16(binary.BigEndian.Uint16(head[50:52])) == 1
	numGlyphs := int(binary.BigEndian.Uint16(maxp[4:6]))

	keep := map[int]bool{0: true}
	for gid := range used {
		if gid >= 0 && gid < numGlyphs {
			keep[gid] = true
		}
	}
	if err := p.closeComposites(keep, numGlyphs, longLoca); err != nil {
		return nil, fmt.Errorf("compute closure: %w", err)
	}

	last := 0
	for gid := range keep {
		last = max(last, gid)
	}
	count := last + 1

	glyf, loca, err := p.rebuildGlyfLoca(keep, count, longLoca)
	if err != nil {
		return nil, err
	}
	hmtx, err := p.rebuildHmtx(count)
	if err != nil {
		return nil, err
	}

	w := &ttWriter{}
	w.add("glyf", glyf)
	w.add("loca", loca)
	w.add("hmtx", hmtx)

	newMaxp := append([]byte(nil), maxp...)
	binary.BigEndian.PutUint16(newMaxp[4:], uint16(count))
	w.add("maxp", newMaxp)

	// The rebuilt loca is always the long format.
	newHead := append([]byte(nil), head...)
	binary.BigEndian.PutUint16(newHead[50:], 1)
	w.add("head", newHead)

	for _, tag := range []string{"hhea", "cmap", "name", "OS/2", "post", "cvt ", "fpgm", "prep", "gasp"} {
		if !p.has(tag) {
			continue
		}
		t, err := p.table(tag)
		if err != nil {
			return nil, err
		}
		switch {
		case tag == "hhea" && len(t) >= 36:
			t = append([]byte(nil), t...)
			binary.BigEndian.PutUint16(t[34:], uint16(count))
		case tag == "post" && len(t) >= 32:
			// Glyph names are indexed by the old glyph count; version 3
			// carries none.
			t = append([]byte(nil), t[:32]...)
			binary.BigEndian.PutUint32(t, 0x00030000)
		}
		w.add(tag, t)
	}
	return w.bytes(), nil
}

type ttParser struct {
	data   []byte
	tables map[string]tableEntry
}

type tableEntry struct {
	offset uint32
	length uint32
}

func (p *ttParser) parseDirectory() error {
	if len(p.data) < 12 {
		return fmt.Errorf("invalid font header")
	}
	n := int(binary.BigEndian.Uint16(p.data[4:6]))
	p.tables = make(map[string]tableEntry, n)
	for i := 0; i < n; i++ {
		rec := 12 + 16*i
		if rec+16 > len(p.data) {
			return fmt.Errorf("table directory truncated")
		}
		p.tables[string(p.data[rec:rec+4])] = tableEntry{
			offset: binary.BigEndian.Uint32(p.data[rec+8:]),
			length: binary.BigEndian.Uint32(p.data[rec+12:]),
		}
	}
	return nil
}

func (p *ttParser) has(tag string) bool {
	_, ok := p.tables[tag]
	return ok
}

func (p *ttParser) table(tag string) ([]byte, error) {
	e, ok := p.tables[tag]
	if !ok {
		return nil, fmt.Errorf("table %s not found", tag)
	}
	end := uint64(e.offset) + uint64(e.length)
	if end > uint64(len(p.data)) {
		return nil, fmt.Errorf("table %s out of bounds", tag)
	}
	return p.data[e.offset:end], nil
}

func (p *ttParser) hasComplexScript() bool {
	gsub, err := p.table("GSUB")
	if err != nil || len(gsub) < 10 {
		return false
	}
	list := int(binary.BigEndian.Uint16(gsub[4:6]))
	if list+2 > len(gsub) {
		return false
	}
	count := int(binary.BigEndian.Uint16(gsub[list:]))
	for i := 0; i < count; i++ {
		rec := list + 2 + 6*i
		if rec+4 > len(gsub) {
			break
		}
		if string(gsub[rec:rec+4]) == "arab" {
			return true
		}
	}
	return false
}

type locaReader struct {
	loca []byte
	long bool
}

func (l locaReader) at(gid int) (uint32, bool) {
	if l.long {
		if (gid+1)*4 > len(l.loca) {
			return 0, false
		}
		return binary.BigEndian.Uint32(l.loca[gid*4:]), true
	}
	if (gid+1)*2 > len(l.loca) {
		return 0, false
	}
	return uint32(binary.BigEndian.Uint16(l.loca[gid*2:])) * 2, true
}

// glyph returns the outline bytes of gid, nil for empty glyphs.
func (l locaReader) glyph(glyf []byte, gid int) []byte {
	start, ok1 := l.at(gid)
	end, ok2 := l.at(gid + 1)
	if !ok1 || !ok2 || start >= end || end > uint32(len(glyf)) {
		return nil
	}
	return glyf[start:end]
}

func (p *ttParser) readers(longLoca bool) (locaReader, []byte, error) {
	loca, err := p.table("loca")
	if err != nil {
		return locaReader{}, nil, err
	}
	glyf, err := p.table("glyf")
	if err != nil {
		return locaReader{}, nil, err
	}
	return locaReader{loca: loca, long: longLoca}, glyf, nil
}

const (
	argsAreWords  = 0x0001
	haveScale     = 0x0008
	moreComponent = 0x0020
	haveXYScale   = 0x0040
	haveTwoByTwo  = 0x0080
)

func (p *ttParser) closeComposites(keep map[int]bool, numGlyphs int, longLoca bool) error {
	loca, glyf, err := p.readers(longLoca)
	if err != nil {
		return err
	}
	queue := make([]int, 0, len(keep))
	for gid := range keep {
		queue = append(queue, gid)
	}
	for len(queue) > 0 {
		gid := queue[0]
		queue = queue[1:]
		if gid >= numGlyphs {
			continue
		}
		g := loca.glyph(glyf, gid)
		if len(g) < 10 || int16(binary.BigEndian.Uint16(g)) >= 0 {
			continue
		}
		for off := 10; off+4 <= len(g); {
			flags := binary.BigEndian.Uint16(g[off:])
			sub := int(binary.BigEndian.Uint16(g[off+2:]))
			if !keep[sub] {
				keep[sub] = true
				queue = append(queue, sub)
			}
			off += 4
			if flags&argsAreWords != 0 {
				off += 4
			} else {
				off += 2
			}
			switch {
			case flags&haveScale != 0:
				off += 2
			case flags&haveXYScale != 0:
				off += 4
			case flags&haveTwoByTwo != 0:
				off += 8
			}
			if flags&moreComponent == 0 {
				break
			}
		}
	}
	return nil
}

func (p *ttParser) rebuildGlyfLoca(keep map[int]bool, count int, longLoca bool) ([]byte, []byte, error) {
	loca, glyf, err := p.readers(longLoca)
	if err != nil {
		return nil, nil, err
	}
	var newGlyf, newLoca bytes.Buffer
	offset := uint32(0)
	for gid := 0; gid < count; gid++ {
		binary.Write(&newLoca, binary.BigEndian, offset)
		if !keep[gid] {
			continue
		}
		g := loca.glyph(glyf, gid)
		newGlyf.Write(g)
		offset += uint32(len(g))
		// Keep every glyph 4-byte aligned.
		for offset%4 != 0 {
			newGlyf.WriteByte(0)
			offset++
		}
	}
	binary.Write(&newLoca, binary.BigEndian, offset)
	return newGlyf.Bytes(), newLoca.Bytes(), nil
}

// rebuildHmtx writes explicit metrics for every kept glyph id.
func (p *ttParser) rebuildHmtx(count int) ([]byte, error) {
	hhea, err := p.table("hhea")
	if err != nil {
		return nil, err
	}
	hmtx, err := p.table("hmtx")
	if err != nil {
		return nil, err
	}
	if len(hhea) < 36 {
		return nil, fmt.Errorf("hhea table truncated")
	}
	metrics := int(binary.BigEndian.Uint16(hhea[34:36]))
	if metrics == 0 || metrics*4 > len(hmtx) {
		return nil, fmt.Errorf("hmtx table truncated")
	}
	var out bytes.Buffer
	for gid := 0; gid < count; gid++ {
		var adv uint16
		var lsb int16
		if gid < metrics {
			adv = binary.BigEndian.Uint16(hmtx[gid*4:])
			lsb = int16(binary.BigEndian.Uint16(hmtx[gid*4+2:]))
		} else {
			adv = binary.BigEndian.Uint16(hmtx[(metrics-1)*4:])
			if off := metrics*4 + (gid-metrics)*2; off+2 <= len(hmtx) {
				lsb = int16(binary.BigEndian.Uint16(hmtx[off:]))
			}
		}
		binary.Write(&out, binary.BigEndian, adv)
		binary.Write(&out, binary.BigEndian, lsb)
	}
	return out.Bytes(), nil
}

type ttWriter struct {
	tables []tableData
}

type tableData struct {
	tag  string
	data []byte
}

func (w *ttWriter) add(tag string, data []byte) {
	w.tables = append(w.tables, tableData{tag, data})
}

func pad4(n int) int { return (n + 3) &^ 3 }

func (w *ttWriter) bytes() []byte {
	sort.Slice(w.tables, func(i, j int) bool { return w.tables[i].tag < w.tables[j].tag })
	n := len(w.tables)

	entrySelector := 0
	for (1 << (entrySelector + 1)) <= n {
		entrySelector++
	}
	searchRange := (1 << entrySelector) * 16

	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x01, 0x00, 0x00})
	binary.Write(&buf, binary.BigEndian, uint16(n))
	binary.Write(&buf, binary.BigEndian, uint16(searchRange))
	binary.Write(&buf, binary.BigEndian, uint16(entrySelector))
	binary.Write(&buf, binary.BigEndian, uint16(n*16-searchRange))

	headAt := -1
	offset := 12 + 16*n
	for _, t := range w.tables {
		if t.tag == "head" && len(t.data) >= 12 {
			headAt = offset
			t.data = append([]byte(nil), t.data...)
			binary.BigEndian.PutUint32(t.data[8:], 0)
		}
		buf.WriteString(t.tag)
		binary.Write(&buf, binary.BigEndian, checksum(t.data))
		binary.Write(&buf, binary.BigEndian, uint32(offset))
		binary.Write(&buf, binary.BigEndian, uint32(len(t.data)))
		offset += pad4(len(t.data))
	}
	for _, t := range w.tables {
		buf.Write(t.data)
		buf.Write(make([]byte, pad4(len(t.data))-len(t.data)))
	}

	out := buf.Bytes()
	if headAt >= 0 {
		// checksumAdjustment is computed with the field itself zeroed.
		binary.BigEndian.PutUint32(out[headAt+8:], 0)
		binary.BigEndian.PutUint32(out[headAt+8:], 0xB1B0AFBA-checksum(out))
	}
	return out
}

func checksum(data []byte) uint32 {
	var sum uint32
	for i := 0; i < len(data); i += 4 {
		var word [4]byte
		copy(word[:], data[i:])
		sum += binary.BigEndian.Uint32(word[:])
	}
	return sum
}
