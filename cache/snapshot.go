// Package cache persists a fully built dataset so later runs skip the
// fetch, unit harmonization, normalization, and gap fill work. A
// snapshot file is a fixed header, a JSON metadata section, and a
// packed little endian float64 payload; both sections run through a
// selectable codec and are guarded by an xxhash checksum.
package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/basinlab/go-hydrosample/hydrodata"
	"github.com/basinlab/go-hydrosample/scaler"
	"github.com/basinlab/go-hydrosample/series"
	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

var (
	ErrBadMagic    = errors.New("not a snapshot file")
	ErrBadVersion  = errors.New("unsupported snapshot version")
	ErrChecksum    = errors.New("snapshot checksum mismatch")
	ErrTruncated   = errors.New("snapshot truncated")
	ErrPayloadSize = errors.New("payload does not match metadata dimensions")
)

var snapshotMagic = [4]byte{'H', 'Y', 'S', 'P'}

// Header layout: magic, version byte, codec byte, two reserved bytes,
// compressed section lengths, then the checksum over both compressed
// sections.
const (
	snapshotVersion = 1
	headerSize      = 4 + 1 + 1 + 2 + 4 + 4 + 8
)

// StreamMeta describes one persisted multi basin stream. The time axis
// is contiguous daily, so the range alone reconstructs it.
type StreamMeta struct {
	Basins []string            `json:"basins"`
	Range  hydrodata.TimeRange `json:"range"`
	Vars   []string            `json:"vars"`
	Units  map[string]string   `json:"units,omitempty"`
}

// AttrMeta describes the persisted static attribute table.
type AttrMeta struct {
	Basins []string `json:"basins"`
	Names  []string `json:"names"`
}

// Meta is the JSON section: everything needed to size and rebuild the
// payload arrays, plus the fitted scaler state and the options the
// dataset was built with.
type Meta struct {
	CreatedAt time.Time       `json:"created_at"`
	Options   json.RawMessage `json:"options,omitempty"`
	Stats     *scaler.Stats   `json:"stats,omitempty"`

	Target  *StreamMeta `json:"target,omitempty"`
	Forcing *StreamMeta `json:"forcing,omitempty"`
	Static  *AttrMeta   `json:"static,omitempty"`
}

// Snapshot is a materialized dataset state. Absent streams stay nil.
type Snapshot struct {
	Meta    Meta
	Target  *series.MultiBasin
	Forcing *series.MultiBasin
	Static  *series.Attributes
}

// Encode serializes the snapshot. The stream metadata is derived from
// the arrays; only CreatedAt, Options, and Stats are taken from the
// caller's Meta.
func Encode(s *Snapshot, c CompressionType) ([]byte, error) {
	codec, err := GetCodec(c)
	if err != nil {
		return nil, err
	}

	meta := s.Meta
	meta.Target = streamMetaOf(s.Target)
	meta.Forcing = streamMetaOf(s.Forcing)
	meta.Static = attrMetaOf(s.Static)
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	rawMeta, err := json.Marshal(&meta)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal snapshot metadata, %w", err)
	}
	payload, err := packPayload(s)
	if err != nil {
		return nil, err
	}

	compMeta, err := codec.Compress(rawMeta)
	if err != nil {
		return nil, fmt.Errorf("unable to compress metadata section, %w", err)
	}
	compPayload, err := codec.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("unable to compress payload section, %w", err)
	}

	digest := xxhash.New()
	_, _ = digest.Write(compMeta)
	_, _ = digest.Write(compPayload)

	buf := make([]byte, 0, headerSize+len(compMeta)+len(compPayload))
	buf = append(buf, snapshotMagic[:]...)
	buf = append(buf, snapshotVersion, byte(c), 0, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(compMeta)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(compPayload)))
	buf = binary.LittleEndian.AppendUint64(buf, digest.Sum64())
	buf = append(buf, compMeta...)
	buf = append(buf, compPayload...)
	return buf, nil
}

// Decode parses a snapshot, verifying magic, version, and checksum
// before touching either section.
func Decode(raw []byte) (*Snapshot, error) {
	if len(raw) < headerSize {
		return nil, ErrTruncated
	}
	if !bytes.Equal(raw[:4], snapshotMagic[:]) {
		return nil, ErrBadMagic
	}
	if raw[4] != snapshotVersion {
		return nil, fmt.Errorf("version %d, %w", raw[4], ErrBadVersion)
	}
	codec, err := GetCodec(CompressionType(raw[5]))
	if err != nil {
		return nil, err
	}
	metaLen := int(binary.LittleEndian.Uint32(raw[8:12]))
	payloadLen := int(binary.LittleEndian.Uint32(raw[12:16]))
	sum := binary.LittleEndian.Uint64(raw[16:24])
	if len(raw) != headerSize+metaLen+payloadLen {
		return nil, ErrTruncated
	}

	body := raw[headerSize:]
	compMeta, compPayload := body[:metaLen], body[metaLen:]
	digest := xxhash.New()
	_, _ = digest.Write(compMeta)
	_, _ = digest.Write(compPayload)
	if digest.Sum64() != sum {
		return nil, ErrChecksum
	}

	rawMeta, err := codec.Decompress(compMeta)
	if err != nil {
		return nil, fmt.Errorf("unable to decompress metadata section, %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return nil, fmt.Errorf("unable to unmarshal snapshot metadata, %w", err)
	}
	payload, err := codec.Decompress(compPayload)
	if err != nil {
		return nil, fmt.Errorf("unable to decompress payload section, %w", err)
	}
	return unpack(meta, payload)
}

// Save writes the snapshot atomically, staging to a temp file in the
// destination directory and renaming over the target path.
func Save(path string, s *Snapshot, c CompressionType) error {
	raw, err := Encode(s, c)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("unable to stage snapshot, %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write snapshot, %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close snapshot, %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("unable to publish snapshot, %w", err)
	}
	return nil
}

// Load reads and decodes a snapshot file.
func Load(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read snapshot, %w", err)
	}
	return Decode(raw)
}

func streamMetaOf(mb *series.MultiBasin) *StreamMeta {
	if mb == nil {
		return nil
	}
	m := &StreamMeta{
		Basins: mb.Basins(),
		Vars:   mb.Variables(),
	}
	if times := mb.Times(); len(times) > 0 {
		m.Range = hydrodata.TimeRange{Start: times[0], End: times[len(times)-1]}
	}
	for _, v := range m.Vars {
		if u := mb.Unit(v); u != "" {
			if m.Units == nil {
				m.Units = make(map[string]string)
			}
			m.Units[v] = u
		}
	}
	return m
}

func attrMetaOf(a *series.Attributes) *AttrMeta {
	if a == nil {
		return nil
	}
	return &AttrMeta{Basins: a.Basins(), Names: a.Names()}
}

func streamSize(m *StreamMeta) int {
	if m == nil {
		return 0
	}
	return len(m.Basins) * m.Range.Days() * len(m.Vars)
}

func attrSize(m *AttrMeta) int {
	if m == nil {
		return 0
	}
	return len(m.Basins) * len(m.Names)
}

// packPayload lays the streams out target, forcing, static; within a
// stream basin major, variable minor.
func packPayload(s *Snapshot) ([]byte, error) {
	n := 0
	for _, mb := range []*series.MultiBasin{s.Target, s.Forcing} {
		if mb == nil {
			continue
		}
		nb, nt, nv := mb.Dims()
		n += nb * nt * nv
	}
	if s.Static != nil {
		nb, cols := s.Static.Dims()
		n += nb * cols
	}

	buf := make([]byte, 0, n*8)
	var err error
	if buf, err = appendMultiBasin(buf, s.Target); err != nil {
		return nil, err
	}
	if buf, err = appendMultiBasin(buf, s.Forcing); err != nil {
		return nil, err
	}
	return appendAttributes(buf, s.Static)
}

func appendMultiBasin(buf []byte, mb *series.MultiBasin) ([]byte, error) {
	if mb == nil {
		return buf, nil
	}
	nb, _, nv := mb.Dims()
	for b := 0; b < nb; b++ {
		for v := 0; v < nv; v++ {
			vals, err := mb.Series(b, v)
			if err != nil {
				return nil, err
			}
			for _, x := range vals {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
			}
		}
	}
	return buf, nil
}

func appendAttributes(buf []byte, a *series.Attributes) ([]byte, error) {
	if a == nil {
		return buf, nil
	}
	nb, _ := a.Dims()
	for b := 0; b < nb; b++ {
		row, err := a.Row(b)
		if err != nil {
			return nil, err
		}
		for _, x := range row {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
		}
	}
	return buf, nil
}

func unpack(meta Meta, payload []byte) (*Snapshot, error) {
	if len(payload)%8 != 0 {
		return nil, fmt.Errorf("%d payload bytes, %w", len(payload), ErrPayloadSize)
	}
	vals := make([]float64, len(payload)/8)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
	}
	want := streamSize(meta.Target) + streamSize(meta.Forcing) + attrSize(meta.Static)
	if len(vals) != want {
		return nil, fmt.Errorf("%d values over %d expected, %w", len(vals), want, ErrPayloadSize)
	}

	s := &Snapshot{Meta: meta}
	off := 0
	var err error
	if s.Target, off, err = unpackStream(meta.Target, vals, off); err != nil {
		return nil, err
	}
	if s.Forcing, off, err = unpackStream(meta.Forcing, vals, off); err != nil {
		return nil, err
	}
	if s.Static, err = unpackAttributes(meta.Static, vals[off:]); err != nil {
		return nil, err
	}
	return s, nil
}

func unpackStream(m *StreamMeta, vals []float64, off int) (*series.MultiBasin, int, error) {
	if m == nil {
		return nil, off, nil
	}
	mb, err := series.NewMultiBasin(m.Basins, m.Range.Axis(), m.Vars)
	if err != nil {
		return nil, 0, err
	}
	nb, nt, nv := mb.Dims()
	for b := 0; b < nb; b++ {
		for v := 0; v < nv; v++ {
			if err := mb.SetSeries(b, v, vals[off:off+nt]); err != nil {
				return nil, 0, err
			}
			off += nt
		}
	}
	for name, unit := range m.Units {
		if err := mb.SetUnit(name, unit); err != nil {
			return nil, 0, err
		}
	}
	return mb, off, nil
}

func unpackAttributes(m *AttrMeta, vals []float64) (*series.Attributes, error) {
	if m == nil {
		return nil, nil
	}
	a, err := series.NewAttributes(m.Basins, m.Names)
	if err != nil {
		return nil, err
	}
	cols := len(m.Names)
	for b := range m.Basins {
		if err := a.SetRow(b, vals[b*cols:(b+1)*cols]); err != nil {
			return nil, err
		}
	}
	return a, nil
}
