/* Random-access binary store of per-transcript read counts (RC) with an
external byte-offset index (RCI).

Record layout, little-endian:
  name-length:u32 | name | seq-length:u32 | 2-bit packed sequence
  | count[i]:u32 for i in [0, L) | coverage[i]:u32 for i in [0, L)

Sequence packing: A=00 C=01 G=10 T/U=11, four bases per byte, first base in
the two most significant bits; N is stored as A. */

package rfcount

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/BazingaYZ/RNAFramework/RFStats"
)

/*ErrNotFound transcript absent from the store */
var ErrNotFound = errors.New("transcript not found in count store")

/*Entry one transcript worth of counts and coverage */
type Entry struct {
	ID       string
	Sequence string
	Counts   []uint32
	Coverage []uint32

	meanCov   float64
	medianCov float64
	covCached bool
}

/*Length ... */
func (e *Entry) Length() int {
	return len(e.Sequence)
}

func (e *Entry) cacheCoverage() {
	if e.covCached {
		return
	}

	e.meanCov = rfstats.MeanInt(e.Coverage)
	e.medianCov = rfstats.MedianInt(e.Coverage)
	e.covCached = true
}

/*MeanCoverage lazily computed, cached while the entry is in scope */
func (e *Entry) MeanCoverage() float64 {
	e.cacheCoverage()
	return e.meanCov
}

/*MedianCoverage ... */
func (e *Entry) MedianCoverage() float64 {
	e.cacheCoverage()
	return e.medianCov
}

var baseBits = map[byte]byte{'A': 0, 'C': 1, 'G': 2, 'T': 3, 'U': 3, 'N': 0}

var bitsBase = [4]byte{'A', 'C', 'G', 'T'}

/*PackSequence 2-bit pack, padded to whole bytes */
func PackSequence(sequence string) []byte {
	packed := make([]byte, (len(sequence)+3)/4)

	for i := 0; i < len(sequence); i++ {
		bits, ok := baseBits[sequence[i]]

		if !ok {
			bits = 0
		}

		packed[i/4] |= bits << uint(6-2*(i%4))
	}

	return packed
}

/*UnpackSequence ... */
func UnpackSequence(packed []byte, length int) string {
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		bits := (packed[i/4] >> uint(6-2*(i%4))) & 3
		builder.WriteByte(bitsBase[bits])
	}

	return builder.String()
}

/*IndexPath RCI path next to the RC file */
func IndexPath(rcPath string) string {
	ext := path.Ext(rcPath)
	return strings.TrimSuffix(rcPath, ext) + ".rci"
}

/*Reader random-access reader over one RC file. Each worker must hold its own
handle (NewHandle); the index map is shared read-only */
type Reader struct {
	Path  string
	file  *os.File
	index map[string]int64
	ids   []string
}

/*Open open an RC store, loading the RCI index or building it (and writing it
alongside the source) when absent */
func Open(rcPath string) (*Reader, error) {
	file, err := os.Open(rcPath)

	if err != nil {
		return nil, err
	}

	reader := &Reader{Path: rcPath, file: file}

	indexPath := IndexPath(rcPath)

	if _, err = os.Stat(indexPath); err == nil {
		err = reader.loadIndex(indexPath)
	} else {
		err = reader.buildIndex()

		if err == nil {
			err = reader.writeIndex(indexPath)
		}
	}

	if err != nil {
		file.Close()
		return nil, err
	}

	return reader, nil
}

/*NewHandle private file handle sharing the in-memory index */
func (r *Reader) NewHandle() (*Reader, error) {
	file, err := os.Open(r.Path)

	if err != nil {
		return nil, err
	}

	return &Reader{Path: r.Path, file: file, index: r.index, ids: r.ids}, nil
}

/*Close ... */
func (r *Reader) Close() error {
	return r.file.Close()
}

/*IDs transcript identifiers in store order */
func (r *Reader) IDs() []string {
	return r.ids
}

/*Has ... */
func (r *Reader) Has(id string) bool {
	_, inside := r.index[id]
	return inside
}

/*Read random-access read of one transcript */
func (r *Reader) Read(id string) (*Entry, error) {
	offset, inside := r.index[id]

	if !inside {
		return nil, ErrNotFound
	}

	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	entry, _, err := readRecord(r.file)

	if err != nil {
		return nil, err
	}

	if entry.ID != id {
		return nil, fmt.Errorf("corrupt index: expected %s at offset %d, found %s",
			id, offset, entry.ID)
	}

	return entry, nil
}

func readRecord(reader io.Reader) (*Entry, int64, error) {
	var nameLen uint32

	if err := binary.Read(reader, binary.LittleEndian, &nameLen); err != nil {
		return nil, 0, err
	}

	if nameLen == 0 || nameLen > 1<<20 {
		return nil, 0, fmt.Errorf("corrupt record: name length %d", nameLen)
	}

	name := make([]byte, nameLen)

	if _, err := io.ReadFull(reader, name); err != nil {
		return nil, 0, err
	}

	var seqLen uint32

	if err := binary.Read(reader, binary.LittleEndian, &seqLen); err != nil {
		return nil, 0, err
	}

	packed := make([]byte, (seqLen+3)/4)

	if _, err := io.ReadFull(reader, packed); err != nil {
		return nil, 0, err
	}

	counts := make([]uint32, seqLen)

	if err := binary.Read(reader, binary.LittleEndian, counts); err != nil {
		return nil, 0, err
	}

	coverage := make([]uint32, seqLen)

	if err := binary.Read(reader, binary.LittleEndian, coverage); err != nil {
		return nil, 0, err
	}

	size := int64(4 + int(nameLen) + 4 + len(packed) + 8*int(seqLen))

	entry := &Entry{
		ID:       string(name),
		Sequence: UnpackSequence(packed, int(seqLen)),
		Counts:   counts,
		Coverage: coverage,
	}

	return entry, size, nil
}

func (r *Reader) buildIndex() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	r.index = make(map[string]int64)
	r.ids = nil

	var offset int64

	for {
		entry, size, err := readRecord(r.file)

		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("corrupt count store %s at offset %d: %w",
				r.Path, offset, err)
		}

		r.index[entry.ID] = offset
		r.ids = append(r.ids, entry.ID)
		offset += size
	}

	return nil
}

/*RCI format: name-length:u32 LE, name, offset:u64 LE */
func (r *Reader) writeIndex(indexPath string) error {
	file, err := os.Create(indexPath)

	if err != nil {
		return err
	}

	defer file.Close()

	for _, id := range r.ids {
		if err = binary.Write(file, binary.LittleEndian, uint32(len(id))); err != nil {
			return err
		}

		if _, err = file.Write([]byte(id)); err != nil {
			return err
		}

		if err = binary.Write(file, binary.LittleEndian, uint64(r.index[id])); err != nil {
			return err
		}
	}

	return nil
}

func (r *Reader) loadIndex(indexPath string) error {
	file, err := os.Open(indexPath)

	if err != nil {
		return err
	}

	defer file.Close()

	r.index = make(map[string]int64)
	r.ids = nil

	for {
		var nameLen uint32

		err = binary.Read(file, binary.LittleEndian, &nameLen)

		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		name := make([]byte, nameLen)

		if _, err = io.ReadFull(file, name); err != nil {
			return err
		}

		var offset uint64

		if err = binary.Read(file, binary.LittleEndian, &offset); err != nil {
			return err
		}

		r.index[string(name)] = int64(offset)
		r.ids = append(r.ids, string(name))
	}

	return nil
}

/*Writer sequential RC writer; Close writes the RCI alongside */
type Writer struct {
	path    string
	file    *os.File
	offset  int64
	ids     []string
	offsets map[string]int64
}

/*Create ... */
func Create(rcPath string) (*Writer, error) {
	file, err := os.Create(rcPath)

	if err != nil {
		return nil, err
	}

	return &Writer{
		path:    rcPath,
		file:    file,
		offsets: make(map[string]int64),
	}, nil
}

/*Write append one transcript record */
func (w *Writer) Write(entry *Entry) error {
	length := len(entry.Sequence)

	if len(entry.Counts) != length || len(entry.Coverage) != length {
		return fmt.Errorf("entry %s: counts/coverage length differ from sequence length %d",
			entry.ID, length)
	}

	if err := binary.Write(w.file, binary.LittleEndian, uint32(len(entry.ID))); err != nil {
		return err
	}

	if _, err := w.file.Write([]byte(entry.ID)); err != nil {
		return err
	}

	if err := binary.Write(w.file, binary.LittleEndian, uint32(length)); err != nil {
		return err
	}

	packed := PackSequence(entry.Sequence)

	if _, err := w.file.Write(packed); err != nil {
		return err
	}

	if err := binary.Write(w.file, binary.LittleEndian, entry.Counts); err != nil {
		return err
	}

	if err := binary.Write(w.file, binary.LittleEndian, entry.Coverage); err != nil {
		return err
	}

	w.offsets[entry.ID] = w.offset
	w.ids = append(w.ids, entry.ID)
	w.offset += int64(4 + len(entry.ID) + 4 + len(packed) + 8*length)

	return nil
}

/*Close flush the store and write the RCI index */
func (w *Writer) Close() error {
	if err := w.file.Close(); err != nil {
		return err
	}

	reader := &Reader{Path: w.path, ids: w.ids, index: w.offsets}

	return reader.writeIndex(IndexPath(w.path))
}
