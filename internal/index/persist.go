package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/interfaces"
)

// Binary index file layout:
//   magic "ESVI" | version uint16 | kind uint8 | dim uint32 |
//   count uint64 | dataset hash [32]byte | kind-specific payload
// All integers little-endian. The dataset hash is the SHA-256 of the
// corpus the index was built from; Load refuses a file whose hash does
// not match the current dataset.

var persistMagic = [4]byte{'E', 'S', 'V', 'I'}

const persistVersion uint16 = 1

const (
	kindCodeFlat uint8 = 0
	kindCodeHNSW uint8 = 1
	kindCodeIVF  uint8 = 2
)

// Save writes the index and the dataset hash it was built from to path
func Save(path string, idx interfaces.VectorIndex, datasetHash [32]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	var kindCode uint8
	switch idx.Kind() {
	case "flat":
		kindCode = kindCodeFlat
	case "hnsw":
		kindCode = kindCodeHNSW
	case "ivf":
		kindCode = kindCodeIVF
	default:
		return fmt.Errorf("cannot persist index kind %q", idx.Kind())
	}

	if _, err := w.Write(persistMagic[:]); err != nil {
		return err
	}
	if err := writeUint16(w, persistVersion); err != nil {
		return err
	}
	if err := w.WriteByte(kindCode); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(idx.Dimension())); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(idx.Len())); err != nil {
		return err
	}
	if _, err := w.Write(datasetHash[:]); err != nil {
		return err
	}

	switch v := idx.(type) {
	case *Flat:
		err = saveFlat(w, v)
	case *HNSW:
		err = saveHNSW(w, v)
	case *IVF:
		err = saveIVF(w, v)
	}
	if err != nil {
		return fmt.Errorf("failed to write index payload: %w", err)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush index file: %w", err)
	}
	return nil
}

// Load reads an index from path and verifies it was built from the
// dataset identified by datasetHash. A hash mismatch returns
// common.ErrIndexMismatch; the caller should rebuild.
func Load(path string, opts Options, datasetHash [32]byte) (interfaces.VectorIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("failed to read index header: %w", err)
	}
	if magic != persistMagic {
		return nil, fmt.Errorf("%w: not an index file", common.ErrIndexMismatch)
	}
	version, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	if version != persistVersion {
		return nil, fmt.Errorf("%w: unsupported index file version %d", common.ErrIndexMismatch, version)
	}
	kindCode, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	dim, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	count, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	var storedHash [32]byte
	if _, err := io.ReadFull(r, storedHash[:]); err != nil {
		return nil, fmt.Errorf("failed to read dataset hash: %w", err)
	}
	if storedHash != datasetHash {
		return nil, fmt.Errorf("%w: dataset has changed since the index was built", common.ErrIndexMismatch)
	}
	if int(dim) != opts.Dimension {
		return nil, fmt.Errorf("%w: index dimension %d does not match configured %d", common.ErrIndexMismatch, dim, opts.Dimension)
	}

	switch kindCode {
	case kindCodeFlat:
		return loadFlat(r, int(dim), int(count))
	case kindCodeHNSW:
		return loadHNSW(r, opts, int(count))
	case kindCodeIVF:
		return loadIVF(r, opts)
	default:
		return nil, fmt.Errorf("%w: unknown index kind code %d", common.ErrIndexMismatch, kindCode)
	}
}

// ----- flat payload -----

func saveFlat(w *bufio.Writer, f *Flat) error {
	for i, vec := range f.vectors {
		if err := writeUint64(w, uint64(f.ids[i])); err != nil {
			return err
		}
		if err := writeVector(w, vec); err != nil {
			return err
		}
	}
	return nil
}

func loadFlat(r *bufio.Reader, dim, count int) (*Flat, error) {
	f := NewFlat(dim)
	f.ids = make([]int, count)
	f.vectors = make([][]float32, count)
	for i := 0; i < count; i++ {
		id, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		vec, err := readVector(r, dim)
		if err != nil {
			return nil, err
		}
		f.ids[i] = int(id)
		f.vectors[i] = vec
	}
	return f, nil
}

// ----- hnsw payload -----
//
// entry int64 | maxLevel uint32 | per node: id uint64, level uint32,
// vector, then level+1 link lists each as count uint32 + slots uint32

func saveHNSW(w *bufio.Writer, h *HNSW) error {
	if err := writeUint64(w, uint64(int64(h.entry))); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(h.maxLevel)); err != nil {
		return err
	}
	for _, node := range h.nodes {
		if err := writeUint64(w, uint64(node.id)); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(node.level)); err != nil {
			return err
		}
		if err := writeVector(w, node.vec); err != nil {
			return err
		}
		for layer := 0; layer <= node.level; layer++ {
			links := node.links[layer]
			if err := writeUint32(w, uint32(len(links))); err != nil {
				return err
			}
			for _, slot := range links {
				if err := writeUint32(w, uint32(slot)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func loadHNSW(r *bufio.Reader, opts Options, count int) (*HNSW, error) {
	h := NewHNSW(opts)
	entry, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	h.entry = int(int64(entry))
	maxLevel, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	h.maxLevel = int(maxLevel)

	h.nodes = make([]hnswNode, count)
	for i := 0; i < count; i++ {
		id, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		level, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		vec, err := readVector(r, opts.Dimension)
		if err != nil {
			return nil, err
		}
		links := make([][]int, int(level)+1)
		for layer := range links {
			n, err := readUint32(r)
			if err != nil {
				return nil, err
			}
			layerLinks := make([]int, n)
			for j := range layerLinks {
				slot, err := readUint32(r)
				if err != nil {
					return nil, err
				}
				layerLinks[j] = int(slot)
			}
			links[layer] = layerLinks
		}
		h.nodes[i] = hnswNode{id: int(id), vec: vec, level: int(level), links: links}
	}
	return h, nil
}

// ----- ivf payload -----
//
// nlist uint32 | nprobe uint32 | centroids | per list: count uint32 +
// entries of id uint64 + vector

func saveIVF(w *bufio.Writer, v *IVF) error {
	if !v.trained {
		return fmt.Errorf("cannot persist untrained IVF index")
	}
	if err := writeUint32(w, uint32(len(v.centroids))); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(v.nprobe)); err != nil {
		return err
	}
	for _, centroid := range v.centroids {
		if err := writeVector(w, centroid); err != nil {
			return err
		}
	}
	for _, list := range v.lists {
		if err := writeUint32(w, uint32(len(list))); err != nil {
			return err
		}
		for _, entry := range list {
			if err := writeUint64(w, uint64(entry.id)); err != nil {
				return err
			}
			if err := writeVector(w, entry.vec); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadIVF(r *bufio.Reader, opts Options) (*IVF, error) {
	v := NewIVF(opts)
	nlist, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	nprobe, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	v.nlist = int(nlist)
	v.nprobe = int(nprobe)
	v.centroids = make([][]float32, nlist)
	for c := range v.centroids {
		vec, err := readVector(r, opts.Dimension)
		if err != nil {
			return nil, err
		}
		v.centroids[c] = vec
	}
	v.lists = make([][]ivfEntry, nlist)
	for c := range v.lists {
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		list := make([]ivfEntry, n)
		for i := range list {
			id, err := readUint64(r)
			if err != nil {
				return nil, err
			}
			vec, err := readVector(r, opts.Dimension)
			if err != nil {
				return nil, err
			}
			list[i] = ivfEntry{id: int(id), vec: vec}
			v.count++
		}
		v.lists[c] = list
	}
	v.trained = true
	return v, nil
}

// ----- primitive encoding -----

func writeUint16(w *bufio.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint32(w *bufio.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w *bufio.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeVector(w *bufio.Writer, vec []float32) error {
	buf := make([]byte, 4*len(vec))
	for i, val := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(val))
	}
	_, err := w.Write(buf)
	return err
}

func readUint16(r *bufio.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readUint32(r *bufio.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readUint64(r *bufio.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readVector(r *bufio.Reader, dim int) ([]float32, error) {
	buf := make([]byte, 4*dim)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
