package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Index file layout (little-endian):
//
//	magic "VSX1" | version u16 | compression u8 | reserved u8 | dimension u32 |
//	count u64 | rawLen u64 | payloadLen u64 | payload | crc32(payload) u32
//
// The raw payload is count*dimension float32 values; it may be stored LZ4 or ZSTD compressed.
const (
	fileMagic     = "VSX1"
	formatVersion = uint16(1)
	headerSize    = 4 + 2 + 1 + 1 + 4 + 8 + 8 + 8
	trailerSize   = 4
)

// Compression selects how the vector payload is stored on disk.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZSTD Compression = 2
)

// String returns the config name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps a config value ("", "none", "lz4", "zstd") to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression: %s (supported: none, lz4, zstd)", s)
	}
}

// writeIndexFile atomically replaces path with the encoded vectors. Parent directories are created.
func writeIndexFile(path string, dimension int, data []float32, c Compression) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	raw := float32SliceToBytes(data)
	payload, c, err := compressPayload(raw, c)
	if err != nil {
		return fmt.Errorf("compress payload: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()
	_ = tmp.Chmod(0644)

	w := bufio.NewWriterSize(tmp, 256*1024)
	header := make([]byte, headerSize)
	copy(header[0:4], fileMagic)
	binary.LittleEndian.PutUint16(header[4:6], formatVersion)
	header[6] = byte(c)
	binary.LittleEndian.PutUint32(header[8:12], uint32(dimension))
	binary.LittleEndian.PutUint64(header[12:20], uint64(len(data)/dimension))
	binary.LittleEndian.PutUint64(header[20:28], uint64(len(raw)))
	binary.LittleEndian.PutUint64(header[28:36], uint64(len(payload)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	var trailer [trailerSize]byte
	binary.LittleEndian.PutUint32(trailer[:], crc32.ChecksumIEEE(payload))
	if _, err := w.Write(trailer[:]); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush index file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// readIndexFile decodes the file at path and returns its vectors as one contiguous slice.
// The file's dimension must equal dimension.
func readIndexFile(path string, dimension int) ([]float32, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read index file: %w", err)
	}
	if len(buf) < headerSize+trailerSize {
		return nil, corrupt(path, "file too short", nil)
	}
	if string(buf[0:4]) != fileMagic {
		return nil, corrupt(path, "bad magic", nil)
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != formatVersion {
		return nil, corrupt(path, fmt.Sprintf("unsupported version %d", v), nil)
	}
	c := Compression(buf[6])
	dim := binary.LittleEndian.Uint32(buf[8:12])
	count := binary.LittleEndian.Uint64(buf[12:20])
	rawLen := binary.LittleEndian.Uint64(buf[20:28])
	payloadLen := binary.LittleEndian.Uint64(buf[28:36])

	if int(dim) != dimension {
		return nil, corrupt(path, fmt.Sprintf("dimension %d does not match index dimension %d", dim, dimension), nil)
	}
	if count > 0 && (count > math.MaxInt64/uint64(dim)/4 || rawLen != count*uint64(dim)*4) {
		return nil, corrupt(path, "vector count does not match payload size", nil)
	}
	if count == 0 && rawLen != 0 {
		return nil, corrupt(path, "vector count does not match payload size", nil)
	}
	if payloadLen != uint64(len(buf)-headerSize-trailerSize) {
		return nil, corrupt(path, "payload length does not match file size", nil)
	}

	payload := buf[headerSize : headerSize+int(payloadLen)]
	want := binary.LittleEndian.Uint32(buf[headerSize+int(payloadLen):])
	if got := crc32.ChecksumIEEE(payload); got != want {
		return nil, corrupt(path, fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", want, got), nil)
	}

	if limit := maxRawLen(c, payloadLen); rawLen > limit {
		return nil, corrupt(path, fmt.Sprintf("raw length %d is more than a %d-byte %s payload can hold", rawLen, payloadLen, c), nil)
	}

	raw, err := decompressPayload(payload, c, int(rawLen))
	if err != nil {
		return nil, corrupt(path, "decompress payload", err)
	}
	return bytesToFloat32Slice(raw), nil
}

func compressPayload(raw []byte, c Compression) ([]byte, Compression, error) {
	if len(raw) == 0 {
		return raw, CompressionNone, nil
	}
	switch c {
	case CompressionNone:
		return raw, CompressionNone, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, c, err
		}
		if n == 0 {
			// Incompressible.
			return raw, CompressionNone, nil
		}
		return dst[:n], CompressionLZ4, nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, c, err
		}
		defer enc.Close()
		return enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), CompressionZSTD, nil
	default:
		return nil, c, fmt.Errorf("unknown compression %d", c)
	}
}

// Upper bounds on expansion. An LZ4 sequence expands at most 255x; a 4-byte zstd RLE block
// expands to 128 KiB.
const (
	lz4MaxRatio  = 255
	zstdMaxRatio = 1 << 15
)

// maxRawLen bounds the decoded size a payload of payloadLen bytes can have, so a forged
// header cannot force a huge allocation.
func maxRawLen(c Compression, payloadLen uint64) uint64 {
	switch c {
	case CompressionLZ4:
		return payloadLen * lz4MaxRatio
	case CompressionZSTD:
		return (payloadLen + 1) * zstdMaxRatio
	default:
		return payloadLen
	}
}

func decompressPayload(payload []byte, c Compression, rawLen int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(payload) != rawLen {
			return nil, fmt.Errorf("uncompressed payload is %d bytes, expected %d", len(payload), rawLen)
		}
		return payload, nil
	case CompressionLZ4:
		dst := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, fmt.Errorf("lz4 produced %d bytes, expected %d", n, rawLen)
		}
		return dst, nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(uint64(max(rawLen, 1))))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, err
		}
		if len(out) != rawLen {
			return nil, fmt.Errorf("zstd produced %d bytes, expected %d", len(out), rawLen)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
