package tensor

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// NPY v1.0 codec for little-endian float32 arrays in C order. Only the
// subset of the format the pipeline produces and consumes is supported;
// anything else is rejected rather than silently reinterpreted.

var npyMagic = []byte("\x93NUMPY")

const npyHeaderAlign = 64

// WriteNPY encodes the tensor as a .npy stream.
func WriteNPY(w io.Writer, t *Tensor) error {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': %s, }", npyShape(t.shape))
	// Total header block (magic + version + length field + dict + '\n')
	// must be a multiple of 64 bytes.
	prefix := len(npyMagic) + 2 + 2
	padded := prefix + len(header) + 1
	if rem := padded % npyHeaderAlign; rem != 0 {
		padded += npyHeaderAlign - rem
	}
	headerLen := padded - prefix
	if headerLen > math.MaxUint16 {
		return fmt.Errorf("tensor: npy header too large (%d bytes)", headerLen)
	}

	buf := make([]byte, 0, padded)
	buf = append(buf, npyMagic...)
	buf = append(buf, 1, 0)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(headerLen))
	buf = append(buf, header...)
	for len(buf) < padded-1 {
		buf = append(buf, ' ')
	}
	buf = append(buf, '\n')
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("tensor: write npy header: %w", err)
	}

	payload := make([]byte, len(t.data)*4)
	for i, v := range t.data {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("tensor: write npy payload: %w", err)
	}
	return nil
}

// ReadNPY decodes a .npy stream produced by this package or by NumPy with
// dtype float32 and C ordering.
func ReadNPY(r io.Reader) (*Tensor, error) {
	head := make([]byte, len(npyMagic)+2+2)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("tensor: read npy preamble: %w", err)
	}
	if string(head[:len(npyMagic)]) != string(npyMagic) {
		return nil, fmt.Errorf("tensor: not an npy stream")
	}
	major := head[len(npyMagic)]
	if major != 1 {
		return nil, fmt.Errorf("tensor: unsupported npy version %d", major)
	}
	headerLen := binary.LittleEndian.Uint16(head[len(npyMagic)+2:])
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("tensor: read npy header: %w", err)
	}

	shape, err := parseNPYHeader(string(header))
	if err != nil {
		return nil, err
	}
	size, err := sizeOf(shape)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, size*4)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("tensor: read npy payload: %w", err)
	}
	data := make([]float32, size)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return FromData(data, shape...)
}

// WriteNPYFile writes the tensor to path, truncating any existing file.
func WriteNPYFile(path string, t *Tensor) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tensor: create %s: %w", path, err)
	}
	if err := WriteNPY(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadNPYFile reads a tensor from the file at path.
func ReadNPYFile(path string) (*Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tensor: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadNPY(f)
}

func npyShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, dim := range shape {
		parts[i] = strconv.Itoa(dim)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func parseNPYHeader(header string) ([]int, error) {
	descr, err := headerField(header, "'descr':")
	if err != nil {
		return nil, err
	}
	if descr != "'<f4'" {
		return nil, fmt.Errorf("tensor: unsupported npy dtype %s (want '<f4')", descr)
	}
	order, err := headerField(header, "'fortran_order':")
	if err != nil {
		return nil, err
	}
	if order != "False" {
		return nil, fmt.Errorf("tensor: fortran-ordered npy arrays are not supported")
	}

	open := strings.Index(header, "(")
	closing := strings.Index(header, ")")
	if open < 0 || closing < open {
		return nil, fmt.Errorf("tensor: malformed npy shape in header %q", header)
	}
	inner := strings.TrimSpace(header[open+1 : closing])
	if inner == "" {
		return nil, nil // scalar
	}
	fields := strings.Split(inner, ",")
	shape := make([]int, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue // trailing comma of a 1-tuple
		}
		dim, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("tensor: malformed npy dimension %q: %w", field, err)
		}
		shape = append(shape, dim)
	}
	return shape, nil
}

func headerField(header, key string) (string, error) {
	idx := strings.Index(header, key)
	if idx < 0 {
		return "", fmt.Errorf("tensor: npy header missing %s", key)
	}
	rest := strings.TrimSpace(header[idx+len(key):])
	end := strings.IndexAny(rest, ",}")
	if end < 0 {
		end = len(rest)
	}
	return strings.TrimSpace(rest[:end]), nil
}
