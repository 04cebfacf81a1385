// Package fieldio loads and stores gridded fields as unformatted
// sequential records: a 4-byte record length, the row-major (x fastest,
// layer slowest) float64 payload, and the trailing length marker. This is
// the format the model's input generators and post-processing tools speak.
package fieldio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/notargets/aronnax/grid"
)

// ReadRecord reads one unformatted sequential record of float64 values.
func ReadRecord(r io.Reader) (vals []float64, err error) {
	var head uint32
	if err = binary.Read(r, binary.LittleEndian, &head); err != nil {
		return nil, fmt.Errorf("reading record header: %v", err)
	}
	if head%8 != 0 {
		return nil, fmt.Errorf("record length %d is not a whole number of float64s", head)
	}
	vals = make([]float64, head/8)
	if err = binary.Read(r, binary.LittleEndian, vals); err != nil {
		return nil, fmt.Errorf("reading %d-byte record: %v", head, err)
	}
	var tail uint32
	if err = binary.Read(r, binary.LittleEndian, &tail); err != nil {
		return nil, fmt.Errorf("reading record trailer: %v", err)
	}
	if tail != head {
		return nil, fmt.Errorf("record trailer %d doesn't match header %d", tail, head)
	}
	return
}

// WriteRecord writes one unformatted sequential record of float64 values.
func WriteRecord(w io.Writer, vals []float64) (err error) {
	marker := uint32(8 * len(vals))
	if err = binary.Write(w, binary.LittleEndian, marker); err != nil {
		return
	}
	if err = binary.Write(w, binary.LittleEndian, vals); err != nil {
		return
	}
	return binary.Write(w, binary.LittleEndian, marker)
}

// ReadFileVals reads the single record stored in name.
func ReadFileVals(name string) (vals []float64, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if vals, err = ReadRecord(bufio.NewReader(f)); err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	return
}

// WriteFile stores vals as a single record in name.
func WriteFile(name string, vals []float64) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return
	}
	w := bufio.NewWriter(f)
	if err = WriteRecord(w, vals); err != nil {
		f.Close()
		return fmt.Errorf("%s: %v", name, err)
	}
	if err = w.Flush(); err != nil {
		f.Close()
		return
	}
	return f.Close()
}

// Load2D fills a halo-padded 2D field of staggered extent (nx+dx) x (ny+dy)
// from name. An empty name yields a field constant at def. The result is
// wrapped.
func Load2D(name string, nx, ny, dx, dy int, def float64) (f *grid.Field2D, err error) {
	f = grid.NewField2DConst(nx, ny, def)
	if name != "" {
		vals, err := ReadFileVals(name)
		if err != nil {
			return nil, err
		}
		if err = f.SetInterior(dx, dy, vals); err != nil {
			return nil, fmt.Errorf("%s: %v", name, err)
		}
	}
	f.Wrap()
	return
}

// Load3D fills a halo-padded layered field from name. An empty name yields
// per-layer constants from def (replicated if def is a single value). The
// result is wrapped.
func Load3D(name string, nx, ny, layers, dx, dy int, def []float64) (f *grid.Field3D, err error) {
	switch {
	case name != "":
		f = grid.NewField3D(nx, ny, layers)
		vals, err := ReadFileVals(name)
		if err != nil {
			return nil, err
		}
		if err = f.SetInterior(dx, dy, vals); err != nil {
			return nil, fmt.Errorf("%s: %v", name, err)
		}
	case len(def) == layers:
		f = grid.NewField3DLayered(nx, ny, def)
	case len(def) == 1:
		f = grid.NewField3DConst(nx, ny, layers, def[0])
	default:
		return nil, fmt.Errorf("need %d per-layer defaults, have %d", layers, len(def))
	}
	f.Wrap()
	return
}

// LoadSeries reads a time series of n float64 values from name; an empty
// name yields a series constant at def.
func LoadSeries(name string, n int, def float64) (vals []float64, err error) {
	if name == "" {
		vals = make([]float64, n)
		for i := range vals {
			vals[i] = def
		}
		return
	}
	if vals, err = ReadFileVals(name); err != nil {
		return nil, err
	}
	if len(vals) < n {
		return nil, fmt.Errorf("%s: time series has %d entries, need %d", name, len(vals), n)
	}
	return vals[:n], nil
}

// Dump2D writes the staggered interior of f.
func Dump2D(name string, f *grid.Field2D, dx, dy int) error {
	return WriteFile(name, f.Interior(dx, dy))
}

// Dump3D writes the staggered interior of every layer of f.
func Dump3D(name string, f *grid.Field3D, dx, dy int) error {
	return WriteFile(name, f.Interior(dx, dy))
}
