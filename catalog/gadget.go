package catalog

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// gadgetHeader is the formatting for meta-information used by Gadget 2.
type gadgetHeader struct {
	NPart                                     [6]uint32
	Mass                                      [6]float64
	Time, Redshift                            float64
	FlagSfr, FlagFeedback                     int32
	NPartTotal                                [6]uint32
	FlagCooling, NumFiles                     int32
	BoxSize, Omega0, OmegaLambda, HubbleParam float64
	FlagStellarAge, HashTabSize               int32

	Padding [88]byte
}

const gadgetHeaderSize = 256

// gadgetHeader converts a Header into Gadget 2's format. Particles are
// written as the halo (type 1) species.
func (h *Header) gadgetHeader() (*gadgetHeader, error) {
	if h.Count > math.MaxUint32 {
		return nil, fmt.Errorf(
			"Gadget 2 files hold at most %d particles, but the catalog has %d.",
			uint32(math.MaxUint32), h.Count,
		)
	}

	gh := &gadgetHeader{}
	gh.NPart[1] = uint32(h.Count)
	gh.NPartTotal[1] = uint32(h.Count)
	gh.Mass[1] = h.Mass
	gh.Redshift = h.Cosmo.Z
	gh.Time = 1 / (1 + h.Cosmo.Z)
	gh.NumFiles = 1
	gh.BoxSize = h.BoxWidth
	gh.Omega0 = h.Cosmo.OmegaM
	gh.OmegaLambda = h.Cosmo.OmegaL
	gh.HubbleParam = h.Cosmo.H100
	return gh, nil
}

// Standardize returns a Header that corresponds to the source
// Gadget 2 header.
func (gh *gadgetHeader) Standardize() *Header {
	h := &Header{}

	h.Count = int64(gh.NPart[1])
	h.Cells = int64(math.Round(math.Cbrt(float64(h.Count))))
	h.Mass = gh.Mass[1]
	h.BoxWidth = gh.BoxSize

	h.Cosmo.Z = gh.Redshift
	h.Cosmo.OmegaM = gh.Omega0
	h.Cosmo.OmegaL = gh.OmegaLambda
	h.Cosmo.H100 = gh.HubbleParam

	return h
}

// WrapDistance takes a value and interprets it as a position defined within
// a periodic domain of width gh.BoxSize.
func (gh *gadgetHeader) WrapDistance(x float64) float64 {
	if x < 0 {
		return x + gh.BoxSize
	} else if x >= gh.BoxSize {
		return x - gh.BoxSize
	}
	return x
}

// block writes a Fortran-style record: the payload framed by its size.
func block(w io.Writer, order binary.ByteOrder, size int, data interface{}) error {
	if err := binary.Write(w, order, int32(size)); err != nil {
		return err
	}
	if err := binary.Write(w, order, data); err != nil {
		return err
	}
	return binary.Write(w, order, int32(size))
}

// readBlock reads a record written by block into data.
func readBlock(r io.Reader, order binary.ByteOrder, size int, data interface{}) error {
	var head, tail int32
	if err := binary.Read(r, order, &head); err != nil {
		return err
	} else if int(head) != size {
		return fmt.Errorf("Gadget block has size %d, expected %d.", head, size)
	}
	if err := binary.Read(r, order, data); err != nil {
		return err
	}
	if err := binary.Read(r, order, &tail); err != nil {
		return err
	} else if tail != head {
		return fmt.Errorf("Gadget block is framed by sizes %d and %d.", head, tail)
	}
	return nil
}

// WriteGadget writes a catalog to w in Gadget 2's binary format using the
// given byte order. Velocities are stored as v / sqrt(a), following Gadget.
func WriteGadget(w io.Writer, order binary.ByteOrder, cat *Catalog) error {
	h := cat.Header
	h.Count = int64(len(cat.Particles))
	gh, err := h.gadgetHeader()
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if err := block(bw, order, gadgetHeaderSize, gh); err != nil {
		return err
	}

	n := len(cat.Particles)
	floatBuf := make([]float32, 3*n)
	width := float32(h.BoxWidth)
	for i := range cat.Particles {
		for k := 0; k < 3; k++ {
			// Narrowing can round a position just below the box width up
			// to it.
			x := float32(cat.Particles[i].Xs[k])
			if x >= width {
				x = 0
			}
			floatBuf[3*i+k] = x
		}
	}
	if err := block(bw, order, 4*len(floatBuf), floatBuf); err != nil {
		return err
	}

	rootA := math.Sqrt(gh.Time)
	for i := range cat.Particles {
		for k := 0; k < 3; k++ {
			floatBuf[3*i+k] = float32(cat.Particles[i].Vs[k] / rootA)
		}
	}
	if err := block(bw, order, 4*len(floatBuf), floatBuf); err != nil {
		return err
	}

	intBuf := make([]int64, n)
	for i := range cat.Particles {
		intBuf[i] = cat.Particles[i].Id
	}
	if err := block(bw, order, 8*len(intBuf), intBuf); err != nil {
		return err
	}

	return bw.Flush()
}

// WriteGadgetFile writes a catalog to the file at path.
func WriteGadgetFile(path string, order binary.ByteOrder, cat *Catalog) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteGadget(f, order, cat); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadGadget reads a Gadget 2 catalog written with the given byte order.
// Only the fields stored by Gadget are filled in the returned Header.
func ReadGadget(r io.Reader, order binary.ByteOrder) (*Catalog, error) {
	br := bufio.NewReader(r)
	gh := &gadgetHeader{}
	if err := readBlock(br, order, gadgetHeaderSize, gh); err != nil {
		return nil, err
	}
	h := gh.Standardize()

	n := int(h.Count)
	floatBuf := make([]float32, 3*n)
	intBuf := make([]int64, n)
	ps := make([]Particle, n)

	if err := readBlock(br, order, 4*len(floatBuf), floatBuf); err != nil {
		return nil, err
	}
	for i := range ps {
		for k := 0; k < 3; k++ {
			ps[i].Xs[k] = gh.WrapDistance(float64(floatBuf[3*i+k]))
		}
	}

	if err := readBlock(br, order, 4*len(floatBuf), floatBuf); err != nil {
		return nil, err
	}
	rootA := math.Sqrt(gh.Time)
	for i := range ps {
		for k := 0; k < 3; k++ {
			ps[i].Vs[k] = float64(floatBuf[3*i+k]) * rootA
		}
	}

	if err := readBlock(br, order, 8*len(intBuf), intBuf); err != nil {
		return nil, err
	}
	for i := range ps {
		ps[i].Id = intBuf[i]
	}

	return &Catalog{Header: *h, Particles: ps}, nil
}
