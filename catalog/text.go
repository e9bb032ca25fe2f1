package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// row is the CSV layout of a Particle.
type row struct {
	Id int64   `csv:"id"`
	X  float64 `csv:"x"`
	Y  float64 `csv:"y"`
	Z  float64 `csv:"z"`
	VX float64 `csv:"vx"`
	VY float64 `csv:"vy"`
	VZ float64 `csv:"vz"`
}

// WriteCSV writes one row per particle, with a header line.
func WriteCSV(w io.Writer, ps []Particle) error {
	rows := make([]row, len(ps))
	for i, p := range ps {
		rows[i] = row{
			Id: p.Id,
			X:  p.Xs[0], Y: p.Xs[1], Z: p.Xs[2],
			VX: p.Vs[0], VY: p.Vs[1], VZ: p.Vs[2],
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing particles: %w", err)
	}
	return nil
}

// ReadCSV reads particles written by WriteCSV.
func ReadCSV(r io.Reader) ([]Particle, error) {
	rows := []row{}
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("reading particles: %w", err)
	}
	ps := make([]Particle, len(rows))
	for i, r := range rows {
		ps[i].Id = r.Id
		ps[i].Xs[0], ps[i].Xs[1], ps[i].Xs[2] = r.X, r.Y, r.Z
		ps[i].Vs[0], ps[i].Vs[1], ps[i].Vs[2] = r.VX, r.VY, r.VZ
	}
	return ps, nil
}

// WriteCSVFile writes particles to a CSV file at path.
func WriteCSVFile(path string, ps []Particle) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, ps); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MarshalHeader returns the YAML encoding of a header.
func MarshalHeader(h *Header) ([]byte, error) {
	data, err := yaml.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}
	return data, nil
}

// UnmarshalHeader decodes a header written by MarshalHeader.
func UnmarshalHeader(data []byte) (*Header, error) {
	h := &Header{}
	if err := yaml.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	return h, nil
}

// WriteHeaderFile writes a header to a YAML file at path.
func WriteHeaderFile(path string, h *Header) error {
	data, err := MarshalHeader(h)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing header file: %w", err)
	}
	return nil
}
