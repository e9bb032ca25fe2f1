/*package io reads the configuration files which describe a run and turns
them into pipeline configurations.
*/
package io

import (
	"encoding/binary"
	"fmt"
	"strings"

	"gopkg.in/gcfg.v1"

	muscle "github.com/phil-mansfield/gomuscle"
	"github.com/phil-mansfield/gomuscle/collapse"
	"github.com/phil-mansfield/gomuscle/cosmo"
	"github.com/phil-mansfield/gomuscle/displace"
	"github.com/phil-mansfield/gomuscle/fft"
	"github.com/phil-mansfield/gomuscle/smooth"
	"github.com/phil-mansfield/gomuscle/spectrum"
)

const (
	ExampleGenerateFile = `[Generate]

#######################
# Required Parameters #
#######################

# Prefix of the output files. A run writes <Output>.<ext> for the particle
# catalog and <Output>.yaml for its metadata.
Output = path/to/output/ics

# Number of cells (and particles) on one side of the box.
Cells = 128
# Width of the box in Mpc/h.
BoxWidth = 256

Seed = 1

#######################
# Optional Parameters #
#######################

# Scheme must be one of [ Zeldovich | 2LPT | ALPT | SphericalCollapse ].
# Zeldovich moves particles by the linear field alone. SphericalCollapse
# uses the spherical collapse estimate, and 2LPT and ALPT use the per-axis
# ellipsoidal estimate.
# Scheme = SphericalCollapse

# Smoothing radii in Mpc/h, coarsest first. Each radius gets its own line. If
# no radii are given, radii start at BoxWidth/4 and halve down to one cell.
# Radius = 64
# Radius = 32
# Radius = 16

# |delta| above which a cell is nonlinear. Either one value used at every
# scale or one line per radius. Default is 1.5.
# Threshold = 1.5

# Filter must be one of [ Gaussian | SharpK | TopHat ].
# Filter = Gaussian

# Green's function of the Poisson solve, one of [ Continuous | Discrete ].
# Green = Continuous

# Lower clamp on collapse factors. Must be in (0, 1). Default is 0.01.
# Floor = 0.01

# ALPT interpolation radius in Mpc/h. Only used by the ALPT scheme.
# ALPTRadius = 4

# Fixes every mode's amplitude so that only phases are random.
# FixedAmplitude = false

# Redshift of the output. Velocities are written when Velocities is set.
# Redshift = 0
# Velocities = true

# A text table of k [h/Mpc] and P(k) [(Mpc/h)^3] in its first two columns,
# taken to be the linear spectrum at Redshift. If it isn't set, an
# Eisenstein & Hu (1998) spectrum is built from the [Cosmology] section.
# Input = path/to/pk.txt
# Interpolation of the Input table in log-log space, one of
# [ Spline | Linear ].
# Interpolation = Spline

# Output format, one of [ Gadget | CSV ], and Gadget byte order, one of
# [ Little | Big ].
# Format = Gadget
# Endianness = Little

# FFT backend, one of [ Gonum | DSP | Naive ].
# Backend = Gonum
# Number of threads. Default is the number of logical cores.
# Workers = 8

# Output files which are useful for profiling and debugging. Generally, there
# isn't a reason to use these unless something goes wrong.
# ProfileFile = prof.out
# LogFile = log.out

[Cosmology]
# H100 = 0.7
# OmegaBh2 = 0.0225
# OmegaCDM = 0.25
# Ns = 0.96
# Sigma8 = 0.8`
)

type SharedConfig struct {
	// Required
	Output string
	// Optional
	Input, LogFile, ProfileFile string
}

func (con *SharedConfig) ValidInput() bool {
	return con.Input != ""
}
func (con *SharedConfig) ValidOutput() bool {
	return con.Output != ""
}
func (con *SharedConfig) ValidLogFile() bool {
	return con.LogFile != ""
}
func (con *SharedConfig) ValidProfileFile() bool {
	return con.ProfileFile != ""
}

type GenerateConfig struct {
	SharedConfig

	// Required
	Cells    int
	BoxWidth float64
	Seed     int64

	// Optional
	Radius, Threshold              []float64
	Scheme, Filter, Green, Backend string
	Format, Endianness             string
	Interpolation                  string
	Floor, ALPTRadius, Redshift    float64
	FixedAmplitude, Velocities     bool
	Workers                        int
}

type CosmologyConfig struct {
	H100, OmegaBh2, OmegaCDM, Ns, Sigma8 float64
}

type GenerateWrapper struct {
	Generate  GenerateConfig
	Cosmology CosmologyConfig
}

func DefaultGenerateWrapper() *GenerateWrapper {
	con := GenerateConfig{}
	con.Scheme = muscle.SphericalCollapse.String()
	con.Filter = smooth.Gaussian.String()
	con.Green = displace.Continuous.String()
	con.Backend = fft.Gonum.String()
	con.Interpolation = spectrum.Spline.String()
	con.Format = "Gadget"
	con.Endianness = "Little"
	con.Floor = collapse.DefaultFloor
	con.ALPTRadius = muscle.DefaultALPTRadius
	con.Velocities = true

	c := cosmo.Default()
	cc := CosmologyConfig{
		H100: c.H100, OmegaBh2: c.OmegaBh2, OmegaCDM: c.OmegaCDM,
		Ns: c.Ns, Sigma8: c.Sigma8,
	}
	return &GenerateWrapper{con, cc}
}

func (con *GenerateConfig) ValidCells() bool {
	return con.Cells > 1
}
func (con *GenerateConfig) ValidBoxWidth() bool {
	return con.BoxWidth > 0
}
func (con *GenerateConfig) ValidSeed() bool {
	return con.Seed >= 0
}
func (con *GenerateConfig) ValidFloor() bool {
	return con.Floor > 0 && con.Floor < 1
}
func (con *GenerateConfig) ValidALPTRadius() bool {
	return con.ALPTRadius > 0
}
func (con *GenerateConfig) ValidRedshift() bool {
	return con.Redshift >= 0
}
func (con *GenerateConfig) ValidWorkers() bool {
	return con.Workers >= 0
}
func (con *GenerateConfig) ValidFormat() bool {
	f := strings.ToLower(con.Format)
	return f == "gadget" || f == "csv"
}
func (con *GenerateConfig) ValidEndianness() bool {
	_, err := con.ByteOrder()
	return err == nil
}

// ByteOrder returns the byte order named by Endianness.
func (con *GenerateConfig) ByteOrder() (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(con.Endianness)) {
	case "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf(
		"Unrecognized Endianness '%s'. Must be one of [Little | Big].",
		con.Endianness,
	)
}

// Cosmology returns the cosmology described by the [Cosmology] section.
func (cc *CosmologyConfig) Cosmology() cosmo.Cosmology {
	return cosmo.Cosmology{
		H100: cc.H100, OmegaBh2: cc.OmegaBh2, OmegaCDM: cc.OmegaCDM,
		Ns: cc.Ns, Sigma8: cc.Sigma8,
	}
}

// CheckInit checks every field of the wrapper and returns a descriptive
// error for the first invalid one.
func (w *GenerateWrapper) CheckInit() error {
	con := &w.Generate
	switch {
	case !con.ValidOutput():
		return fmt.Errorf("Invalid/non-existent 'Output' value.")
	case !con.ValidCells():
		return fmt.Errorf("'Cells' must be at least 2, but is %d.", con.Cells)
	case !con.ValidBoxWidth():
		return fmt.Errorf("'BoxWidth' must be positive, but is %g.", con.BoxWidth)
	case !con.ValidSeed():
		return fmt.Errorf("'Seed' must be non-negative, but is %d.", con.Seed)
	case !con.ValidFloor():
		return fmt.Errorf("'Floor' must be in (0, 1), but is %g.", con.Floor)
	case !con.ValidALPTRadius():
		return fmt.Errorf("'ALPTRadius' must be positive, but is %g.", con.ALPTRadius)
	case !con.ValidRedshift():
		return fmt.Errorf("'Redshift' must be non-negative, but is %g.", con.Redshift)
	case !con.ValidWorkers():
		return fmt.Errorf("'Workers' must be non-negative, but is %d.", con.Workers)
	case !con.ValidFormat():
		return fmt.Errorf(
			"Unrecognized Format '%s'. Must be one of [Gadget | CSV].", con.Format,
		)
	}
	if _, err := con.ByteOrder(); err != nil {
		return err
	}
	if _, err := spectrum.ParseInterpolation(con.Interpolation); err != nil {
		return err
	}

	c := w.Cosmology.Cosmology()
	if err := c.Check(); err != nil {
		return err
	}

	_, err := w.Config()
	return err
}

// Config converts the wrapper into a pipeline configuration.
func (w *GenerateWrapper) Config() (muscle.Config, error) {
	con := &w.Generate
	out := muscle.Config{
		Cells: con.Cells, BoxWidth: con.BoxWidth, Seed: uint64(con.Seed),
		Radii:          append([]float64(nil), con.Radius...),
		Thresholds:     append([]float64(nil), con.Threshold...),
		Floor:          con.Floor,
		FixedAmplitude: con.FixedAmplitude,
		ALPTRadius:     con.ALPTRadius,
		Workers:        con.Workers,
		Redshift:       con.Redshift,
	}

	var err error
	if out.Scheme, err = muscle.ParseScheme(con.Scheme); err != nil {
		return out, err
	} else if out.Filter, err = smooth.ParseFilter(con.Filter); err != nil {
		return out, err
	} else if out.Green, err = displace.ParseGreen(con.Green); err != nil {
		return out, err
	} else if out.Backend, err = fft.ParseBackend(con.Backend); err != nil {
		return out, err
	}

	c := w.Cosmology.Cosmology()
	out.Cosmology = &c
	if con.Velocities {
		out.VelocityFactor = c.VelocityFactor(con.Redshift)
		out.SecondOrderVelocityFactor = c.SecondOrderVelocityFactor(con.Redshift)
	}
	return out, nil
}

// Spectrum returns the linear power spectrum at the output redshift: the
// Input table if one is given, otherwise the cosmology's spectrum.
func (w *GenerateWrapper) Spectrum() (spectrum.PowerSpectrum, error) {
	if w.Generate.ValidInput() {
		in, err := spectrum.ParseInterpolation(w.Generate.Interpolation)
		if err != nil {
			return nil, err
		}
		tab, err := spectrum.ReadTabulated(w.Generate.Input, in)
		if err != nil {
			return nil, err
		}
		return tab.PowerSpectrum(), nil
	}
	c := w.Cosmology.Cosmology()
	return c.PowerSpectrum(w.Generate.Redshift)
}

// ReadGenerateConfig reads and checks a [Generate] config file.
func ReadGenerateConfig(fname string) (*GenerateWrapper, error) {
	w := DefaultGenerateWrapper()
	if err := gcfg.ReadFileInto(w, fname); err != nil {
		return nil, err
	}
	if err := w.CheckInit(); err != nil {
		return nil, err
	}
	return w, nil
}

// ReadGenerateString is identical to ReadGenerateConfig, but reads the
// config from a string.
func ReadGenerateString(text string) (*GenerateWrapper, error) {
	w := DefaultGenerateWrapper()
	if err := gcfg.ReadStringInto(w, text); err != nil {
		return nil, err
	}
	if err := w.CheckInit(); err != nil {
		return nil, err
	}
	return w, nil
}
