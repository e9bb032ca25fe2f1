package main

import (
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/spf13/cobra"

	muscle "github.com/phil-mansfield/gomuscle"
	"github.com/phil-mansfield/gomuscle/catalog"
	"github.com/phil-mansfield/gomuscle/io"
)

// FileGroup contains utility files for logging and writing profiles to.
type FileGroup struct {
	log, prof *os.File
}

// Close closes the files inside FileGroup.
func (fg *FileGroup) Close() {
	if fg.log != nil {
		err := fg.log.Close()
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	if fg.prof != nil {
		pprof.StopCPUProfile()
		err := fg.prof.Close()
		if err != nil {
			log.Fatal(err.Error())
		}
	}
}

var threads int

func main() {
	rootCmd := &cobra.Command{
		Use:   "gomuscle",
		Short: "multiscale spherical collapse initial conditions",
	}

	generateCmd := &cobra.Command{
		Use:   "generate [config]",
		Short: "generate a particle catalog from a [Generate] config file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			generateMain(args[0])
		},
	}
	generateCmd.Flags().IntVar(
		&threads, "threads", 0,
		"Number of threads used. Overrides the config file's Workers value.",
	)

	exampleCmd := &cobra.Command{
		Use:   "example-config",
		Short: "print an example [Generate] config file to stdout",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(io.ExampleGenerateFile)
		},
	}

	rootCmd.AddCommand(generateCmd, exampleCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func generateMain(fname string) {
	wrap, err := io.ReadGenerateConfig(fname)
	if err != nil {
		log.Fatal(err.Error())
	}
	con := &wrap.Generate

	fg := setupIO(&con.SharedConfig)
	defer fg.Close()

	mc, err := wrap.Config()
	if err != nil {
		log.Fatal(err.Error())
	}
	if threads > 0 {
		mc.Workers = threads
	}
	mc.Log = true

	p, err := wrap.Spectrum()
	if err != nil {
		log.Fatal(err.Error())
	}

	pipe, err := muscle.New(mc, p)
	if err != nil {
		log.Fatal(err.Error())
	}
	cat, err := pipe.Run()
	if err != nil {
		log.Fatal(err.Error())
	}

	switch strings.ToLower(con.Format) {
	case "gadget":
		order, err := con.ByteOrder()
		if err != nil {
			log.Fatal(err.Error())
		}
		out := con.Output + ".gadget"
		log.Printf("Writing to %s", out)
		if err := catalog.WriteGadgetFile(out, order, cat); err != nil {
			log.Fatal(err.Error())
		}
	case "csv":
		out := con.Output + ".csv"
		log.Printf("Writing to %s", out)
		if err := catalog.WriteCSVFile(out, cat.Particles); err != nil {
			log.Fatal(err.Error())
		}
	}

	out := con.Output + ".yaml"
	log.Printf("Writing to %s", out)
	if err := catalog.WriteHeaderFile(out, &cat.Header); err != nil {
		log.Fatal(err.Error())
	}
}

// setupIO starts logging to LogFile and profiling to ProfileFile, if they
// are set.
func setupIO(con *io.SharedConfig) *FileGroup {
	var err error
	fg := new(FileGroup)

	if con.ValidLogFile() {
		fg.log, err = os.Create(con.LogFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		log.SetOutput(fg.log)
	}

	if con.ValidProfileFile() {
		fg.prof, err = os.Create(con.ProfileFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		err = pprof.StartCPUProfile(fg.prof)
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	return fg
}
