// Package config loads the YAML project manifest describing a multi-module
// SIC/XE build.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ezrec/sicxe/asm"
	"github.com/ezrec/sicxe/cpu"
	"github.com/ezrec/sicxe/link"
	"github.com/ezrec/sicxe/translate"
)

var f = translate.From

var ErrNoModules = errors.New(f("manifest lists no modules"))
var ErrModulePath = errors.New(f("module path missing"))
var ErrBaseRange = errors.New(f("load base out of range"))
var ErrStepsRange = errors.New(f("step limit is negative"))

// ErrManifest reports a manifest that could not be used.
type ErrManifest struct {
	Path string
	Err  error
}

func (err *ErrManifest) Error() string {
	return f("%v: %v", err.Path, err.Err)
}

func (err *ErrManifest) Unwrap() error {
	return err.Err
}

// Module is a single assembly source of the build.
type Module struct {
	Path string `yaml:"path"`           // Source file.
	Name string `yaml:"name,omitempty"` // Diagnostic name; defaults to Path.
}

// Manifest describes how to assemble, link and run a program.
type Manifest struct {
	Base      int            `yaml:"base"`
	Entry     string         `yaml:"entry,omitempty"`
	Modules   []Module       `yaml:"modules"`
	Predefine map[string]int `yaml:"predefine,omitempty"`
	Object    string         `yaml:"object,omitempty"`
	Listing   string         `yaml:"listing,omitempty"`
	Steps     int            `yaml:"steps,omitempty"`
	Verbose   bool           `yaml:"verbose,omitempty"`
}

// Validate checks the manifest for consistency.
func (man *Manifest) Validate() error {
	if len(man.Modules) == 0 {
		return ErrNoModules
	}
	for n, mod := range man.Modules {
		if len(mod.Path) == 0 {
			return fmt.Errorf("modules[%d]: %w", n, ErrModulePath)
		}
	}
	if man.Base < 0 || man.Base >= cpu.MEMORY_SIZE {
		return ErrBaseRange
	}
	if man.Steps < 0 {
		return ErrStepsRange
	}
	return nil
}

// Read decodes and validates a manifest. Unknown keys are rejected.
func Read(r io.Reader) (man *Manifest, err error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	man = &Manifest{}
	err = dec.Decode(man)
	if errors.Is(err, io.EOF) {
		err = ErrNoModules
	}
	if err == nil {
		err = man.Validate()
	}
	if err != nil {
		man = nil
	}
	return
}

// Load reads the manifest at path. Relative file names in the manifest
// are resolved against the manifest's directory.
func Load(path string) (man *Manifest, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	man, err = Read(inf)
	if err != nil {
		err = &ErrManifest{Path: path, Err: err}
		return
	}

	dir := filepath.Dir(path)
	resolve := func(name string) string {
		if len(name) == 0 || filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(dir, name)
	}

	for n := range man.Modules {
		mod := &man.Modules[n]
		if len(mod.Name) == 0 {
			mod.Name = mod.Path
		}
		mod.Path = resolve(mod.Path)
	}
	man.Object = resolve(man.Object)
	man.Listing = resolve(man.Listing)

	return
}

// Write encodes the manifest as YAML.
func (man *Manifest) Write(w io.Writer) (err error) {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err = enc.Encode(man)
	if err != nil {
		return
	}
	return enc.Close()
}

// Assembler returns an assembler with the manifest's predefined symbols.
func (man *Manifest) Assembler() *asm.Assembler {
	assembler := &asm.Assembler{Verbose: man.Verbose}
	for name, value := range man.Predefine {
		assembler.Predefine(name, value)
	}
	return assembler
}

// Linker returns a linker placing modules at the manifest's base.
func (man *Manifest) Linker() *link.Linker {
	return &link.Linker{
		Verbose: man.Verbose,
		Base:    man.Base,
		Entry:   man.Entry,
	}
}

// Sources opens every module source. The returned closer releases them.
func (man *Manifest) Sources() (sources []asm.Source, closer func(), err error) {
	var files []*os.File
	closer = func() {
		for _, inf := range files {
			inf.Close()
		}
	}

	for _, mod := range man.Modules {
		var inf *os.File
		inf, err = os.Open(mod.Path)
		if err != nil {
			closer()
			closer = func() {}
			sources = nil
			return
		}
		files = append(files, inf)

		name := mod.Name
		if len(name) == 0 {
			name = mod.Path
		}
		sources = append(sources, asm.Source{Name: name, Input: inf})
	}

	return
}
