// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ezrec/sicxe/config"
	"github.com/ezrec/sicxe/disasm"
	"github.com/ezrec/sicxe/emulator"
	"github.com/ezrec/sicxe/object"
	"github.com/ezrec/sicxe/translate"
)

func disassemble(path string, lenient bool, verbose bool) {
	inf, err := os.Open(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	defer inf.Close()

	bin, err := object.Read(inf)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	dis := &disasm.Disassembler{Verbose: verbose}
	if lenient {
		dis.Policy = disasm.POLICY_LENIENT
	}

	code, err := dis.Binary(bin)
	if werr := disasm.Write(os.Stdout, code, bin); werr != nil {
		log.Fatalf("%v: %v", path, werr)
	}
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
}

func create(path string, write func(ouf *os.File) error) {
	ouf, err := os.Create(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	err = write(ouf)
	if cerr := ouf.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
}

func main() {
	var manifest string
	var objectFile string
	var listingFile string
	var disasmFile string
	var lenient bool
	var run bool
	var steps int
	var verbose bool
	var lang string

	flag.StringVar(&manifest, "m", "", ".yaml build manifest to use")
	flag.StringVar(&objectFile, "o", "", "Object file output")
	flag.StringVar(&listingFile, "l", "", "Listing file output")
	flag.StringVar(&disasmFile, "d", "", "Object file to disassemble")
	flag.BoolVar(&lenient, "k", false, "Keep disassembling past unknown opcodes")
	flag.BoolVar(&run, "r", false, "Run the linked program")
	flag.IntVar(&steps, "n", 0, "Step limit when running (0 for none)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&lang, "L", "", "Message locale (default from the system)")

	flag.Parse()

	if len(lang) != 0 {
		tag := translate.Use(lang)
		if verbose {
			log.Printf("%v: locale %v", os.Args[0], tag)
		}
	}

	if len(disasmFile) != 0 {
		if flag.NArg() != 0 || len(manifest) != 0 {
			log.Fatalf("%v: -d takes no sources", os.Args[0])
		}
		disassemble(disasmFile, lenient, verbose)
		return
	}

	man := &config.Manifest{}
	if len(manifest) != 0 {
		var err error
		man, err = config.Load(manifest)
		if err != nil {
			log.Fatal(err)
		}
	}

	for _, path := range flag.Args() {
		man.Modules = append(man.Modules, config.Module{Path: path, Name: path})
	}
	if len(objectFile) != 0 {
		man.Object = objectFile
	}
	if len(listingFile) != 0 {
		man.Listing = listingFile
	}
	if steps != 0 {
		man.Steps = steps
	}
	man.Verbose = man.Verbose || verbose

	if err := man.Validate(); err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	emu := emulator.NewEmulator(0)
	emu.Verbose = man.Verbose

	assembler := man.Assembler()
	for name, value := range emu.Defines() {
		if _, ok := man.Predefine[name]; !ok {
			assembler.Predefine(name, value)
		}
	}

	sources, closer, err := man.Sources()
	if err != nil {
		log.Fatal(err)
	}
	mods, err := assembler.AssembleAll(context.Background(), sources)
	closer()
	if err != nil {
		log.Fatal(err)
	}

	if man.Verbose {
		for _, mod := range mods {
			for _, warning := range mod.Warnings {
				log.Printf("%v: %v", mod.Name, warning)
			}
		}
	}

	prog, err := man.Linker().Link(mods)
	if err != nil {
		log.Fatal(err)
	}

	if len(man.Listing) != 0 {
		create(man.Listing, func(ouf *os.File) (err error) {
			for n, mod := range mods {
				_, err = fmt.Fprintf(ouf, "%v @ %06X\n", mod.Name, prog.Placements[n].Base)
				if err != nil {
					return
				}
				err = mod.Listing.Write(ouf)
				if err != nil {
					return
				}
			}
			return
		})
	}

	if len(man.Object) != 0 {
		create(man.Object, func(ouf *os.File) error {
			return object.Write(ouf, prog.Binary)
		})
	}

	if !run {
		return
	}

	err = emu.Load(prog.Binary)
	if err != nil {
		log.Fatal(err)
	}
	for n, mod := range mods {
		emu.AddListing(mod.Listing, prog.Placements[n].Base-mod.Start)
	}

	err = emu.Run(man.Steps)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(emu.Machine)
	log.Printf("%v: halted after %d instructions", os.Args[0], emu.Ticks())
}
