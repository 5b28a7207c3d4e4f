// Package section locates named sections inside ELF, PE and Mach-O files so
// a scan can be restricted to, for example, the code section of a binary.
package section

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidObject means the data is not a supported object file.
	ErrInvalidObject = errors.New("not a valid object file")
	// ErrNotFound means no section with the requested name exists.
	ErrNotFound = errors.New("section not found")
	// ErrNoData means the section exists but has no bytes in the file.
	ErrNoData = errors.New("section has no file data")
)

// Format identifies an object file format.
type Format string

const (
	FormatUnknown  Format = ""
	FormatELF      Format = "elf"
	FormatPE       Format = "pe"
	FormatMachO    Format = "macho"
	FormatMachOFat Format = "macho-fat"
)

// Range is the location of one section's bytes in a file.
type Range struct {
	Offset  uint64 // file offset of the first byte
	Size    uint64 // number of bytes in the file
	Address uint64 // virtual address the section loads at
	Arch    string // architecture of the containing slice in a fat Mach-O, else empty
}

// Slice returns the section's bytes within data.
func (r Range) Slice(data []byte) ([]byte, error) {
	end := r.Offset + r.Size
	if end < r.Offset || end > uint64(len(data)) {
		return nil, fmt.Errorf("section at %#x+%#x exceeds file size %d: %w", r.Offset, r.Size, len(data), ErrNoData)
	}
	return data[r.Offset:end], nil
}

// Detect reports the object format of data by its magic number.
func Detect(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}
	switch {
	case bytes.HasPrefix(data, []byte(elf.ELFMAG)):
		return FormatELF
	case data[0] == 'M' && data[1] == 'Z':
		return FormatPE
	}
	switch binary.BigEndian.Uint32(data) {
	case macho.MagicFat:
		return FormatMachOFat
	case macho.Magic32, macho.Magic64:
		return FormatMachO
	}
	switch binary.LittleEndian.Uint32(data) {
	case macho.Magic32, macho.Magic64:
		return FormatMachO
	}
	return FormatUnknown
}

// Resolve returns every section called name in data. Fat Mach-O files yield
// one range per architecture slice that has the section. Mach-O names may
// be qualified with their segment ("__TEXT,__text").
func Resolve(data []byte, name string) ([]Range, error) {
	var (
		ranges []Range
		err    error
	)
	switch Detect(data) {
	case FormatELF:
		ranges, err = resolveELF(data, name)
	case FormatPE:
		ranges, err = resolvePE(data, name)
	case FormatMachO:
		ranges, err = resolveMachO(data, name, 0, "")
	case FormatMachOFat:
		ranges, err = resolveFat(data, name)
	default:
		return nil, ErrInvalidObject
	}
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	for _, r := range ranges {
		if _, err := r.Slice(data); err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
	}
	return ranges, nil
}

func resolveELF(data []byte, name string) ([]Range, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing ELF: %w: %v", ErrInvalidObject, err)
	}
	defer f.Close()

	var ranges []Range
	for _, s := range f.Sections {
		if s.Name != name {
			continue
		}
		if s.Type == elf.SHT_NOBITS || s.FileSize == 0 {
			return nil, fmt.Errorf("%q: %w", name, ErrNoData)
		}
		ranges = append(ranges, Range{Offset: s.Offset, Size: s.FileSize, Address: s.Addr})
	}
	return ranges, nil
}

func resolvePE(data []byte, name string) ([]Range, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing PE: %w: %v", ErrInvalidObject, err)
	}
	defer f.Close()

	var imageBase uint64
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		imageBase = uint64(oh.ImageBase)
	case *pe.OptionalHeader64:
		imageBase = oh.ImageBase
	}

	var ranges []Range
	for _, s := range f.Sections {
		if s.Name != name {
			continue
		}
		if s.Size == 0 {
			return nil, fmt.Errorf("%q: %w", name, ErrNoData)
		}
		ranges = append(ranges, Range{
			Offset:  uint64(s.Offset),
			Size:    uint64(s.Size),
			Address: imageBase + uint64(s.VirtualAddress),
		})
	}
	return ranges, nil
}

// sectionTypeZerofill is S_ZEROFILL, a section with no bytes in the file.
const sectionTypeZerofill = 0x1

// resolveMachO parses the Mach-O image at data[base:]. Returned offsets are
// relative to the start of data.
func resolveMachO(data []byte, name string, base uint64, arch string) ([]Range, error) {
	f, err := macho.NewFile(bytes.NewReader(data[base:]))
	if err != nil {
		return nil, fmt.Errorf("parsing Mach-O: %w: %v", ErrInvalidObject, err)
	}
	defer f.Close()

	seg, sect, qualified := strings.Cut(name, ",")
	if !qualified {
		sect = name
	}

	var ranges []Range
	for _, s := range f.Sections {
		if s.Name != sect || (qualified && s.Seg != seg) {
			continue
		}
		if s.Flags&0xff == sectionTypeZerofill || s.Size == 0 || s.Offset == 0 {
			return nil, fmt.Errorf("%q: %w", name, ErrNoData)
		}
		ranges = append(ranges, Range{
			Offset:  base + uint64(s.Offset),
			Size:    s.Size,
			Address: s.Addr,
			Arch:    arch,
		})
	}
	return ranges, nil
}

func resolveFat(data []byte, name string) ([]Range, error) {
	ff, err := macho.NewFatFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing fat Mach-O: %w: %v", ErrInvalidObject, err)
	}
	defer ff.Close()

	var ranges []Range
	for _, a := range ff.Arches {
		end := uint64(a.Offset) + uint64(a.Size)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("slice %s exceeds file size: %w", ArchName(a.Cpu), ErrInvalidObject)
		}
		r, err := resolveMachO(data[:end], name, uint64(a.Offset), ArchName(a.Cpu))
		if err != nil {
			if errors.Is(err, ErrNoData) {
				return nil, err
			}
			return nil, fmt.Errorf("slice %s: %w", ArchName(a.Cpu), err)
		}
		ranges = append(ranges, r...)
	}
	return ranges, nil
}

// ArchName returns a short name for a Mach-O CPU type.
func ArchName(cpu macho.Cpu) string {
	switch cpu {
	case macho.Cpu386:
		return "386"
	case macho.CpuAmd64:
		return "amd64"
	case macho.CpuArm:
		return "arm"
	case macho.CpuArm64:
		return "arm64"
	case macho.CpuPpc:
		return "ppc"
	case macho.CpuPpc64:
		return "ppc64"
	}
	return cpu.String()
}

// Names lists the section names present in data, for error messages and
// the CLI. Fat Mach-O names are taken from the first slice.
func Names(data []byte) ([]string, error) {
	r := bytes.NewReader(data)
	var names []string
	switch Detect(data) {
	case FormatELF:
		f, err := elf.NewFile(r)
		if err != nil {
			return nil, fmt.Errorf("parsing ELF: %w: %v", ErrInvalidObject, err)
		}
		for _, s := range f.Sections {
			if s.Name != "" {
				names = append(names, s.Name)
			}
		}
	case FormatPE:
		f, err := pe.NewFile(r)
		if err != nil {
			return nil, fmt.Errorf("parsing PE: %w: %v", ErrInvalidObject, err)
		}
		for _, s := range f.Sections {
			names = append(names, s.Name)
		}
	case FormatMachO:
		f, err := macho.NewFile(r)
		if err != nil {
			return nil, fmt.Errorf("parsing Mach-O: %w: %v", ErrInvalidObject, err)
		}
		names = machoNames(f)
	case FormatMachOFat:
		ff, err := macho.NewFatFile(r)
		if err != nil {
			return nil, fmt.Errorf("parsing fat Mach-O: %w: %v", ErrInvalidObject, err)
		}
		if len(ff.Arches) > 0 {
			names = machoNames(ff.Arches[0].File)
		}
	default:
		return nil, ErrInvalidObject
	}
	return names, nil
}

func machoNames(f *macho.File) []string {
	names := make([]string, 0, len(f.Sections))
	for _, s := range f.Sections {
		names = append(names, s.Seg+","+s.Name)
	}
	return names
}
