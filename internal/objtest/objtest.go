// Package objtest builds minimal ELF, PE and Mach-O files for tests. Each
// has a code section holding the given text and an uninitialised data
// section with no file bytes.
package objtest

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	ELFTextAddr   = 0x401000
	ELFTextOffset = 64
	PEImageBase   = 0x140000000
	PETextRVA     = 0x1000
	PETextOffset  = 0x200
	MachOTextAddr = 0x100001000
	MachOTextOff  = 0x200

	// machOZerofill is S_ZEROFILL.
	machOZerofill = 0x1
)

func write(t testing.TB, buf *bytes.Buffer, order binary.ByteOrder, v any) {
	t.Helper()
	require.NoError(t, binary.Write(buf, order, v))
}

func padTo(buf *bytes.Buffer, size int) {
	if buf.Len() < size {
		buf.Write(make([]byte, size-buf.Len()))
	}
}

// ELF returns a little-endian x86-64 executable with .text, .bss and
// .shstrtab sections.
func ELF(t testing.TB, text []byte) []byte {
	t.Helper()
	shstrtab := []byte("\x00.text\x00.bss\x00.shstrtab\x00")
	textOff := uint64(ELFTextOffset)
	strOff := textOff + uint64(len(text))
	shoff := (strOff + uint64(len(shstrtab)) + 7) &^ 7

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shoff,
		Ehsize:    64,
		Shentsize: 64,
		Shnum:     4,
		Shstrndx:  3,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var buf bytes.Buffer
	write(t, &buf, binary.LittleEndian, hdr)
	buf.Write(text)
	buf.Write(shstrtab)
	padTo(&buf, int(shoff))

	sections := []elf.Section64{
		{},
		{
			Name:      1,
			Type:      uint32(elf.SHT_PROGBITS),
			Flags:     uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Addr:      ELFTextAddr,
			Off:       textOff,
			Size:      uint64(len(text)),
			Addralign: 1,
		},
		{
			Name:      7,
			Type:      uint32(elf.SHT_NOBITS),
			Flags:     uint64(elf.SHF_ALLOC | elf.SHF_WRITE),
			Addr:      0x402000,
			Off:       strOff,
			Size:      0x100,
			Addralign: 1,
		},
		{
			Name:      12,
			Type:      uint32(elf.SHT_STRTAB),
			Off:       strOff,
			Size:      uint64(len(shstrtab)),
			Addralign: 1,
		},
	}
	for _, s := range sections {
		write(t, &buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

func peSectionName(name string) [8]uint8 {
	var out [8]uint8
	copy(out[:], name)
	return out
}

// PE returns a PE32+ image with .text and .bss sections.
func PE(t testing.TB, text []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("MZ")
	padTo(&buf, 0x3c)
	write(t, &buf, binary.LittleEndian, uint32(0x40))
	buf.WriteString("PE\x00\x00")

	oh := pe.OptionalHeader64{
		Magic:               0x20b,
		ImageBase:           PEImageBase,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		NumberOfRvaAndSizes: 16,
	}
	write(t, &buf, binary.LittleEndian, pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		NumberOfSections:     2,
		SizeOfOptionalHeader: uint16(binary.Size(oh)),
	})
	write(t, &buf, binary.LittleEndian, oh)
	write(t, &buf, binary.LittleEndian, pe.SectionHeader32{
		Name:             peSectionName(".text"),
		VirtualSize:      uint32(len(text)),
		VirtualAddress:   PETextRVA,
		SizeOfRawData:    uint32(len(text)),
		PointerToRawData: PETextOffset,
		Characteristics:  pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_EXECUTE | pe.IMAGE_SCN_MEM_READ,
	})
	write(t, &buf, binary.LittleEndian, pe.SectionHeader32{
		Name:            peSectionName(".bss"),
		VirtualSize:     0x100,
		VirtualAddress:  0x2000,
		Characteristics: pe.IMAGE_SCN_CNT_UNINITIALIZED_DATA | pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_MEM_WRITE,
	})
	padTo(&buf, PETextOffset)
	buf.Write(text)
	return buf.Bytes()
}

func name16(s string) [16]byte {
	var out [16]byte
	copy(out[:], s)
	return out
}

// MachO returns a 64-bit Mach-O with __TEXT,__text and a zerofill
// __DATA,__bss section.
func MachO(t testing.TB, cpu macho.Cpu, text []byte) []byte {
	t.Helper()
	const (
		segSize  = 72
		sectSize = 80
	)
	var buf bytes.Buffer
	write(t, &buf, binary.LittleEndian, macho.FileHeader{
		Magic: macho.Magic64,
		Cpu:   cpu,
		Type:  macho.TypeExec,
		Ncmd:  1,
		Cmdsz: segSize + 2*sectSize,
	})
	write(t, &buf, binary.LittleEndian, uint32(0))
	write(t, &buf, binary.LittleEndian, macho.Segment64{
		Cmd:    macho.LoadCmdSegment64,
		Len:    segSize + 2*sectSize,
		Name:   name16("__TEXT"),
		Addr:   MachOTextAddr - MachOTextOff,
		Memsz:  0x2000,
		Filesz: uint64(MachOTextOff + len(text)),
		Nsect:  2,
	})
	write(t, &buf, binary.LittleEndian, macho.Section64{
		Name:   name16("__text"),
		Seg:    name16("__TEXT"),
		Addr:   MachOTextAddr,
		Size:   uint64(len(text)),
		Offset: MachOTextOff,
	})
	write(t, &buf, binary.LittleEndian, macho.Section64{
		Name:  name16("__bss"),
		Seg:   name16("__DATA"),
		Addr:  MachOTextAddr + 0x1000,
		Size:  0x100,
		Flags: machOZerofill,
	})
	padTo(&buf, MachOTextOff)
	buf.Write(text)
	return buf.Bytes()
}

// Fat places one slice per cpu at 0x1000-aligned offsets.
func Fat(t testing.TB, slices map[macho.Cpu][]byte, order []macho.Cpu) []byte {
	t.Helper()
	var buf bytes.Buffer
	write(t, &buf, binary.BigEndian, uint32(macho.MagicFat))
	write(t, &buf, binary.BigEndian, uint32(len(order)))

	offset := uint32(0x1000)
	offsets := make([]uint32, len(order))
	for i, cpu := range order {
		offsets[i] = offset
		size := uint32(len(slices[cpu]))
		write(t, &buf, binary.BigEndian, macho.FatArchHeader{
			Cpu:    cpu,
			Offset: offset,
			Size:   size,
			Align:  12,
		})
		offset += (size + 0xfff) &^ 0xfff
	}
	for i, cpu := range order {
		padTo(&buf, int(offsets[i]))
		buf.Write(slices[cpu])
	}
	return buf.Bytes()
}
