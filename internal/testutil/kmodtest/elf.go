// SPDX-License-Identifier: MPL-2.0

package kmodtest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"strings"
)

const (
	elfHeaderSize  = 64
	elfSectionSize = 64
)

// Section is one named section of a synthetic ELF image.
type Section struct {
	Name string
	Data []byte
}

// ModinfoSection encodes "key=value" entries the way the kernel build lays out
// .modinfo: NUL-terminated strings, back to back.
func ModinfoSection(entries ...string) Section {
	var data []byte
	for _, e := range entries {
		data = append(data, e...)
		data = append(data, 0)
	}
	return Section{Name: ".modinfo", Data: data}
}

// ModuleImage returns a minimal relocatable x86-64 ELF image whose .modinfo
// section holds entries.
func ModuleImage(entries ...string) []byte {
	return ELF(ModinfoSection(entries...))
}

// ELF returns a minimal little-endian ELF64 relocatable image with the given
// sections followed by a section name table. It carries no code; it only has
// to satisfy debug/elf.
func ELF(sections ...Section) []byte {
	var shstrtab strings.Builder
	shstrtab.WriteByte(0)
	nameOff := make([]uint32, len(sections))
	for i, s := range sections {
		nameOff[i] = uint32(shstrtab.Len())
		shstrtab.WriteString(s.Name)
		shstrtab.WriteByte(0)
	}
	shstrtabNameOff := uint32(shstrtab.Len())
	shstrtab.WriteString(".shstrtab")
	shstrtab.WriteByte(0)

	var body bytes.Buffer
	headers := []elf.Section64{{}}
	offset := uint64(elfHeaderSize)
	for i, s := range sections {
		headers = append(headers, elf.Section64{
			Name:      nameOff[i],
			Type:      uint32(elf.SHT_PROGBITS),
			Flags:     uint64(elf.SHF_ALLOC),
			Off:       offset,
			Size:      uint64(len(s.Data)),
			Addralign: 1,
		})
		body.Write(s.Data)
		offset += uint64(len(s.Data))
	}
	headers = append(headers, elf.Section64{
		Name:      shstrtabNameOff,
		Type:      uint32(elf.SHT_STRTAB),
		Off:       offset,
		Size:      uint64(shstrtab.Len()),
		Addralign: 1,
	})
	body.WriteString(shstrtab.String())
	offset += uint64(shstrtab.Len())

	pad := (8 - offset%8) % 8
	body.Write(make([]byte, pad))
	shoff := offset + pad

	hdr := elf.Header64{
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shoff,
		Ehsize:    elfHeaderSize,
		Shentsize: elfSectionSize,
		Shnum:     uint16(len(headers)),
		Shstrndx:  uint16(len(headers) - 1),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var out bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(body.Bytes())
	for _, sh := range headers {
		_ = binary.Write(&out, binary.LittleEndian, sh)
	}
	return out.Bytes()
}
