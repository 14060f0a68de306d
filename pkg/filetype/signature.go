// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package filetype

import "fmt"

// PrefixLen is the number of leading bytes classification operates on.
const PrefixLen = 24

// 🏷️ Type identifies a file format (e.g. "png", "ooxml")
type Type string

// 📂 Category groups formats by what they hold
type Category string

const (
	CategoryImage        Category = "image"
	CategoryVideo        Category = "video"
	CategoryAudio        Category = "audio"
	CategoryDocument     Category = "document"
	CategorySpreadsheet  Category = "spreadsheet"
	CategoryPresentation Category = "presentation"
	CategoryDatabase     Category = "database"
	CategoryArchive      Category = "archive"
	CategoryExecutable   Category = "executable"
	CategoryFont         Category = "font"
	CategoryScript       Category = "script"
	CategoryData         Category = "data"
)

const (
	TypePDF    Type = "pdf"
	TypePNG    Type = "png"
	TypeGIF    Type = "gif"
	TypeJPG    Type = "jpg"
	TypeJPEG   Type = "jpeg"
	TypeJXR    Type = "jxr"
	TypeTIFF   Type = "tiff"
	TypeBMP    Type = "bmp"
	TypePSD    Type = "psd"
	TypeWebP   Type = "webp"
	TypeAVIF   Type = "avif"
	TypeHEIC   Type = "heic"
	TypeJP2    Type = "jp2"
	TypeJPF    Type = "jpf"
	TypeJ2K    Type = "j2k"
	TypeMP4    Type = "mp4"
	TypeMOV    Type = "mov"
	TypeAVI    Type = "avi"
	TypeFLV    Type = "flv"
	TypeWMV    Type = "wmv"
	TypeMKV    Type = "mkv"
	TypeWebM   Type = "webm"
	TypeOGG    Type = "ogg"
	TypeMPEG1  Type = "mpeg1"
	TypeMPEG2  Type = "mpeg2"
	TypeRTF    Type = "rtf"
	TypeSQLite Type = "sqlite"
	TypeOOXML  Type = "ooxml"
	TypeODF    Type = "odf"
	TypeZIP    Type = "zip"
	TypeRAR    Type = "rar"
	Type7Z     Type = "7z"
	TypeGZIP   Type = "gz"
	TypeMP3    Type = "mp3"
	TypeWAV    Type = "wav"
	TypeFLAC   Type = "flac"
	TypeAAC    Type = "aac"
	TypeDylib  Type = "dylib"
	TypeELF    Type = "elf"
	TypeEXE    Type = "exe"
	TypeWOFF   Type = "woff"
	TypeWOFF2  Type = "woff2"
	TypeOTF    Type = "otf"
	TypeTTC    Type = "ttc"
	TypeTTF    Type = "ttf"
	TypeScript Type = "sh"
	TypeXML    Type = "xml"
)

// 🧬 family selects a disambiguator for signatures shared by several formats
type family int

const (
	familyNone family = iota
	familyJPEG
	familyISOBMFF
	familyRIFF
	familyEBML
)

// 🔍 Pattern is a byte sequence matched at offset 0 of a prefix.
// A zero Mask byte makes the matching Value byte a wildcard, which is how
// patterns address a window past offset 0.
type Pattern struct {
	Value []byte
	Mask  []byte
}

// Len is the number of prefix bytes the pattern covers.
func (p Pattern) Len() int {
	return len(p.Value)
}

// Match reports whether prefix starts with the pattern.
func (p Pattern) Match(prefix []byte) bool {
	if len(prefix) < len(p.Value) {
		return false
	}
	for i, b := range p.Value {
		mask := byte(0xff)
		if p.Mask != nil {
			mask = p.Mask[i]
		}
		if prefix[i]&mask != b&mask {
			return false
		}
	}
	return true
}

// 📇 Signature is one record of the signature table
type Signature struct {
	Type     Type
	Category Category
	Patterns []Pattern

	family family
}

func exact(b ...byte) Pattern {
	return Pattern{Value: b}
}

func str(s string) Pattern {
	return Pattern{Value: []byte(s)}
}

// at builds a pattern that matches s at offset, leaving earlier bytes free.
func at(offset int, s string) Pattern {
	value := make([]byte, offset+len(s))
	mask := make([]byte, offset+len(s))
	copy(value[offset:], s)
	for i := offset; i < len(mask); i++ {
		mask[i] = 0xff
	}
	return Pattern{Value: value, Mask: mask}
}

func brands(bs ...string) []Pattern {
	out := make([]Pattern, 0, len(bs))
	for _, b := range bs {
		out = append(out, at(4, "ftyp"+b))
	}
	return out
}

var jp2SignatureBox = []byte{0x00, 0x00, 0x00, 0x0c, 0x6a, 0x50, 0x20, 0x20, 0x0d, 0x0a, 0x87, 0x0a}

// signatures is scanned in order and the first match wins. Longer patterns
// that share a prefix with a shorter one must come first (ooxml/odf before
// zip, the ftyp brands before the ISO-BMFF family).
var signatures = mustTable([]Signature{
	{Type: TypePDF, Category: CategoryDocument, Patterns: []Pattern{str("%PDF-")}},
	{Type: TypePNG, Category: CategoryImage, Patterns: []Pattern{str("\x89PNG\r\n\x1a\n")}},
	{Type: TypeGIF, Category: CategoryImage, Patterns: []Pattern{str("GIF87a"), str("GIF89a")}},
	{Type: TypeJPG, Category: CategoryImage, Patterns: []Pattern{exact(0xff, 0xd8, 0xff)}, family: familyJPEG},
	{Type: TypeJXR, Category: CategoryImage, Patterns: []Pattern{exact(0x49, 0x49, 0xbc, 0x01)}},
	{Type: TypeTIFF, Category: CategoryImage, Patterns: []Pattern{exact(0x49, 0x49, 0x2a, 0x00), exact(0x4d, 0x4d, 0x00, 0x2a)}},
	{Type: TypeBMP, Category: CategoryImage, Patterns: []Pattern{str("BM")}},
	{Type: TypePSD, Category: CategoryImage, Patterns: []Pattern{str("8BPS")}},
	{Type: TypeWebP, Category: CategoryImage, Patterns: []Pattern{{
		Value: []byte("RIFF\x00\x00\x00\x00WEBP"),
		Mask:  []byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff},
	}}},
	// Known ftyp brands win over the ISO-BMFF family rule, which would
	// otherwise report any brand other than jp2 and jpx as j2k.
	{Type: TypeAVIF, Category: CategoryImage, Patterns: brands("avif", "avis")},
	{Type: TypeHEIC, Category: CategoryImage, Patterns: brands("heic", "heix", "mif1", "msf1")},
	{Type: TypeMP4, Category: CategoryVideo, Patterns: brands("isom", "iso2", "mp41", "mp42", "avc1", "dash")},
	{Type: TypeMOV, Category: CategoryVideo, Patterns: append(brands("qt  "), at(4, "moov"))},
	{Type: TypeJ2K, Category: CategoryImage, Patterns: []Pattern{at(4, "ftyp"), {Value: jp2SignatureBox}}, family: familyISOBMFF},
	{Type: TypeWAV, Category: CategoryAudio, Patterns: []Pattern{str("RIFF")}, family: familyRIFF},
	{Type: TypeFLV, Category: CategoryVideo, Patterns: []Pattern{str("FLV\x01")}},
	{Type: TypeWMV, Category: CategoryVideo, Patterns: []Pattern{exact(0x30, 0x26, 0xb2, 0x75, 0x8e, 0x66, 0xcf, 0x11)}},
	{Type: TypeMKV, Category: CategoryVideo, Patterns: []Pattern{exact(0x1a, 0x45, 0xdf, 0xa3)}, family: familyEBML},
	{Type: TypeOGG, Category: CategoryVideo, Patterns: []Pattern{str("OggS")}},
	{Type: TypeMPEG1, Category: CategoryVideo, Patterns: []Pattern{exact(0x00, 0x00, 0x01, 0xba)}},
	{Type: TypeMPEG2, Category: CategoryVideo, Patterns: []Pattern{exact(0x00, 0x00, 0x01, 0xb3)}},
	{Type: TypeRTF, Category: CategoryDocument, Patterns: []Pattern{str(`{\rtf`)}},
	{Type: TypeSQLite, Category: CategoryDatabase, Patterns: []Pattern{str("SQLite format 3\x00")}},
	{Type: TypeOOXML, Category: CategoryDocument, Patterns: []Pattern{exact(0x50, 0x4b, 0x03, 0x04, 0x14, 0x00, 0x06, 0x00)}},
	{Type: TypeODF, Category: CategoryDocument, Patterns: []Pattern{exact(0x50, 0x4b, 0x03, 0x04, 0x14, 0x00, 0x00, 0x08)}},
	{Type: TypeZIP, Category: CategoryArchive, Patterns: []Pattern{
		exact(0x50, 0x4b, 0x03, 0x04),
		exact(0x50, 0x4b, 0x05, 0x06),
		exact(0x50, 0x4b, 0x07, 0x08),
	}},
	{Type: TypeRAR, Category: CategoryArchive, Patterns: []Pattern{str("Rar!\x1a\x07")}},
	{Type: Type7Z, Category: CategoryArchive, Patterns: []Pattern{exact(0x37, 0x7a, 0xbc, 0xaf, 0x27, 0x1c)}},
	{Type: TypeGZIP, Category: CategoryArchive, Patterns: []Pattern{exact(0x1f, 0x8b)}},
	{Type: TypeMP3, Category: CategoryAudio, Patterns: []Pattern{str("ID3"), exact(0xff, 0xfb), exact(0xff, 0xf3), exact(0xff, 0xf2)}},
	{Type: TypeFLAC, Category: CategoryAudio, Patterns: []Pattern{str("fLaC")}},
	{Type: TypeAAC, Category: CategoryAudio, Patterns: []Pattern{exact(0xff, 0xf1), exact(0xff, 0xf9)}},
	{Type: TypeDylib, Category: CategoryExecutable, Patterns: []Pattern{exact(0xce, 0xfa, 0xed, 0xfe), exact(0xcf, 0xfa, 0xed, 0xfe)}},
	{Type: TypeELF, Category: CategoryExecutable, Patterns: []Pattern{str("\x7fELF")}},
	{Type: TypeEXE, Category: CategoryExecutable, Patterns: []Pattern{str("MZ")}},
	{Type: TypeWOFF, Category: CategoryFont, Patterns: []Pattern{str("wOFF")}},
	{Type: TypeWOFF2, Category: CategoryFont, Patterns: []Pattern{str("wOF2")}},
	{Type: TypeOTF, Category: CategoryFont, Patterns: []Pattern{str("OTTO")}},
	{Type: TypeTTC, Category: CategoryFont, Patterns: []Pattern{str("ttcf")}},
	{Type: TypeTTF, Category: CategoryFont, Patterns: []Pattern{exact(0x00, 0x01, 0x00, 0x00, 0x00)}},
	{Type: TypeScript, Category: CategoryScript, Patterns: []Pattern{str("#!")}},
	{Type: TypeXML, Category: CategoryData, Patterns: []Pattern{str("<?xml")}},
})

// mustTable checks the table invariants once at package init.
func mustTable(sigs []Signature) []Signature {
	seen := make(map[Type]bool, len(sigs))
	for _, s := range sigs {
		if seen[s.Type] {
			panic(fmt.Sprintf("filetype: duplicate signature for %q", s.Type))
		}
		seen[s.Type] = true
		if len(s.Patterns) == 0 {
			panic(fmt.Sprintf("filetype: signature %q has no patterns", s.Type))
		}
		for _, p := range s.Patterns {
			if p.Len() == 0 || p.Len() > PrefixLen {
				panic(fmt.Sprintf("filetype: pattern for %q is %d bytes, want 1..%d", s.Type, p.Len(), PrefixLen))
			}
			if p.Mask != nil && len(p.Mask) != len(p.Value) {
				panic(fmt.Sprintf("filetype: pattern mask for %q does not match its value", s.Type))
			}
		}
	}
	return sigs
}

// Signatures returns a copy of the registered signatures in match order.
func Signatures() []Signature {
	out := make([]Signature, len(signatures))
	copy(out, signatures)
	return out
}
