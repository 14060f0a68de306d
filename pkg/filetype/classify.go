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

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// 📏 LengthError is returned when a prefix is shorter than PrefixLen
type LengthError struct {
	Got  int
	Want int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("prefix too short: got %d bytes, need %d", e.Got, e.Want)
}

// 🎯 Result is the outcome of a classification. The zero value means unknown.
type Result struct {
	Type     Type
	Category Category
}

// Known reports whether a signature matched.
func (r Result) Known() bool {
	return r.Type != ""
}

func (r Result) String() string {
	if !r.Known() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s)", r.Type, r.Category)
}

var unknown = Result{}

// 🔬 Classify identifies a format from the first PrefixLen bytes of a file.
// Bytes past PrefixLen are ignored. No match returns the zero Result.
func Classify(prefix []byte) (Result, error) {
	if len(prefix) < PrefixLen {
		return unknown, &LengthError{Got: len(prefix), Want: PrefixLen}
	}
	prefix = prefix[:PrefixLen]

	for _, sig := range signatures {
		if !sig.matches(prefix) {
			continue
		}
		switch sig.family {
		case familyJPEG:
			return jpegVariant(prefix), nil
		case familyISOBMFF:
			return isoBMFFBrand(prefix), nil
		case familyRIFF:
			return riffSubtype(prefix), nil
		case familyEBML:
			return ebmlDocType(prefix), nil
		default:
			return Result{Type: sig.Type, Category: sig.Category}, nil
		}
	}

	return unknown, nil
}

// CategoryOf is Classify(prefix).Category.
func CategoryOf(prefix []byte) (Category, error) {
	res, err := Classify(prefix)
	if err != nil {
		return "", err
	}
	return res.Category, nil
}

func (s Signature) matches(prefix []byte) bool {
	for _, p := range s.Patterns {
		if p.Match(prefix) {
			return true
		}
	}
	return false
}

// jpegVariant labels JPEGs carrying an APP1/EXIF marker as jpg.
func jpegVariant(prefix []byte) Result {
	if prefix[2] == 0xff && prefix[3] == 0xe1 {
		return Result{Type: TypeJPG, Category: CategoryImage}
	}
	return Result{Type: TypeJPEG, Category: CategoryImage}
}

// isoBMFFBrand reads the brand of the ftyp box. An ftyp box in the leading
// box slot (or right after a JPEG 2000 signature box) carries a JPEG 2000
// brand; anywhere else the file is treated as plain ISO-BMFF video.
func isoBMFFBrand(prefix []byte) Result {
	idx := bytes.Index(prefix, []byte("ftyp"))
	if idx < 0 {
		return unknown
	}

	leading := idx >= 4 && idx < 8
	afterSignatureBox := bytes.HasPrefix(prefix, jp2SignatureBox) && idx == len(jp2SignatureBox)+4
	if !leading && !afterSignatureBox {
		return Result{Type: TypeMP4, Category: CategoryVideo}
	}

	if idx+8 > len(prefix) {
		return unknown
	}
	switch string(prefix[idx+4 : idx+8]) {
	case "jp2 ":
		return Result{Type: TypeJP2, Category: CategoryImage}
	case "jpx ":
		return Result{Type: TypeJPF, Category: CategoryImage}
	default:
		return Result{Type: TypeJ2K, Category: CategoryImage}
	}
}

// riffSubtype resolves a bare RIFF header. WebP has its own signature.
func riffSubtype(prefix []byte) Result {
	switch string(prefix[8:12]) {
	case "WAVE":
		return Result{Type: TypeWAV, Category: CategoryAudio}
	case "AVI ":
		return Result{Type: TypeAVI, Category: CategoryVideo}
	default:
		return unknown
	}
}

// ebmlDocType tells WebM from Matroska when the DocType fits in the window.
// Muxers usually write it at byte 24, so most WebM files come out as mkv.
func ebmlDocType(prefix []byte) Result {
	if bytes.Contains(prefix, []byte("webm")) {
		return Result{Type: TypeWebM, Category: CategoryVideo}
	}
	return Result{Type: TypeMKV, Category: CategoryVideo}
}

// 📥 Sniff reads the classification window from r and classifies it
func Sniff(r io.Reader) (Result, error) {
	buf := make([]byte, PrefixLen)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return unknown, &LengthError{Got: n, Want: PrefixLen}
		}
		return unknown, errors.Errorf("reading prefix: %w", err)
	}
	return Classify(buf)
}

// SniffFile classifies the file at path.
func SniffFile(fs afero.Fs, path string) (Result, error) {
	f, err := fs.Open(path)
	if err != nil {
		return unknown, errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	res, err := Sniff(f)
	if err != nil {
		var lerr *LengthError
		if errors.As(err, &lerr) {
			return unknown, err
		}
		return unknown, errors.Errorf("sniffing %s: %w", path, err)
	}
	return res, nil
}
