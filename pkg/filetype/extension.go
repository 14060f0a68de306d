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
	"path/filepath"
	"slices"
	"strings"
)

// extensions lists, per type, the extensions files of that type are saved
// under. Types missing here are saved under their own name. Matroska lists
// webm because WebM writers put the DocType at byte 24, past the window.
var extensions = map[Type][]string{
	TypeJPG:    {"jpg", "jpeg", "jpe"},
	TypeJPEG:   {"jpg", "jpeg", "jpe"},
	TypeTIFF:   {"tif", "tiff"},
	TypeJXR:    {"jxr", "wdp", "hdp"},
	TypeHEIC:   {"heic", "heif"},
	TypeJ2K:    {"j2k", "j2c", "jpc"},
	TypeJPF:    {"jpf", "jpx"},
	TypeMP4:    {"mp4", "m4v", "m4a"},
	TypeMOV:    {"mov", "qt"},
	TypeWMV:    {"wmv", "wma", "asf"},
	TypeMKV:    {"mkv", "mka", "mks", "mk3d", "webm"},
	TypeOGG:    {"ogg", "ogv", "oga", "opus"},
	TypeMPEG1:  {"mpg", "mpeg"},
	TypeMPEG2:  {"mpg", "mpeg", "m2v"},
	TypeSQLite: {"sqlite", "sqlite3", "db"},
	TypeOOXML:  {"docx", "xlsx", "pptx", "docm", "xlsm", "pptm"},
	TypeODF:    {"odt", "ods", "odp", "odg"},
	TypeZIP:    {"zip", "jar", "docx", "xlsx", "pptx", "odt", "ods", "odp", "epub"},
	TypeGZIP:   {"gz", "tgz"},
	TypeAAC:    {"aac", "adts"},
	TypeDylib:  {"dylib", "so", "bundle"},
	TypeELF:    {"so", "o", "elf", ""},
	TypeEXE:    {"exe", "dll"},
	TypeScript: {"sh", "bash", "py", "pl", "rb", ""},
	TypeXML:    {"xml", "svg", "xsd", "xsl"},
}

// Extensions returns the lowercase extensions (without dot) a type is stored
// under. An empty string entry means files of the type often carry none.
func Extensions(t Type) []string {
	if t == "" {
		return nil
	}
	if exts, ok := extensions[t]; ok {
		return slices.Clone(exts)
	}
	return []string{string(t)}
}

// MatchesExtension reports whether the extension of path agrees with res.
// Unknown results never match.
func MatchesExtension(res Result, path string) bool {
	if !res.Known() {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return slices.Contains(Extensions(res.Type), ext)
}
