/*
Package filetype identifies a file's format from its leading bytes.

	+-----------+      +--------------+      +--------------+
	|  prefix   | ---> |  signatures  | ---> |   family     |
	| (24 bytes)|      | (first match)|      | disambiguator|
	+-----------+      +--------------+      +--------------+

🎯 Purpose:
- Classify files by content, not by name
- Give callers a category for routing and extension checks

🔄 Flow:
1. Caller reads at least PrefixLen bytes (or uses Sniff / SniffFile)
2. Signatures are scanned in registration order; the first match wins
3. Formats sharing an outer signature (JPEG, ISO-BMFF, RIFF, EBML) are
   resolved by inspecting a second window of the prefix

📝 Precedence:
Several containers share their outer bytes with a more generic format.
The table lists the longer, more specific pattern first, so an OOXML
document (PK\x03\x04\x14\x00\x06\x00) never reports as a plain zip and an
"isom" ftyp brand reports as mp4 before the JPEG 2000 fallback is tried.
When the window cannot tell two formats apart the more generic type is
returned; ooxml covers docx, xlsx and pptx alike.

🔍 Example:

	res, err := filetype.SniffFile(afero.NewOsFs(), "report.docx")
	if err != nil {
		return err
	}
	if !filetype.MatchesExtension(res, "report.docx") {
		// content and name disagree
	}
*/
package filetype
