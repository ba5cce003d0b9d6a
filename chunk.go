package main

import "strings"

// wikiBase is the wiki that [[name]] links resolve against.
const wikiBase = "https://wiki.ternchat.org/"

// LinkScheme tags a link with its protocol kind so the presentation layer
// can decide how to open it (irc:// links carry channel coordinates).
type LinkScheme int

const (
	SchemeHTTPS LinkScheme = iota
	SchemeHTTP
	SchemeFTP
	SchemeIRC
	SchemeWiki
)

// schemePrefixes are the recognized bare-link prefixes, longest first so
// ircs:// wins over irc://.
var schemePrefixes = []struct {
	prefix string
	scheme LinkScheme
}{
	{"https://", SchemeHTTPS},
	{"http://", SchemeHTTP},
	{"ircs://", SchemeIRC},
	{"irc://", SchemeIRC},
	{"ftp://", SchemeFTP},
}

type ChunkKind int

const (
	ChunkText ChunkKind = iota
	ChunkLink
)

// MessageChunk is one renderable piece of a message: either literal text or
// a link with a display title and a destination.
type MessageChunk struct {
	Kind     ChunkKind
	Text     string // ChunkText only
	Title    string // ChunkLink only
	Location string // ChunkLink only
	Scheme   LinkScheme
}

type linkForm int

const (
	bareLink linkForm = iota
	wikiLink
	bracketLink
)

// linkLocation is the transient parse artifact produced by the scanner:
// byte-offset spans into the source text plus the extracted title/location.
type linkLocation struct {
	form       linkForm
	start, end int // full span in the source, end exclusive
	title      string
	loc        string
	scheme     LinkScheme
}

// ChunkMessage splits raw message text into an ordered, gap-tiling sequence
// of Text and Link chunks. Text with no recognized links comes back as a
// single Text chunk; adjacent links produce no empty Text chunk between them.
func ChunkMessage(text string) []MessageChunk {
	locs := findLinks(text)
	if len(locs) == 0 {
		return []MessageChunk{{Kind: ChunkText, Text: text}}
	}

	var chunks []MessageChunk
	pos := 0
	for _, l := range locs {
		if l.start > pos {
			chunks = append(chunks, MessageChunk{Kind: ChunkText, Text: text[pos:l.start]})
		}
		chunks = append(chunks, MessageChunk{
			Kind:     ChunkLink,
			Title:    l.title,
			Location: l.loc,
			Scheme:   l.scheme,
		})
		pos = l.end
	}
	if pos < len(text) {
		chunks = append(chunks, MessageChunk{Kind: ChunkText, Text: text[pos:]})
	}
	return chunks
}

// findLinks scans left to right for link candidates. Only '[' and the first
// letter of a scheme prefix trigger a parse attempt; everything else is
// skipped a byte at a time. Failed candidates resume one byte after their
// start rather than retrying other forms at the same offset, so worst-case
// behavior on adversarial input is quadratic.
func findLinks(text string) []linkLocation {
	var locs []linkLocation
	i := 0
	for i < len(text) {
		switch c := text[i]; {
		case c == '[':
			if l, ok := scanBracketed(text, i); ok {
				locs = append(locs, l)
				i = l.end
				continue
			}
			i++
		case c == 'h' || c == 'f' || c == 'i':
			if l, ok := scanBare(text, i); ok {
				locs = append(locs, l)
				i = l.end
				continue
			}
			i++
		default:
			i++
		}
	}
	return locs
}

// matchScheme returns the scheme prefix starting at text[i:], if any.
func matchScheme(text string, i int) (string, LinkScheme, bool) {
	for _, sp := range schemePrefixes {
		if strings.HasPrefix(text[i:], sp.prefix) {
			return sp.prefix, sp.scheme, true
		}
	}
	return "", 0, false
}

// scanBare matches a scheme-prefixed link running to the next whitespace or
// end of text. The matched span doubles as the title.
func scanBare(text string, start int) (linkLocation, bool) {
	_, scheme, ok := matchScheme(text, start)
	if !ok {
		return linkLocation{}, false
	}
	end := start
	for end < len(text) && !isSpace(text[end]) {
		end++
	}
	span := text[start:end]
	return linkLocation{
		form:   bareLink,
		start:  start,
		end:    end,
		title:  span,
		loc:    span,
		scheme: scheme,
	}, true
}

// scanBracketed handles both [[name]] wiki links and [<url> <title>] links
// at an opening bracket. A failed candidate reports !ok and the caller
// resumes one byte after the bracket.
func scanBracketed(text string, start int) (linkLocation, bool) {
	if strings.HasPrefix(text[start:], "[[") {
		return scanWiki(text, start)
	}

	// [<url> <title>]: the part after '[' must begin with a scheme prefix.
	urlStart := start + 1
	_, scheme, ok := matchScheme(text, urlStart)
	if !ok {
		return linkLocation{}, false
	}
	sp := strings.IndexByte(text[urlStart:], ' ')
	if sp < 0 {
		return linkLocation{}, false
	}
	urlEnd := urlStart + sp

	// The title runs to the closing bracket. A trailing run of ']' is
	// consumed whole with the last one acting as the delimiter, so titles
	// that legitimately end in ']' survive.
	closing := strings.IndexByte(text[urlEnd:], ']')
	if closing < 0 {
		return linkLocation{}, false
	}
	closing += urlEnd
	for closing+1 < len(text) && text[closing+1] == ']' {
		closing++
	}

	return linkLocation{
		form:   bracketLink,
		start:  start,
		end:    closing + 1,
		title:  text[urlEnd+1 : closing],
		loc:    text[urlStart:urlEnd],
		scheme: scheme,
	}, true
}

// scanWiki matches [[name]], producing a link into the wiki.
func scanWiki(text string, start int) (linkLocation, bool) {
	inner := start + 2
	closing := strings.Index(text[inner:], "]]")
	if closing < 0 {
		return linkLocation{}, false
	}
	name := text[inner : inner+closing]
	return linkLocation{
		form:   wikiLink,
		start:  start,
		end:    inner + closing + 2,
		title:  "wiki:" + name,
		loc:    wikiBase + name,
		scheme: SchemeWiki,
	}, true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
