package main

import (
	"reflect"
	"testing"
)

func TestChunkMessagePlainText(t *testing.T) {
	t.Run("no links", func(t *testing.T) {
		chunks := ChunkMessage("hello world")
		want := []MessageChunk{{Kind: ChunkText, Text: "hello world"}}
		if !reflect.DeepEqual(chunks, want) {
			t.Errorf("expected %v, got %v", want, chunks)
		}
	})

	t.Run("empty string", func(t *testing.T) {
		chunks := ChunkMessage("")
		if len(chunks) != 1 || chunks[0].Kind != ChunkText || chunks[0].Text != "" {
			t.Errorf("expected single empty text chunk, got %v", chunks)
		}
	})

	t.Run("letters that start schemes but are not links", func(t *testing.T) {
		chunks := ChunkMessage("hi from iceland, ferry is fine")
		if len(chunks) != 1 || chunks[0].Kind != ChunkText {
			t.Errorf("expected single text chunk, got %v", chunks)
		}
	})
}

func TestChunkMessageBareLinks(t *testing.T) {
	t.Run("single https link", func(t *testing.T) {
		chunks := ChunkMessage("see https://example.com for more")
		want := []MessageChunk{
			{Kind: ChunkText, Text: "see "},
			{Kind: ChunkLink, Title: "https://example.com", Location: "https://example.com", Scheme: SchemeHTTPS},
			{Kind: ChunkText, Text: " for more"},
		}
		if !reflect.DeepEqual(chunks, want) {
			t.Errorf("expected %v, got %v", want, chunks)
		}
	})

	t.Run("link at start of text", func(t *testing.T) {
		chunks := ChunkMessage("https://a.example rest")
		if chunks[0].Kind != ChunkLink {
			t.Fatalf("expected link first, got %v", chunks[0])
		}
		if chunks[1].Text != " rest" {
			t.Errorf("expected trailing text %q, got %q", " rest", chunks[1].Text)
		}
	})

	t.Run("link at end of text", func(t *testing.T) {
		chunks := ChunkMessage("go to https://a.example")
		last := chunks[len(chunks)-1]
		if last.Kind != ChunkLink || last.Location != "https://a.example" {
			t.Errorf("expected trailing link, got %v", last)
		}
	})

	t.Run("ircs wins over irc", func(t *testing.T) {
		chunks := ChunkMessage("ircs://irc.libera.chat/#go-nuts")
		if len(chunks) != 1 || chunks[0].Scheme != SchemeIRC {
			t.Fatalf("expected single irc link, got %v", chunks)
		}
		if chunks[0].Location != "ircs://irc.libera.chat/#go-nuts" {
			t.Errorf("unexpected location %q", chunks[0].Location)
		}
	})

	t.Run("ftp link", func(t *testing.T) {
		chunks := ChunkMessage("ftp://files.example/pub")
		if chunks[0].Scheme != SchemeFTP {
			t.Errorf("expected ftp scheme, got %v", chunks[0].Scheme)
		}
	})

	t.Run("scheme with no body still links to whitespace", func(t *testing.T) {
		chunks := ChunkMessage("https://a https://bhttps:// c")
		want := []MessageChunk{
			{Kind: ChunkLink, Title: "https://a", Location: "https://a", Scheme: SchemeHTTPS},
			{Kind: ChunkText, Text: " "},
			{Kind: ChunkLink, Title: "https://bhttps://", Location: "https://bhttps://", Scheme: SchemeHTTPS},
			{Kind: ChunkText, Text: " c"},
		}
		if !reflect.DeepEqual(chunks, want) {
			t.Errorf("expected %v, got %v", want, chunks)
		}
	})

	t.Run("adjacent links with no gap", func(t *testing.T) {
		chunks := ChunkMessage("[[a]][[b]]")
		if len(chunks) != 2 {
			t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
		}
		for _, c := range chunks {
			if c.Kind != ChunkLink {
				t.Errorf("expected only link chunks, got %v", c)
			}
		}
	})
}

func TestChunkMessageWikiLinks(t *testing.T) {
	t.Run("basic wiki link", func(t *testing.T) {
		chunks := ChunkMessage("read [[Installation]] first")
		want := []MessageChunk{
			{Kind: ChunkText, Text: "read "},
			{Kind: ChunkLink, Title: "wiki:Installation", Location: wikiBase + "Installation", Scheme: SchemeWiki},
			{Kind: ChunkText, Text: " first"},
		}
		if !reflect.DeepEqual(chunks, want) {
			t.Errorf("expected %v, got %v", want, chunks)
		}
	})

	t.Run("unclosed wiki link stays text", func(t *testing.T) {
		chunks := ChunkMessage("broken [[name here")
		if len(chunks) != 1 || chunks[0].Kind != ChunkText {
			t.Errorf("expected single text chunk, got %v", chunks)
		}
	})
}

func TestChunkMessageBracketLinks(t *testing.T) {
	t.Run("url with title", func(t *testing.T) {
		chunks := ChunkMessage("[https://example.com Example Site]")
		want := []MessageChunk{
			{Kind: ChunkLink, Title: "Example Site", Location: "https://example.com", Scheme: SchemeHTTPS},
		}
		if !reflect.DeepEqual(chunks, want) {
			t.Errorf("expected %v, got %v", want, chunks)
		}
	})

	t.Run("trailing bracket run keeps brackets in title", func(t *testing.T) {
		chunks := ChunkMessage("[http://test Test (links here)]]")
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk, got %d: %v", len(chunks), chunks)
		}
		c := chunks[0]
		if c.Title != "Test (links here)]" {
			t.Errorf("expected title %q, got %q", "Test (links here)]", c.Title)
		}
		if c.Location != "http://test" {
			t.Errorf("expected location %q, got %q", "http://test", c.Location)
		}
	})

	t.Run("bracket without scheme stays text", func(t *testing.T) {
		chunks := ChunkMessage("[not a link]")
		if len(chunks) != 1 || chunks[0].Kind != ChunkText {
			t.Errorf("expected single text chunk, got %v", chunks)
		}
	})

	t.Run("bracket without space falls back to bare scan", func(t *testing.T) {
		// The bracket form needs a space before the title; after it fails
		// the scan resumes one byte later, where the bare form matches and
		// runs to the next whitespace, bracket included.
		chunks := ChunkMessage("[https://example.com]")
		want := []MessageChunk{
			{Kind: ChunkText, Text: "["},
			{Kind: ChunkLink, Title: "https://example.com]", Location: "https://example.com]", Scheme: SchemeHTTPS},
		}
		if !reflect.DeepEqual(chunks, want) {
			t.Errorf("expected %v, got %v", want, chunks)
		}
	})

	t.Run("unterminated bracket falls back to bare scan", func(t *testing.T) {
		chunks := ChunkMessage("[https://example.com some title")
		want := []MessageChunk{
			{Kind: ChunkText, Text: "["},
			{Kind: ChunkLink, Title: "https://example.com", Location: "https://example.com", Scheme: SchemeHTTPS},
			{Kind: ChunkText, Text: " some title"},
		}
		if !reflect.DeepEqual(chunks, want) {
			t.Errorf("expected %v, got %v", want, chunks)
		}
	})

	t.Run("failed bracket does not hide later links", func(t *testing.T) {
		chunks := ChunkMessage("[nope] but https://example.com works")
		var links int
		for _, c := range chunks {
			if c.Kind == ChunkLink {
				links++
				if c.Location != "https://example.com" {
					t.Errorf("unexpected link %q", c.Location)
				}
			}
		}
		if links != 1 {
			t.Errorf("expected 1 link, got %d", links)
		}
	})
}

func TestChunkMessageTiling(t *testing.T) {
	// Chunks must tile the source text exactly: concatenating text chunks
	// and link spans reproduces the original.
	inputs := []string{
		"plain",
		"see https://a.example and [[wiki]] and [http://b.example title] end",
		"[[a]][[b]]https://c.example",
		"x [broken https://noclose",
	}
	for _, in := range inputs {
		locs := findLinks(in)
		pos := 0
		for _, l := range locs {
			if l.start < pos {
				t.Errorf("%q: overlapping link span at %d", in, l.start)
			}
			if l.end <= l.start {
				t.Errorf("%q: empty link span at %d", in, l.start)
			}
			pos = l.end
		}
		if pos > len(in) {
			t.Errorf("%q: span past end of text", in)
		}
	}
}
